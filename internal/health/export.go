package health

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

type exportRow struct {
	Title        string `json:"title"`
	URL          string `json:"url"`
	Category     string `json:"category"`
	Status       string `json:"status"`
	Error        string `json:"error"`
	ArticleCount int    `json:"article_count"`
	SuggestedFix string `json:"suggested_fix"`
}

func exportRows(records []Record) []exportRow {
	rows := make([]exportRow, 0, len(records))
	for _, r := range records {
		status := "error"
		if r.Outcome == Healthy {
			status = "healthy"
		}
		rows = append(rows, exportRow{
			Title:        r.Subscription.Title,
			URL:          r.Subscription.XMLURL,
			Category:     r.Subscription.Category,
			Status:       status,
			Error:        r.Err(),
			ArticleCount: r.ArticleCount,
			SuggestedFix: r.SuggestedFix,
		})
	}
	return rows
}

// WriteJSON serializes the record sequence as a JSON array. The caller owns
// the writer; this package never touches the filesystem.
func WriteJSON(w io.Writer, records []Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(exportRows(records)); err != nil {
		return fmt.Errorf("encoding health report: %w", err)
	}
	return nil
}

// WriteCSV serializes the record sequence as CSV with a header row.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"title", "url", "category", "status", "error", "article_count", "suggested_fix"}); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, row := range exportRows(records) {
		rec := []string{
			row.Title, row.URL, row.Category, row.Status, row.Error,
			strconv.Itoa(row.ArticleCount), row.SuggestedFix,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
