package render

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/feedgrep/feedgrep/internal/feed"
	"github.com/feedgrep/feedgrep/internal/health"
	"github.com/feedgrep/feedgrep/internal/opml"
)

var (
	// Adaptive colors for dark/light terminals
	colorPrimary = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}
	colorDim     = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#626262"}
	colorGreen   = lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#25D366"}
	colorRed     = lipgloss.AdaptiveColor{Light: "#D93025", Dark: "#F28B82"}
	colorYellow  = lipgloss.AdaptiveColor{Light: "#B26A00", Dark: "#FDD663"}

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	metaStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	sourceStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	linkStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			Italic(true)

	summaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#3D3D3D", Dark: "#ABABAB"})

	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			MarginTop(1)

	problemStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	fixStyle = lipgloss.NewStyle().
			Foreground(colorYellow)
)

func publishedLabel(t *time.Time) string {
	if t == nil {
		return "     "
	}
	local := t.Local()
	if time.Since(local) < 24*time.Hour && local.Day() == time.Now().Day() {
		return local.Format("15:04")
	}
	return local.Format("Jan 02 15:04")
}

// Articles renders the filtered article list, newest first.
func Articles(entries []feed.Entry, showSummary bool) string {
	if len(entries) == 0 {
		return metaStyle.Render("No recent articles.") + "\n"
	}

	var sb strings.Builder
	for _, e := range entries {
		meta := publishedLabel(e.Published)
		if e.Category != "" {
			meta += "  " + e.Category
		}
		sb.WriteString(metaStyle.Render(meta))
		sb.WriteString("  ")
		sb.WriteString(sourceStyle.Render(e.FeedTitle))
		sb.WriteString("\n")
		sb.WriteString(titleStyle.Render(e.Title))
		sb.WriteString("\n")
		if e.Link != "" {
			sb.WriteString(linkStyle.Render(e.Link))
			sb.WriteString("\n")
		}
		if showSummary && e.Summary != "" {
			sb.WriteString(summaryStyle.Render(e.Summary))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "%s\n", metaStyle.Render(fmt.Sprintf("%d article(s)", len(entries))))
	return sb.String()
}

// Categories renders the category listing, optionally with per-category
// recent-article counts.
func Categories(names []string, counts map[string]int, showCounts bool) string {
	var sb strings.Builder
	sb.WriteString(headingStyle.Render("Categories"))
	sb.WriteString("\n")
	for _, name := range names {
		if showCounts {
			fmt.Fprintf(&sb, "  %s %s\n", name, metaStyle.Render(fmt.Sprintf("(%d)", counts[name])))
		} else {
			fmt.Fprintf(&sb, "  %s\n", name)
		}
	}
	return sb.String()
}

// Feeds renders the subscription listing grouped by category.
func Feeds(subs []opml.Subscription, counts map[string]int, showCounts bool) string {
	var sb strings.Builder
	current := "\x00"
	for _, s := range subs {
		if s.Category != current {
			current = s.Category
			label := current
			if label == "" {
				label = "Uncategorized"
			}
			sb.WriteString(headingStyle.Render(label))
			sb.WriteString("\n")
		}
		if showCounts {
			fmt.Fprintf(&sb, "  %s %s\n", s.Title, metaStyle.Render(fmt.Sprintf("(%d)", counts[s.XMLURL])))
		} else {
			fmt.Fprintf(&sb, "  %s\n", s.Title)
		}
	}
	return sb.String()
}

// Suggestions renders a "did you mean" hint after a failed fuzzy match.
func Suggestions(query string, names []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "No match for %q.\n", query)
	if len(names) > 0 {
		sb.WriteString("Did you mean:\n")
		for _, n := range names {
			fmt.Fprintf(&sb, "  %s\n", sourceStyle.Render(n))
		}
	}
	return sb.String()
}

const maxProblemsPerGroup = 10

// HealthReport renders the check results: a one-line summary followed by
// problems grouped by outcome.
func HealthReport(records []health.Record) string {
	healthy := 0
	for _, r := range records {
		if r.Outcome == health.Healthy {
			healthy++
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Checked %d feed(s): %s healthy, %s with problems\n",
		len(records),
		sourceStyle.Render(fmt.Sprintf("%d", healthy)),
		problemStyle.Render(fmt.Sprintf("%d", len(records)-healthy)))

	for _, g := range health.GroupProblems(records) {
		sb.WriteString(headingStyle.Render(fmt.Sprintf("%s (%d)", g.Outcome, len(g.Records))))
		sb.WriteString("\n")
		shown := g.Records
		if len(shown) > maxProblemsPerGroup {
			shown = shown[:maxProblemsPerGroup]
		}
		for _, r := range shown {
			fmt.Fprintf(&sb, "  %s\n", r.Subscription.Title)
			fmt.Fprintf(&sb, "    %s\n", metaStyle.Render(r.Subscription.XMLURL))
			if detail := r.Err(); detail != "" {
				fmt.Fprintf(&sb, "    %s\n", problemStyle.Render(detail))
			}
			if r.SuggestedFix != "" {
				fmt.Fprintf(&sb, "    %s\n", fixStyle.Render("fix: "+r.SuggestedFix))
			}
		}
		if len(g.Records) > maxProblemsPerGroup {
			fmt.Fprintf(&sb, "  %s\n", metaStyle.Render(fmt.Sprintf("... and %d more", len(g.Records)-maxProblemsPerGroup)))
		}
	}
	return sb.String()
}

// CategoryCounts sums recent-article counts per category from the fetched
// snapshots.
func CategoryCounts(subs []opml.Subscription, snaps map[string]feed.Snapshot, window time.Duration) map[string]int {
	counts := make(map[string]int)
	seen := make(map[string]bool)
	for _, s := range subs {
		if seen[s.XMLURL] {
			continue
		}
		seen[s.XMLURL] = true
		if snap, ok := snaps[s.XMLURL]; ok {
			counts[s.Category] += feed.CountRecent(snap, window)
		}
	}
	return counts
}

// FeedCounts maps feed URL to its recent-article count.
func FeedCounts(subs []opml.Subscription, snaps map[string]feed.Snapshot, window time.Duration) map[string]int {
	counts := make(map[string]int)
	for _, s := range subs {
		if snap, ok := snaps[s.XMLURL]; ok {
			counts[s.XMLURL] = feed.CountRecent(snap, window)
		}
	}
	return counts
}

// SortByCategory orders subscriptions by category then title for grouped
// listings, leaving the input untouched.
func SortByCategory(subs []opml.Subscription) []opml.Subscription {
	out := make([]opml.Subscription, len(subs))
	copy(out, subs)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Title < out[j].Title
	})
	return out
}
