// Package fuzzy resolves free-text queries against catalog names (categories
// and feed titles) using a ranked set of matching rules.
package fuzzy

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

const (
	// MinSimilarity is the cutoff for the edit-distance fallback rule.
	MinSimilarity = 0.6

	exactScore = 100
)

// Candidate is one scored match. Index is the candidate's position in the
// input slice, so callers can map back to catalog entries.
type Candidate struct {
	Name  string
	Score float64
	Index int
}

// Match scores query against names and returns candidates best first.
// Rules are tried in priority order and the first rule that yields any hit
// wins: exact case-insensitive substring, numeric prefix, token subset, then
// normalized edit distance. Equal scores keep input order.
func Match(query string, names []string) []Candidate {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	if hits := matchSubstring(query, names); len(hits) > 0 {
		return hits
	}
	if hits := matchNumericPrefix(query, names); len(hits) > 0 {
		return hits
	}
	if hits := matchTokens(query, names); len(hits) > 0 {
		return hits
	}
	return matchSimilarity(query, names, MinSimilarity)
}

// Suggest returns up to n "did you mean" names for a query that matched
// nothing, ranked by similarity. There is no cutoff: even a wildly off
// query gets the closest names, so the list is only empty when names is.
func Suggest(query string, names []string, n int) []string {
	hits := matchSimilarity(strings.TrimSpace(query), names, 0)
	if len(hits) > n {
		hits = hits[:n]
	}
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.Name)
	}
	return out
}

func matchSubstring(query string, names []string) []Candidate {
	q := strings.ToLower(query)
	var hits []Candidate
	for i, name := range names {
		if strings.Contains(strings.ToLower(name), q) {
			hits = append(hits, Candidate{Name: name, Score: exactScore, Index: i})
		}
	}
	// Shorter names are more specific matches.
	sort.SliceStable(hits, func(a, b int) bool {
		return len(hits[a].Name) < len(hits[b].Name)
	})
	return hits
}

// matchNumericPrefix handles queries like "05" or "80.1" against names such
// as "05 Higher Education": the name must start with the numeric token
// followed by a non-digit boundary.
func matchNumericPrefix(query string, names []string) []Candidate {
	if !isNumericToken(query) {
		return nil
	}
	var hits []Candidate
	for i, name := range names {
		if !strings.HasPrefix(name, query) {
			continue
		}
		rest := name[len(query):]
		if rest != "" && rest[0] >= '0' && rest[0] <= '9' {
			continue
		}
		hits = append(hits, Candidate{Name: name, Score: exactScore, Index: i})
	}
	return hits
}

func matchTokens(query string, names []string) []Candidate {
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return nil
	}
	var hits []Candidate
	for i, name := range names {
		lower := strings.ToLower(name)
		all := true
		for _, tok := range tokens {
			if !strings.Contains(lower, tok) {
				all = false
				break
			}
		}
		if all {
			hits = append(hits, Candidate{Name: name, Score: exactScore, Index: i})
		}
	}
	return hits
}

func matchSimilarity(query string, names []string, cutoff float64) []Candidate {
	var hits []Candidate
	for i, name := range names {
		s := Similarity(query, name)
		if s >= cutoff {
			hits = append(hits, Candidate{Name: name, Score: s, Index: i})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Score > hits[b].Score
	})
	return hits
}

// Similarity is a normalized edit-distance ratio in [0, 1]: identical strings
// score 1.0. Comparison is case-insensitive.
func Similarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a == b {
		return 1.0
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(maxLen)
}

// isNumericToken reports whether s is purely digits with at most one decimal
// point, e.g. "05" or "80.1".
func isNumericToken(s string) bool {
	if s == "" {
		return false
	}
	dots := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.':
			dots++
			if dots > 1 {
				return false
			}
		default:
			return false
		}
	}
	return s != "." && dots <= 1
}
