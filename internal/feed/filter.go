package feed

import (
	"sort"
	"time"

	"github.com/feedgrep/feedgrep/internal/opml"
)

// DefaultWindow is the recency window applied when selecting articles.
const DefaultWindow = 24 * time.Hour

// SelectRecent narrows fetched snapshots to entries published inside
// [now-window, now]. Entries without a publish timestamp are excluded: they
// cannot be verified as recent, and precision wins over recall here. Output
// is ordered by publish time descending, ties kept in catalog order; limit
// (if > 0) truncates the final sequence, not per feed.
func SelectRecent(subs []opml.Subscription, snaps map[string]Snapshot, window time.Duration, limit int) []Entry {
	if window <= 0 {
		window = DefaultWindow
	}
	now := time.Now()
	cutoff := now.Add(-window)

	var out []Entry
	seenURL := make(map[string]bool, len(subs))
	seenLink := make(map[string]bool)

	for _, sub := range subs {
		if seenURL[sub.XMLURL] {
			continue
		}
		seenURL[sub.XMLURL] = true

		snap, ok := snaps[sub.XMLURL]
		if !ok {
			continue
		}
		for _, e := range snap.Entries {
			if e.Published == nil {
				continue
			}
			if e.Published.Before(cutoff) || e.Published.After(now) {
				continue
			}
			if e.Link != "" && seenLink[e.Link] {
				continue
			}
			seenLink[e.Link] = true
			out = append(out, e)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Published.After(*out[j].Published)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// CountRecent reports how many of a snapshot's entries fall inside the
// window, for the --counts listing mode.
func CountRecent(snap Snapshot, window time.Duration) int {
	if window <= 0 {
		window = DefaultWindow
	}
	cutoff := time.Now().Add(-window)
	n := 0
	for _, e := range snap.Entries {
		if e.Published != nil && e.Published.After(cutoff) {
			n++
		}
	}
	return n
}
