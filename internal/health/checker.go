// Package health runs every catalog feed through the fetch layer and
// classifies the outcome, optionally proposing corrected URLs for feeds
// whose hosts appear in the known-migrations table.
package health

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/feedgrep/feedgrep/internal/feed"
	"github.com/feedgrep/feedgrep/internal/opml"
)

// Outcome is the health classification for one subscription, mapped 1:1
// from the fetch layer's ErrorKind.
type Outcome string

const (
	Healthy    Outcome = "healthy"
	Timeout    Outcome = "timeout"
	SSLError   Outcome = "ssl error"
	HTTPError  Outcome = "http error"
	ParseError Outcome = "parse error"
	Other      Outcome = "other"
)

// Record is the health result for one subscription. Not persisted; a new
// check produces a fresh sequence.
type Record struct {
	Subscription opml.Subscription
	Outcome      Outcome
	Code         int    // HTTP status, set when Outcome is HTTPError
	Detail       string // diagnostic message for non-healthy outcomes
	ArticleCount int    // recent articles, for healthy feeds
	SuggestedFix string // populated only in fix mode
}

// Err formats the record's failure for display and export. Empty for
// healthy feeds.
func (r Record) Err() string {
	switch r.Outcome {
	case Healthy:
		return ""
	case HTTPError:
		if r.Code == 403 {
			return "HTTP error 403: forbidden (may be blocking bots)"
		}
		return fmt.Sprintf("HTTP error %d", r.Code)
	default:
		if r.Detail != "" {
			return fmt.Sprintf("%s: %s", r.Outcome, r.Detail)
		}
		return string(r.Outcome)
	}
}

// Checker diagnoses the whole catalog through the fetch coordinator.
type Checker struct {
	coord      *feed.Coordinator
	migrations feed.Migrations
	window     time.Duration
}

func NewChecker(coord *feed.Coordinator, migrations feed.Migrations, window time.Duration) *Checker {
	if window <= 0 {
		window = feed.DefaultWindow
	}
	return &Checker{coord: coord, migrations: migrations, window: window}
}

// Check fetches every subscription (date filtering disabled; only fetch
// success matters) and returns one record per subscription in catalog
// order. In fix mode, failing feeds whose URL matches a known migration get
// a suggested replacement without an extra fetch.
func (c *Checker) Check(ctx context.Context, subs []opml.Subscription, fixMode bool) []Record {
	snaps := c.coord.FetchAll(ctx, subs)

	records := make([]Record, 0, len(subs))
	for _, sub := range subs {
		snap := snaps[sub.XMLURL]
		rec := Record{Subscription: sub}

		switch {
		case snap.Err != nil:
			rec.Outcome, rec.Code, rec.Detail = classify(snap.Err)
		case len(snap.Entries) == 0:
			// Parsed fine but empty; almost always an abandoned feed.
			rec.Outcome = Other
			rec.Detail = "feed has no entries"
		default:
			rec.Outcome = Healthy
			rec.ArticleCount = feed.CountRecent(snap, c.window)
		}

		if fixMode && rec.Outcome != Healthy {
			if fixed, ok := c.migrations.Lookup(sub.XMLURL); ok {
				rec.SuggestedFix = fixed
			}
		}
		records = append(records, rec)
	}
	return records
}

func classify(ferr *feed.FetchError) (Outcome, int, string) {
	switch ferr.Kind {
	case feed.KindTimeout:
		return Timeout, 0, ferr.Message
	case feed.KindSSL:
		return SSLError, 0, ferr.Message
	case feed.KindHTTP:
		return HTTPError, ferr.Code, ""
	case feed.KindParse:
		return ParseError, 0, ferr.Message
	default:
		return Other, 0, ferr.Message
	}
}

// Group is a set of records sharing an outcome, for the grouped problem
// report.
type Group struct {
	Outcome Outcome
	Records []Record
}

// GroupProblems buckets non-healthy records by outcome, groups sorted by
// outcome name, records kept in catalog order. Pure post-processing over
// Check's result.
func GroupProblems(records []Record) []Group {
	byOutcome := make(map[Outcome][]Record)
	for _, r := range records {
		if r.Outcome == Healthy {
			continue
		}
		byOutcome[r.Outcome] = append(byOutcome[r.Outcome], r)
	}

	outcomes := make([]string, 0, len(byOutcome))
	for o := range byOutcome {
		outcomes = append(outcomes, string(o))
	}
	sort.Strings(outcomes)

	groups := make([]Group, 0, len(outcomes))
	for _, o := range outcomes {
		groups = append(groups, Group{Outcome: Outcome(o), Records: byOutcome[Outcome(o)]})
	}
	return groups
}

// Fixable returns old URL -> suggested URL for every record carrying a fix,
// in the shape the catalog rewriter takes.
func Fixable(records []Record) map[string]string {
	fixes := make(map[string]string)
	for _, r := range records {
		if r.SuggestedFix != "" {
			fixes[r.Subscription.XMLURL] = r.SuggestedFix
		}
	}
	return fixes
}

// Defunct returns the feed URLs of all non-healthy feeds, for catalog
// cleanup. Keyed by URL rather than title so feeds sharing a title are
// pruned independently.
func Defunct(records []Record) map[string]bool {
	out := make(map[string]bool)
	for _, r := range records {
		if r.Outcome != Healthy {
			out[r.Subscription.XMLURL] = true
		}
	}
	return out
}
