// Package feed retrieves and parses RSS/Atom feeds: single-feed fetching
// through a TTL cache, bounded-concurrency fan-out across the catalog, and
// recency filtering of the fetched entries.
package feed

import (
	"fmt"
	"time"
)

// ErrorKind classifies a terminal fetch failure. Failures are data on the
// snapshot, never Go errors returned to the caller.
type ErrorKind string

const (
	KindTimeout ErrorKind = "timeout"
	KindSSL     ErrorKind = "ssl"
	KindHTTP    ErrorKind = "http"
	KindParse   ErrorKind = "parse"
	KindOther   ErrorKind = "other"
)

// FetchError records why a feed could not be fetched or parsed.
type FetchError struct {
	Kind    ErrorKind `json:"kind"`
	Code    int       `json:"code,omitempty"` // HTTP status, set for KindHTTP
	Message string    `json:"message,omitempty"`
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindTimeout:
		return "timeout - feed took too long to respond"
	case KindSSL:
		return fmt.Sprintf("SSL error: %s", e.Message)
	case KindHTTP:
		return fmt.Sprintf("HTTP error %d", e.Code)
	case KindParse:
		return fmt.Sprintf("feed parsing error: %s", e.Message)
	default:
		return e.Message
	}
}

// Entry is one article, derived verbatim from parsed feed content.
// Published is nil when the feed did not provide a usable timestamp.
type Entry struct {
	Title     string     `json:"title"`
	Link      string     `json:"link"`
	Published *time.Time `json:"published,omitempty"`
	Summary   string     `json:"summary,omitempty"`
	FeedTitle string     `json:"feed_title"`
	Category  string     `json:"category,omitempty"`
}

// Snapshot is the immutable result of one fetch attempt for one feed.
// A failed fetch yields a snapshot with zero entries and a non-nil Err, so
// downstream counts stay accurate.
type Snapshot struct {
	URL       string      `json:"url"`
	FetchedAt time.Time   `json:"fetched_at"`
	Entries   []Entry     `json:"entries,omitempty"`
	Err       *FetchError `json:"error,omitempty"`
}

// Store is the snapshot cache consulted by the fetcher. Get must treat
// expired entries as absent. Implementations must be safe for concurrent
// use by fetch workers.
type Store interface {
	Get(url string) (Snapshot, bool)
	Put(url string, snap Snapshot, ttl time.Duration) error
}
