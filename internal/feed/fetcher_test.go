package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/feedgrep/feedgrep/internal/opml"
)

var sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Feed</title>
    <link>https://example.com</link>
    <item>
      <title>Fresh Post</title>
      <link>https://example.com/fresh</link>
      <description>&lt;p&gt;A &lt;b&gt;fresh&lt;/b&gt; post&lt;/p&gt;</description>
      <pubDate>` + time.Now().Add(-1*time.Hour).Format(time.RFC1123Z) + `</pubDate>
    </item>
    <item>
      <title>Undated Post</title>
      <link>https://example.com/undated</link>
      <description>No date on this one</description>
    </item>
  </channel>
</rss>`

// memStore is a minimal in-memory Store for fetcher tests.
type memStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
}

type memEntry struct {
	snap    Snapshot
	expires time.Time
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]memEntry)}
}

func (m *memStore) Get(url string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[url]
	if !ok || !time.Now().Before(e.expires) {
		return Snapshot{}, false
	}
	return e.snap, true
}

func (m *memStore) Put(url string, snap Snapshot, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[url] = memEntry{snap: snap, expires: time.Now().Add(ttl)}
	return nil
}

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleRSS)
	}))
	defer srv.Close()

	f := NewFetcher(Options{})
	snap := f.Fetch(context.Background(), opml.Subscription{Title: "Example", XMLURL: srv.URL, Category: "Tech"})

	if snap.Err != nil {
		t.Fatalf("unexpected fetch error: %v", snap.Err)
	}
	if len(snap.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(snap.Entries))
	}
	e := snap.Entries[0]
	if e.Title != "Fresh Post" || e.FeedTitle != "Example" || e.Category != "Tech" {
		t.Errorf("unexpected entry: %+v", e)
	}
	if e.Published == nil {
		t.Error("expected parsed publish date")
	}
	if e.Summary != "A fresh post" {
		t.Errorf("expected stripped summary, got %q", e.Summary)
	}
	if snap.Entries[1].Published != nil {
		t.Error("undated entry should carry no publish timestamp")
	}
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(Options{})
	snap := f.Fetch(context.Background(), opml.Subscription{XMLURL: srv.URL})

	if snap.Err == nil || snap.Err.Kind != KindHTTP || snap.Err.Code != 404 {
		t.Fatalf("expected HTTPError(404), got %+v", snap.Err)
	}
	if len(snap.Entries) != 0 {
		t.Error("failed fetch must yield zero entries")
	}
}

func TestFetchParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>definitely not a feed</body></html>")
	}))
	defer srv.Close()

	f := NewFetcher(Options{})
	snap := f.Fetch(context.Background(), opml.Subscription{XMLURL: srv.URL})

	if snap.Err == nil || snap.Err.Kind != KindParse {
		t.Fatalf("expected ParseError, got %+v", snap.Err)
	}
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		fmt.Fprint(w, sampleRSS)
	}))
	defer srv.Close()

	f := NewFetcher(Options{Timeout: 50 * time.Millisecond})
	snap := f.Fetch(context.Background(), opml.Subscription{XMLURL: srv.URL})

	if snap.Err == nil || snap.Err.Kind != KindTimeout {
		t.Fatalf("expected Timeout, got %+v", snap.Err)
	}
}

func TestFetchInvalidURL(t *testing.T) {
	f := NewFetcher(Options{})
	for _, url := range []string{"mailto:someone@example.com", "ftp://example.com/feed", "user@host"} {
		snap := f.Fetch(context.Background(), opml.Subscription{XMLURL: url})
		if snap.Err == nil || snap.Err.Kind != KindOther {
			t.Errorf("url %q: expected Other classification, got %+v", url, snap.Err)
		}
	}
}

func TestFetchRetriesWithMigratedURL(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/moved":
			fmt.Fprint(w, sampleRSS)
		default:
			http.Error(w, "gone", http.StatusGone)
		}
	}))
	defer srv.Close()

	f := NewFetcher(Options{Migrations: Migrations{"/old": "/moved"}})
	snap := f.Fetch(context.Background(), opml.Subscription{Title: "Moved", XMLURL: srv.URL + "/old"})

	if snap.Err != nil {
		t.Fatalf("expected retry against migrated URL to succeed, got %+v", snap.Err)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("expected exactly 2 requests (original + fix), got %d", got)
	}
	// The snapshot stays keyed by the catalog URL.
	if snap.URL != srv.URL+"/old" {
		t.Errorf("snapshot URL should be the original, got %s", snap.URL)
	}
}

func TestFetchNoRetryWithoutMigration(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewFetcher(Options{Migrations: Migrations{}})
	snap := f.Fetch(context.Background(), opml.Subscription{XMLURL: srv.URL})

	if snap.Err == nil || snap.Err.Kind != KindHTTP || snap.Err.Code != 403 {
		t.Fatalf("expected HTTPError(403), got %+v", snap.Err)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("expected a single request, got %d", got)
	}
}

func TestFetchUsesBrowserHeaders(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		fmt.Fprint(w, sampleRSS)
	}))
	defer srv.Close()

	f := NewFetcher(Options{})
	f.Fetch(context.Background(), opml.Subscription{XMLURL: srv.URL})

	if ua != DefaultUserAgent {
		t.Errorf("expected browser-like User-Agent, got %q", ua)
	}
}

func TestFetchServesFromCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, sampleRSS)
	}))
	defer srv.Close()

	store := newMemStore()
	f := NewFetcher(Options{Store: store})
	sub := opml.Subscription{Title: "Example", XMLURL: srv.URL}

	first := f.Fetch(context.Background(), sub)
	second := f.Fetch(context.Background(), sub)

	if got := hits.Load(); got != 1 {
		t.Fatalf("second fetch within TTL should issue zero extra requests, server saw %d", got)
	}
	if len(first.Entries) != len(second.Entries) || !first.FetchedAt.Equal(second.FetchedAt) {
		t.Error("cached snapshot should be byte-identical to the stored one")
	}
}

func TestFetchFailureNotCached(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "oops", http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := newMemStore()
	f := NewFetcher(Options{Store: store})
	sub := opml.Subscription{XMLURL: srv.URL}

	f.Fetch(context.Background(), sub)
	f.Fetch(context.Background(), sub)

	if got := hits.Load(); got != 2 {
		t.Errorf("failed fetches should not be cached, server saw %d requests", got)
	}
}
