package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/feedgrep/feedgrep/internal/opml"
)

func TestFetchAllOneSnapshotPerSubscription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			fmt.Fprint(w, sampleRSS)
		case "/missing":
			http.Error(w, "nope", http.StatusNotFound)
		default:
			fmt.Fprint(w, "not xml at all")
		}
	}))
	defer srv.Close()

	subs := []opml.Subscription{
		{Title: "OK", XMLURL: srv.URL + "/ok"},
		{Title: "Missing", XMLURL: srv.URL + "/missing"},
		{Title: "Garbage", XMLURL: srv.URL + "/garbage"},
		{Title: "Bogus", XMLURL: "not-a-url"},
	}

	c := NewCoordinator(NewFetcher(Options{}), 4)
	results := c.FetchAll(context.Background(), subs)

	if len(results) != len(subs) {
		t.Fatalf("expected %d snapshots, got %d", len(subs), len(results))
	}
	for _, sub := range subs {
		if _, ok := results[sub.XMLURL]; !ok {
			t.Errorf("no snapshot for %s", sub.XMLURL)
		}
	}
	if snap := results[srv.URL+"/ok"]; snap.Err != nil {
		t.Errorf("healthy feed reported error: %+v", snap.Err)
	}
	if snap := results[srv.URL+"/missing"]; snap.Err == nil || snap.Err.Kind != KindHTTP {
		t.Errorf("404 feed not classified as HTTP error: %+v", snap.Err)
	}
	if snap := results[srv.URL+"/garbage"]; snap.Err == nil || snap.Err.Kind != KindParse {
		t.Errorf("unparseable feed not classified as parse error: %+v", snap.Err)
	}
}

func TestFetchAllCollapsesDuplicateURLs(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, sampleRSS)
	}))
	defer srv.Close()

	subs := []opml.Subscription{
		{Title: "One", XMLURL: srv.URL},
		{Title: "Same feed, listed twice", XMLURL: srv.URL},
	}

	c := NewCoordinator(NewFetcher(Options{}), 4)
	results := c.FetchAll(context.Background(), subs)

	if len(results) != 1 {
		t.Fatalf("expected 1 snapshot for duplicate URLs, got %d", len(results))
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("duplicate URLs should fetch once, server saw %d requests", got)
	}
}

func TestFetchAllBoundsConcurrency(t *testing.T) {
	const workers = 3
	var inflight, peak atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inflight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inflight.Add(-1)
		fmt.Fprint(w, sampleRSS)
	}))
	defer srv.Close()

	var subs []opml.Subscription
	for i := 0; i < 12; i++ {
		subs = append(subs, opml.Subscription{XMLURL: fmt.Sprintf("%s/feed-%d", srv.URL, i)})
	}

	c := NewCoordinator(NewFetcher(Options{}), workers)
	results := c.FetchAll(context.Background(), subs)

	if len(results) != len(subs) {
		t.Fatalf("expected %d snapshots, got %d", len(subs), len(results))
	}
	if p := peak.Load(); p > workers {
		t.Errorf("concurrency exceeded bound: peak %d > %d workers", p, workers)
	}
}

func TestFetchAllGlobalDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		fmt.Fprint(w, sampleRSS)
	}))
	defer srv.Close()

	var subs []opml.Subscription
	for i := 0; i < 5; i++ {
		subs = append(subs, opml.Subscription{XMLURL: fmt.Sprintf("%s/slow-%d", srv.URL, i)})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// One worker, so most fetches never get a slot before the deadline.
	c := NewCoordinator(NewFetcher(Options{Timeout: time.Minute}), 1)
	results := c.FetchAll(ctx, subs)

	if len(results) != len(subs) {
		t.Fatalf("expected %d snapshots even past the deadline, got %d", len(subs), len(results))
	}
	for url, snap := range results {
		if snap.Err == nil || snap.Err.Kind != KindTimeout {
			t.Errorf("abandoned fetch %s should be Timeout, got %+v", url, snap.Err)
		}
	}
}
