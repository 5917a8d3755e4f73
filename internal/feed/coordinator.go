package feed

import (
	"context"
	"sync"

	"github.com/feedgrep/feedgrep/internal/opml"
)

// DefaultWorkers bounds fan-out concurrency. High enough for throughput,
// low enough to stay polite to remote servers.
const DefaultWorkers = 20

// Coordinator fans out fetches across the subscription catalog with a
// bounded worker pool and collects one snapshot per input URL.
type Coordinator struct {
	fetcher *Fetcher
	workers int
}

func NewCoordinator(f *Fetcher, workers int) *Coordinator {
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &Coordinator{fetcher: f, workers: workers}
}

// FetchAll retrieves every subscription and returns exactly one snapshot per
// input URL, success or failure. Duplicate URLs collapse to a single fetch.
// When ctx carries a deadline, fetches abandoned at that deadline surface as
// Timeout snapshots; completed ones are returned as-is.
func (c *Coordinator) FetchAll(ctx context.Context, subs []opml.Subscription) map[string]Snapshot {
	unique := make([]opml.Subscription, 0, len(subs))
	seen := make(map[string]bool, len(subs))
	for _, sub := range subs {
		if seen[sub.XMLURL] {
			continue
		}
		seen[sub.XMLURL] = true
		unique = append(unique, sub)
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]Snapshot, len(unique))
	)
	sem := make(chan struct{}, c.workers)

	for _, sub := range unique {
		wg.Add(1)
		go func(sub opml.Subscription) {
			defer wg.Done()

			var snap Snapshot
			select {
			case sem <- struct{}{}:
				snap = c.fetcher.Fetch(ctx, sub)
				<-sem
			case <-ctx.Done():
				// Abandoned before a worker slot freed up.
				snap = Snapshot{
					URL: sub.XMLURL,
					Err: &FetchError{Kind: KindTimeout, Message: ctx.Err().Error()},
				}
			}

			mu.Lock()
			results[sub.XMLURL] = snap
			mu.Unlock()
		}(sub)
	}
	wg.Wait()

	return results
}
