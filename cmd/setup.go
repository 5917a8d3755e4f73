package cmd

import (
	"fmt"
	"os"

	"github.com/feedgrep/feedgrep/internal/cache"
	"github.com/feedgrep/feedgrep/internal/config"
	"github.com/feedgrep/feedgrep/internal/feed"
	"github.com/feedgrep/feedgrep/internal/fuzzy"
	"github.com/feedgrep/feedgrep/internal/opml"
	"github.com/feedgrep/feedgrep/internal/render"
)

// openCatalog resolves the OPML path (flag > config > auto-detect in the
// working directory) and loads it.
func openCatalog(cfg *config.Config) (*opml.Catalog, error) {
	path := flagOPML
	if path == "" {
		path = cfg.OPML
	}
	if path == "" {
		found, err := opml.FindCatalogFile(".")
		if err != nil {
			return nil, fmt.Errorf("no catalog given and %w (use --opml)", err)
		}
		path = found
	}
	return opml.Load(path)
}

// newCoordinator builds the fetch pipeline from config. The snapshot cache
// fails open: if it cannot be opened the run continues uncached. The
// returned func closes the cache and must be called when fetching is done.
func newCoordinator(cfg *config.Config) (*feed.Coordinator, feed.Migrations, func()) {
	migrations := feed.DefaultMigrations(cfg.URLFixes)
	opts := feed.Options{
		Migrations: migrations,
		TTL:        cfg.CacheTTLDuration(),
		Timeout:    cfg.FetchTimeoutDuration(),
		UserAgent:  cfg.UserAgent,
	}

	cleanup := func() {}
	if store, err := cache.Open(config.CachePath()); err != nil {
		fmt.Fprintf(os.Stderr, "warning: snapshot cache unavailable (%v), fetching without cache\n", err)
	} else {
		opts.Store = store
		cleanup = func() { store.Close() }
	}

	return feed.NewCoordinator(feed.NewFetcher(opts), cfg.FetchConcurrency()), migrations, cleanup
}

// resolveSubscriptions narrows the catalog by the --category / --feed
// queries. A query with no match prints suggestions and fails.
func resolveSubscriptions(catalog *opml.Catalog) ([]opml.Subscription, error) {
	subs := catalog.Subs

	if flagCategory != "" {
		names := catalog.Categories()
		matches := fuzzy.Match(flagCategory, names)
		if len(matches) == 0 {
			fmt.Print(render.Suggestions(flagCategory, fuzzy.Suggest(flagCategory, names, 3)))
			return nil, fmt.Errorf("no category matches %q", flagCategory)
		}
		best := matches[0].Name
		if best != flagCategory {
			fmt.Printf("Category: %s\n", best)
		}
		subs = catalog.ByCategory(best)
	}

	if flagFeed != "" {
		titles := make([]string, 0, len(subs))
		for _, s := range subs {
			titles = append(titles, s.Title)
		}
		matches := fuzzy.Match(flagFeed, titles)
		if len(matches) == 0 {
			fmt.Print(render.Suggestions(flagFeed, fuzzy.Suggest(flagFeed, titles, 3)))
			return nil, fmt.Errorf("no feed matches %q", flagFeed)
		}
		best := matches[0].Name
		if best != flagFeed {
			fmt.Printf("Feed: %s\n", best)
		}
		narrowed := subs[:0:0]
		for _, s := range subs {
			if s.Title == best {
				narrowed = append(narrowed, s)
			}
		}
		subs = narrowed
	}

	return subs, nil
}
