package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feedgrep/feedgrep/internal/config"
	"github.com/feedgrep/feedgrep/internal/feed"
	"github.com/feedgrep/feedgrep/internal/opml"
	"github.com/feedgrep/feedgrep/internal/render"
)

var flagCounts bool

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List catalog categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, catalog, err := loadForListing()
		if err != nil {
			return err
		}

		var counts map[string]int
		if flagCounts {
			snaps, err := fetchForCounts(cmd.Context(), cfg, catalog.Subs)
			if err != nil {
				return err
			}
			counts = render.CategoryCounts(catalog.Subs, snaps, cfg.WindowDuration())
		}

		fmt.Print(render.Categories(catalog.Categories(), counts, flagCounts))
		return nil
	},
}

var feedsCmd = &cobra.Command{
	Use:   "feeds",
	Short: "List subscribed feeds grouped by category",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, catalog, err := loadForListing()
		if err != nil {
			return err
		}

		var counts map[string]int
		if flagCounts {
			snaps, err := fetchForCounts(cmd.Context(), cfg, catalog.Subs)
			if err != nil {
				return err
			}
			counts = render.FeedCounts(catalog.Subs, snaps, cfg.WindowDuration())
		}

		fmt.Print(render.Feeds(render.SortByCategory(catalog.Subs), counts, flagCounts))
		return nil
	},
}

func init() {
	categoriesCmd.Flags().BoolVar(&flagCounts, "counts", false, "fetch feeds and show recent-article counts")
	feedsCmd.Flags().BoolVar(&flagCounts, "counts", false, "fetch feeds and show recent-article counts")
}

func loadForListing() (*config.Config, *opml.Catalog, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	catalog, err := openCatalog(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("loading catalog: %w", err)
	}
	return cfg, catalog, nil
}

func fetchForCounts(ctx context.Context, cfg *config.Config, subs []opml.Subscription) (map[string]feed.Snapshot, error) {
	coord, _, cleanup := newCoordinator(cfg)
	defer cleanup()

	ctx, cancel := context.WithTimeout(ctx, cfg.GlobalTimeoutDuration())
	defer cancel()

	return coord.FetchAll(ctx, subs), nil
}
