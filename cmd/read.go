package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feedgrep/feedgrep/internal/config"
	"github.com/feedgrep/feedgrep/internal/feed"
	"github.com/feedgrep/feedgrep/internal/render"
)

func runRead(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	catalog, err := openCatalog(cfg)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	subs, err := resolveSubscriptions(catalog)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		fmt.Println("No subscriptions selected.")
		return nil
	}

	coord, _, cleanup := newCoordinator(cfg)
	defer cleanup()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.GlobalTimeoutDuration())
	defer cancel()

	snaps := coord.FetchAll(ctx, subs)
	articles := feed.SelectRecent(subs, snaps, cfg.WindowDuration(), flagLimit)

	fmt.Print(render.Articles(articles, !flagNoSummary))

	if flagDigest {
		return runDigest(cmd.Context(), cfg, articles)
	}
	return nil
}
