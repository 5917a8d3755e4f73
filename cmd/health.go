package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/feedgrep/feedgrep/internal/config"
	"github.com/feedgrep/feedgrep/internal/health"
	"github.com/feedgrep/feedgrep/internal/render"
)

var (
	flagHealthFix     bool
	flagHealthWrite   bool
	flagHealthExport  string
	flagRemoveDefunct bool
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check every feed in the catalog and report problems",
	Long: `Fetch every subscription once and classify the outcome: healthy,
timeout, SSL error, HTTP error, parse error, or other. With --fix, known URL
migrations are suggested for failing feeds; --fix --write saves a catalog
copy with the fixed URLs, and --remove-defunct saves a copy without the
failing feeds. The original catalog file is never modified.`,
	RunE: runHealth,
}

func init() {
	healthCmd.Flags().BoolVar(&flagHealthFix, "fix", false, "suggest replacement URLs for failing feeds")
	healthCmd.Flags().BoolVar(&flagHealthWrite, "write", false, "write a catalog copy with suggested fixes applied (requires --fix)")
	healthCmd.Flags().StringVar(&flagHealthExport, "export", "", "write the report to FILE (.json for JSON, else CSV)")
	healthCmd.Flags().BoolVar(&flagRemoveDefunct, "remove-defunct", false, "write a catalog copy without the failing feeds")
}

func runHealth(cmd *cobra.Command, args []string) error {
	if flagHealthWrite && !flagHealthFix {
		return fmt.Errorf("--write requires --fix")
	}

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	catalog, err := openCatalog(cfg)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	coord, migrations, cleanup := newCoordinator(cfg)
	defer cleanup()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.GlobalTimeoutDuration())
	defer cancel()

	checker := health.NewChecker(coord, migrations, cfg.WindowDuration())
	records := checker.Check(ctx, catalog.Subs, flagHealthFix)

	fmt.Print(render.HealthReport(records))

	if flagHealthExport != "" {
		if err := exportReport(flagHealthExport, records); err != nil {
			return err
		}
		fmt.Printf("Report exported to %s\n", flagHealthExport)
	}

	if flagHealthWrite {
		fixes := health.Fixable(records)
		if len(fixes) == 0 {
			fmt.Println("No fixable feeds.")
		} else {
			path, n, err := catalog.WriteFixed(fixes)
			if err != nil {
				return fmt.Errorf("writing fixed catalog: %w", err)
			}
			fmt.Printf("Fixed %d URL(s), catalog saved to %s\n", n, path)
		}
	}

	if flagRemoveDefunct {
		defunct := health.Defunct(records)
		if len(defunct) == 0 {
			fmt.Println("No defunct feeds.")
		} else {
			path, n, err := catalog.WriteCleaned(defunct)
			if err != nil {
				return fmt.Errorf("writing cleaned catalog: %w", err)
			}
			fmt.Printf("Removed %d feed(s), catalog saved to %s\n", n, path)
		}
	}

	return nil
}

func exportReport(path string, records []health.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if strings.HasSuffix(strings.ToLower(path), ".json") {
		return health.WriteJSON(f, records)
	}
	return health.WriteCSV(f, records)
}
