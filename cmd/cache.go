package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feedgrep/feedgrep/internal/cache"
	"github.com/feedgrep/feedgrep/internal/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the local snapshot cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove expired snapshots from the cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := cache.Open(config.CachePath())
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		defer db.Close()

		deleted, err := db.Purge()
		if err != nil {
			return fmt.Errorf("purging: %w", err)
		}

		if deleted == 0 {
			fmt.Println("Nothing to purge.")
		} else {
			fmt.Printf("Purged %d expired snapshot(s).\n", deleted)
		}
		return nil
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath := config.CachePath()
		db, err := cache.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		defer db.Close()

		count, size, err := db.Stats(dbPath)
		if err != nil {
			return fmt.Errorf("reading stats: %w", err)
		}

		fmt.Printf("Cache: %s\n", dbPath)
		fmt.Printf("Snapshots: %d\n", count)
		fmt.Printf("Size: %s\n", formatBytes(size))
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cachePurgeCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
