package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagConfig    string
	flagOPML      string
	flagCategory  string
	flagFeed      string
	flagLimit     int
	flagNoSummary bool
	flagDigest    bool
)

var rootCmd = &cobra.Command{
	Use:   "feedgrep",
	Short: "OPML-driven RSS/Atom reader for the terminal",
	Long: `feedgrep reads an OPML subscription catalog, fetches every feed
concurrently through a local snapshot cache, and prints the articles
published inside the recency window. Category and feed names are matched
fuzzily, so "feedgrep -c 05" or "feedgrep -f reuters" work.`,
	SilenceUsage: true,
	RunE:         runRead,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&flagOPML, "opml", "", "path to OPML catalog (default: auto-detect)")

	rootCmd.Flags().StringVarP(&flagCategory, "category", "c", "", "only feeds in this category (fuzzy)")
	rootCmd.Flags().StringVarP(&flagFeed, "feed", "f", "", "only this feed (fuzzy)")
	rootCmd.Flags().IntVar(&flagLimit, "limit", 0, "cap the number of articles shown")
	rootCmd.Flags().BoolVar(&flagNoSummary, "no-summary", false, "hide article summaries")
	rootCmd.Flags().BoolVar(&flagDigest, "digest", false, "send the articles to the configured AI for a digest")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(feedsCmd)
	rootCmd.AddCommand(cacheCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("feedgrep %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}
