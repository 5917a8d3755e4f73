package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/feedgrep/feedgrep/internal/ai"
	"github.com/feedgrep/feedgrep/internal/config"
	"github.com/feedgrep/feedgrep/internal/feed"
)

// runDigest sends the filtered articles to the configured AI provider and
// saves the resulting report to a timestamped markdown file.
func runDigest(ctx context.Context, cfg *config.Config, articles []feed.Entry) error {
	if len(articles) == 0 {
		fmt.Println("Nothing to digest.")
		return nil
	}
	if !cfg.AIEnabled() {
		return fmt.Errorf("AI not configured: set ai.provider and an API key (or FEEDGREP_AI_KEY)")
	}

	summarizer, err := ai.New(cfg.AI, cfg.AIKey())
	if err != nil {
		return err
	}

	fmt.Printf("Sending %d article(s), about %d tokens...\n",
		len(articles), ai.EstimateTokens(articles))

	digest, err := summarizer.Digest(ctx, articles)
	if err != nil {
		return fmt.Errorf("generating digest: %w", err)
	}

	title, err := summarizer.Title(ctx, digest)
	if err != nil || title == "" {
		title = "News Digest"
	}

	path := fmt.Sprintf("digest_%s.md", time.Now().Format("20060102_150405"))
	body := fmt.Sprintf("# %s\n\n%s\n", title, strings.TrimSpace(digest))
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("saving digest: %w", err)
	}

	fmt.Printf("Digest saved to %s\n", path)
	return nil
}
