package config

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

// AIConfig selects the summarization provider.
type AIConfig struct {
	Provider string `yaml:"provider"` // "gemini" or "claude"
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
}

type Config struct {
	OPML          string            `yaml:"opml,omitempty"` // catalog path, auto-detected if empty
	CacheTTL      string            `yaml:"cache_ttl"`
	FetchTimeout  string            `yaml:"fetch_timeout"`
	GlobalTimeout string            `yaml:"global_timeout"`
	Concurrency   int               `yaml:"concurrency"`
	Window        string            `yaml:"window"`
	UserAgent     string            `yaml:"user_agent,omitempty"`
	URLFixes      map[string]string `yaml:"url_fixes,omitempty"`
	AI            *AIConfig         `yaml:"ai,omitempty"`
}

// AIEnabled returns true if AI is configured with a valid API key.
func (c *Config) AIEnabled() bool {
	if c.AI == nil {
		return false
	}
	key := c.AI.APIKey
	if key == "" {
		key = os.Getenv("FEEDGREP_AI_KEY")
	}
	return key != ""
}

// AIKey returns the resolved API key (config or env var).
func (c *Config) AIKey() string {
	if c.AI != nil && c.AI.APIKey != "" {
		return c.AI.APIKey
	}
	return os.Getenv("FEEDGREP_AI_KEY")
}

func (c *Config) CacheTTLDuration() time.Duration {
	return parseDurationOr(c.CacheTTL, 15*time.Minute)
}

func (c *Config) FetchTimeoutDuration() time.Duration {
	return parseDurationOr(c.FetchTimeout, 10*time.Second)
}

func (c *Config) GlobalTimeoutDuration() time.Duration {
	return parseDurationOr(c.GlobalTimeout, 2*time.Minute)
}

// WindowDuration is the article recency window. Supports "Nd" day syntax
// alongside regular Go durations.
func (c *Config) WindowDuration() time.Duration {
	if c.Window == "" {
		return 24 * time.Hour
	}
	if n := len(c.Window); n > 1 && c.Window[n-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(c.Window, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour
		}
	}
	return parseDurationOr(c.Window, 24*time.Hour)
}

func (c *Config) FetchConcurrency() int {
	if c.Concurrency < 1 {
		return 20
	}
	if c.Concurrency > 64 {
		return 64
	}
	return c.Concurrency
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "feedgrep", "config.yaml")
}

func CachePath() string {
	return filepath.Join(xdg.CacheHome, "feedgrep", "snapshots.db")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

func Load(path string) (*Config, error) {
	defaults, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Write defaults to config path on first run
			if err := writeDefaults(path); err != nil {
				// Non-fatal: just use embedded defaults
				return defaults, nil
			}
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

func validate(cfg *Config) error {
	for _, field := range []struct{ name, value string }{
		{"cache_ttl", cfg.CacheTTL},
		{"fetch_timeout", cfg.FetchTimeout},
		{"global_timeout", cfg.GlobalTimeout},
	} {
		if field.value == "" {
			continue
		}
		if _, err := time.ParseDuration(field.value); err != nil {
			return fmt.Errorf("%s: invalid duration %q: %w", field.name, field.value, err)
		}
	}
	if cfg.AI != nil {
		switch cfg.AI.Provider {
		case "", "gemini", "claude":
		default:
			return fmt.Errorf("ai.provider: unknown provider %q (valid: gemini, claude)", cfg.AI.Provider)
		}
	}
	return nil
}
