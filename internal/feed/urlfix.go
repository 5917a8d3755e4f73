package feed

import "strings"

// Migrations maps an old feed host (or URL fragment) to its replacement.
// Used for the retry-with-substitution step in the fetcher and for fix
// suggestions in health checks.
type Migrations map[string]string

// defaultMigrations covers outlets that moved domains and left their old
// feed URLs dead or broken.
var defaultMigrations = Migrations{
	"newsrss.bbc.co.uk":           "feeds.bbci.co.uk",
	"www.physorg.com":             "phys.org",
	"rss.dw-world.de":             "rss.dw.com",
	"feeds.christianitytoday.com": "www.christianitytoday.com/feeds",
}

// DefaultMigrations returns a copy of the built-in migration table,
// optionally merged with extra entries (e.g. from config).
func DefaultMigrations(extra map[string]string) Migrations {
	m := make(Migrations, len(defaultMigrations)+len(extra))
	for k, v := range defaultMigrations {
		m[k] = v
	}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

// Lookup returns the corrected URL for rawURL if any migration applies.
// Pure function; called at most once per fetch attempt.
func (m Migrations) Lookup(rawURL string) (string, bool) {
	for old, repl := range m {
		if strings.Contains(rawURL, old) {
			return strings.Replace(rawURL, old, repl, 1), true
		}
	}
	return "", false
}
