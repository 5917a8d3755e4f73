// Package opml loads the subscription catalog from an OPML file and rewrites
// it when feeds are removed or their URLs fixed. Rewrites always target a new
// timestamped file; the source file is never modified in place.
package opml

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	gopml "github.com/gilliek/go-opml/opml"
)

// Subscription is one feed from the catalog. Immutable once loaded.
type Subscription struct {
	Title    string
	XMLURL   string
	HTMLURL  string
	Category string
}

// Catalog holds the parsed subscription list with category groupings.
// Subscriptions keep their document order.
type Catalog struct {
	Path string
	Subs []Subscription

	doc        *gopml.OPML
	byCategory map[string][]Subscription
}

// Load parses the OPML file at path into a Catalog.
func Load(path string) (*Catalog, error) {
	doc, err := gopml.NewOPMLFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("parsing OPML %s: %w", path, err)
	}

	c := &Catalog{
		Path:       path,
		doc:        doc,
		byCategory: make(map[string][]Subscription),
	}
	c.walk(doc.Body.Outlines, "")
	return c, nil
}

func (c *Catalog) walk(outlines []gopml.Outline, category string) {
	for _, o := range outlines {
		if strings.EqualFold(o.Type, "rss") {
			title := o.Title
			if title == "" {
				title = o.Text
			}
			sub := Subscription{
				Title:    title,
				XMLURL:   o.XMLURL,
				HTMLURL:  o.HTMLURL,
				Category: category,
			}
			c.Subs = append(c.Subs, sub)
			if category != "" {
				c.byCategory[category] = append(c.byCategory[category], sub)
			}
			continue
		}
		name := o.Text
		if name == "" {
			name = o.Title
		}
		c.walk(o.Outlines, name)
	}
}

// Categories returns all category names, sorted.
func (c *Catalog) Categories() []string {
	out := make([]string, 0, len(c.byCategory))
	for cat := range c.byCategory {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}

// ByCategory returns the subscriptions grouped under a category, in
// document order.
func (c *Catalog) ByCategory(category string) []Subscription {
	return c.byCategory[category]
}

// Titles returns every subscription title in document order, for fuzzy
// matching against feed names.
func (c *Catalog) Titles() []string {
	out := make([]string, 0, len(c.Subs))
	for _, s := range c.Subs {
		out = append(out, s.Title)
	}
	return out
}

// WriteCleaned writes a copy of the catalog without the feeds named in
// remove (matched by title or URL) and returns the new file path and the
// number of feeds dropped.
func (c *Catalog) WriteCleaned(remove map[string]bool) (string, int, error) {
	removed := pruneOutlines(&c.doc.Body.Outlines, remove)
	path := c.write("cleaned")
	return path, removed, c.save(path)
}

// WriteFixed writes a copy of the catalog with feed URLs rewritten per
// fixes (old URL -> new URL) and returns the new file path and the number
// of URLs changed.
func (c *Catalog) WriteFixed(fixes map[string]string) (string, int, error) {
	fixed := fixOutlines(c.doc.Body.Outlines, fixes)
	path := c.write("fixed")
	return path, fixed, c.save(path)
}

func (c *Catalog) write(suffix string) string {
	dir := filepath.Dir(c.Path)
	stamp := time.Now().Format("20060102_150405")
	return filepath.Join(dir, fmt.Sprintf("all_feeds_%s_%s.xml", suffix, stamp))
}

func (c *Catalog) save(path string) error {
	xml, err := c.doc.XML()
	if err != nil {
		return fmt.Errorf("serializing OPML: %w", err)
	}
	if err := os.WriteFile(path, []byte(xml), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func pruneOutlines(outlines *[]gopml.Outline, remove map[string]bool) int {
	removed := 0
	kept := (*outlines)[:0]
	for i := range *outlines {
		o := &(*outlines)[i]
		if strings.EqualFold(o.Type, "rss") {
			if remove[o.Title] || remove[o.Text] || remove[o.XMLURL] {
				removed++
				continue
			}
		} else {
			removed += pruneOutlines(&o.Outlines, remove)
		}
		kept = append(kept, *o)
	}
	*outlines = kept
	return removed
}

func fixOutlines(outlines []gopml.Outline, fixes map[string]string) int {
	fixed := 0
	for i := range outlines {
		o := &outlines[i]
		if strings.EqualFold(o.Type, "rss") {
			if repl, ok := fixes[o.XMLURL]; ok {
				o.XMLURL = repl
				fixed++
			}
			continue
		}
		fixed += fixOutlines(o.Outlines, fixes)
	}
	return fixed
}

var catalogFilePattern = regexp.MustCompile(`^all_feeds_.*\.xml$`)

// FindCatalogFile auto-detects the catalog in dir: the newest
// all_feeds_*.xml wins, otherwise any *.xml with "feed" in its name.
func FindCatalogFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", dir, err)
	}

	var stamped []string
	var fallback string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if catalogFilePattern.MatchString(name) {
			stamped = append(stamped, name)
			continue
		}
		if fallback == "" && strings.HasSuffix(name, ".xml") && strings.Contains(strings.ToLower(name), "feed") {
			fallback = name
		}
	}
	if len(stamped) > 0 {
		// Timestamps in the name sort lexically; newest last.
		sort.Strings(stamped)
		return filepath.Join(dir, stamped[len(stamped)-1]), nil
	}
	if fallback != "" {
		return filepath.Join(dir, fallback), nil
	}
	return "", fmt.Errorf("no OPML file found in %s", dir)
}
