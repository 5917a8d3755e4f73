package opml

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleOPML = `<?xml version="1.0" encoding="UTF-8"?>
<opml version="2.0">
  <head><title>Feeds</title></head>
  <body>
    <outline text="05 Higher Education" title="05 Higher Education">
      <outline type="rss" text="Chronicle" title="Chronicle" xmlUrl="https://chronicle.example/feed" htmlUrl="https://chronicle.example"/>
      <outline type="rss" text="Inside HE" title="Inside HE" xmlUrl="https://insidehe.example/rss"/>
    </outline>
    <outline text="10 Reuters/AP">
      <outline type="rss" text="Reuters World" xmlUrl="https://reuters.example/world.rss"/>
    </outline>
    <outline type="rss" text="Uncategorized Feed" title="Uncategorized Feed" xmlUrl="https://solo.example/feed"/>
  </body>
</opml>`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "all_feeds_20240101_000000.xml")
	if err := os.WriteFile(path, []byte(sampleOPML), 0o644); err != nil {
		t.Fatalf("writing sample: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	c, err := Load(writeSample(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Subs) != 4 {
		t.Fatalf("expected 4 subscriptions, got %d", len(c.Subs))
	}
	if c.Subs[0].Title != "Chronicle" || c.Subs[0].Category != "05 Higher Education" {
		t.Errorf("unexpected first subscription: %+v", c.Subs[0])
	}
	// title attribute missing falls back to text
	if c.Subs[2].Title != "Reuters World" {
		t.Errorf("expected text fallback, got %q", c.Subs[2].Title)
	}
	if c.Subs[3].Category != "" {
		t.Errorf("top-level feed should have no category, got %q", c.Subs[3].Category)
	}
}

func TestCategories(t *testing.T) {
	c, err := Load(writeSample(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cats := c.Categories()
	if len(cats) != 2 || cats[0] != "05 Higher Education" || cats[1] != "10 Reuters/AP" {
		t.Errorf("unexpected categories: %v", cats)
	}
	if got := len(c.ByCategory("05 Higher Education")); got != 2 {
		t.Errorf("expected 2 feeds in category, got %d", got)
	}
}

func TestWriteCleanedByURL(t *testing.T) {
	c, err := Load(writeSample(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	path, removed, err := c.WriteCleaned(map[string]bool{"https://insidehe.example/rss": true})
	if err != nil {
		t.Fatalf("write cleaned: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	for _, s := range reloaded.Subs {
		if s.XMLURL == "https://insidehe.example/rss" {
			t.Error("URL-keyed removal left the feed in place")
		}
	}
}

func TestWriteCleaned(t *testing.T) {
	c, err := Load(writeSample(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	path, removed, err := c.WriteCleaned(map[string]bool{"Inside HE": true})
	if err != nil {
		t.Fatalf("write cleaned: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(reloaded.Subs) != 3 {
		t.Errorf("expected 3 subscriptions after cleaning, got %d", len(reloaded.Subs))
	}
	for _, s := range reloaded.Subs {
		if s.Title == "Inside HE" {
			t.Error("removed feed still present")
		}
	}
}

func TestWriteFixed(t *testing.T) {
	c, err := Load(writeSample(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	path, fixed, err := c.WriteFixed(map[string]string{
		"https://insidehe.example/rss": "https://inside-he.example/rss",
	})
	if err != nil {
		t.Fatalf("write fixed: %v", err)
	}
	if fixed != 1 {
		t.Errorf("expected 1 fixed URL, got %d", fixed)
	}
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	found := false
	for _, s := range reloaded.Subs {
		if s.XMLURL == "https://inside-he.example/rss" {
			found = true
		}
		if s.XMLURL == "https://insidehe.example/rss" {
			t.Error("old URL still present after fix")
		}
	}
	if !found {
		t.Error("fixed URL not found in rewritten catalog")
	}
}

func TestFindCatalogFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"all_feeds_20240101_000000.xml",
		"all_feeds_20250601_120000.xml",
		"notes.txt",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(sampleOPML), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := FindCatalogFile(dir)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !strings.HasSuffix(got, "all_feeds_20250601_120000.xml") {
		t.Errorf("expected newest stamped file, got %s", got)
	}
}

func TestFindCatalogFileFallback(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "my_feeds.xml"), []byte(sampleOPML), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := FindCatalogFile(dir)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !strings.HasSuffix(got, "my_feeds.xml") {
		t.Errorf("expected fallback file, got %s", got)
	}

	empty := t.TempDir()
	if _, err := FindCatalogFile(empty); err == nil {
		t.Error("expected error for empty directory")
	}
}
