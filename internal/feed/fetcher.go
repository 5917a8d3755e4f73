package feed

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/feedgrep/feedgrep/internal/opml"
)

const (
	// DefaultTTL is how long a cached snapshot stays valid.
	DefaultTTL = 15 * time.Minute

	// DefaultTimeout bounds a single fetch attempt.
	DefaultTimeout = 10 * time.Second

	// DefaultUserAgent is browser-like to avoid bot-detection 403s.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// maxFeedBytes caps the response body read during parsing.
	maxFeedBytes = 5 << 20
)

// Options configures a Fetcher. Zero values fall back to defaults; a nil
// Store disables caching.
type Options struct {
	Store      Store
	Migrations Migrations
	TTL        time.Duration
	Timeout    time.Duration
	UserAgent  string
}

// Fetcher retrieves and parses one feed at a time, consulting the snapshot
// store first and applying retry-with-URL-substitution on SSL and HTTP
// failures.
type Fetcher struct {
	client     *http.Client
	parser     *gofeed.Parser
	store      Store
	migrations Migrations
	ttl        time.Duration
	timeout    time.Duration
	userAgent  string
}

func NewFetcher(opts Options) *Fetcher {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Migrations == nil {
		opts.Migrations = DefaultMigrations(nil)
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: opts.Timeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: opts.Timeout,
	}
	return &Fetcher{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("stopped after 5 redirects")
				}
				return nil
			},
		},
		parser:     gofeed.NewParser(),
		store:      opts.Store,
		migrations: opts.Migrations,
		ttl:        opts.TTL,
		timeout:    opts.Timeout,
		userAgent:  opts.UserAgent,
	}
}

// Fetch returns a snapshot for the subscription. It never returns an error:
// terminal failures are classified into the snapshot's Err field. Successful
// snapshots are stored in the cache before returning.
func (f *Fetcher) Fetch(ctx context.Context, sub opml.Subscription) Snapshot {
	url := sub.XMLURL

	if f.store != nil {
		if snap, ok := f.store.Get(url); ok {
			return snap
		}
	}

	snap := Snapshot{URL: url, FetchedAt: time.Now()}

	// Keyword-monitoring entries and mail addresses sometimes end up in
	// OPML files; they are not fetchable feeds.
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") || strings.Contains(url, "@") {
		snap.Err = &FetchError{Kind: KindOther, Message: "invalid URL format (not HTTP/HTTPS)"}
		return snap
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	body, ferr := f.attempt(ctx, url)
	if ferr != nil && (ferr.Kind == KindSSL || ferr.Kind == KindHTTP) {
		// Initial -> RetriedWithFix: one substitution attempt, at most.
		if fixed, ok := f.migrations.Lookup(url); ok {
			if fixedBody, fixedErr := f.attempt(ctx, fixed); fixedErr == nil {
				body, ferr = fixedBody, nil
			}
		}
	}
	if ferr != nil {
		snap.Err = ferr
		return snap
	}

	parsed, err := f.parser.ParseString(string(body))
	if err != nil {
		snap.Err = &FetchError{Kind: KindParse, Message: err.Error()}
		return snap
	}

	snap.Entries = entriesFrom(parsed, sub)

	if f.store != nil {
		// Fail open: an unwritable cache degrades to no-caching.
		_ = f.store.Put(url, snap, f.ttl)
	}
	return snap
}

// attempt performs one HTTP GET and returns the body or a classified error.
func (f *Fetcher) attempt(ctx context.Context, url string) ([]byte, *FetchError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindOther, Message: err.Error()}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Kind: KindHTTP, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, classify(err)
	}
	return body, nil
}

// classify maps a transport-level error into the ErrorKind taxonomy.
func classify(err error) *FetchError {
	var certErr *tls.CertificateVerificationError
	var hostErr x509.HostnameError
	var authErr x509.UnknownAuthorityError
	var invErr x509.CertificateInvalidError
	switch {
	case errors.As(err, &certErr), errors.As(err, &hostErr),
		errors.As(err, &authErr), errors.As(err, &invErr):
		return &FetchError{Kind: KindSSL, Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return &FetchError{Kind: KindTimeout, Message: err.Error()}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{Kind: KindTimeout, Message: err.Error()}
	}
	return &FetchError{Kind: KindOther, Message: err.Error()}
}

// entriesFrom converts parsed items, populating fields defensively: nothing
// the parser returns is assumed present.
func entriesFrom(parsed *gofeed.Feed, sub opml.Subscription) []Entry {
	feedTitle := sub.Title
	if feedTitle == "" {
		feedTitle = parsed.Title
	}

	entries := make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		var published *time.Time
		if item.PublishedParsed != nil {
			published = item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			published = item.UpdatedParsed
		}

		summary := item.Description
		if summary == "" {
			summary = item.Content
		}
		summary = truncate(stripHTML(summary), 300)

		entries = append(entries, Entry{
			Title:     item.Title,
			Link:      item.Link,
			Published: published,
			Summary:   summary,
			FeedTitle: feedTitle,
			Category:  sub.Category,
		})
	}
	return entries
}
