// Package crawler performs bounded breadth-first crawls of a single host.
package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bull/grounded-rag/internal/domain"
	"github.com/bull/grounded-rag/internal/extract"
)

const (
	// DefaultMaxPages caps a crawl when the caller does not.
	DefaultMaxPages = 20

	// DefaultFetchTimeout bounds each page fetch.
	DefaultFetchTimeout = 30 * time.Second

	// maxBodyBytes bounds how much of a single page is read.
	maxBodyBytes = 10 << 20

	defaultUserAgent = "grounded-rag-crawler/0.1"
)

// DefaultBlockedExtensions are link targets that are never page content.
var DefaultBlockedExtensions = []string{
	"pdf", "jpg", "jpeg", "png", "gif", "svg", "webp", "mp4", "mp3", "zip", "rar", "doc", "docx",
}

// FailedPage records a page that was visited but could not be processed.
type FailedPage struct {
	URL    string
	Reason string
}

// Result is the outcome of one crawl.
type Result struct {
	Documents []domain.Document // Discovery (BFS) order
	Failed    []FailedPage
	Visited   int
}

// Crawler fetches pages one at a time in frontier order.
type Crawler struct {
	client    *http.Client
	limiter   *rate.Limiter
	blocked   map[string]struct{}
	userAgent string
	logger    *slog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithHTTPClient replaces the default client (30s timeout).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Crawler) {
		if client != nil {
			c.client = client
		}
	}
}

// WithRateLimit spaces fetches to at most rps requests per second. Zero or
// negative disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Crawler) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithBlockedExtensions replaces the blocked extension set. Extensions are
// matched case-insensitively, with or without a leading dot.
func WithBlockedExtensions(exts []string) Option {
	return func(c *Crawler) {
		c.blocked = extensionSet(exts)
	}
}

// WithUserAgent sets the User-Agent header sent with every fetch.
func WithUserAgent(ua string) Option {
	return func(c *Crawler) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger sets the logger used for per-page progress and failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Crawler.
func New(opts ...Option) *Crawler {
	c := &Crawler{
		client:    &http.Client{Timeout: DefaultFetchTimeout},
		limiter:   rate.NewLimiter(rate.Inf, 0),
		blocked:   extensionSet(DefaultBlockedExtensions),
		userAgent: defaultUserAgent,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Crawl walks the link graph rooted at seedURL breadth-first, staying on the
// seed's host, and returns at most maxPages documents. A page that fails to
// fetch or parse is logged and skipped; it never aborts the crawl.
func (c *Crawler) Crawl(ctx context.Context, seedURL string, maxPages int) (*Result, error) {
	seed, err := parseSeed(seedURL)
	if err != nil {
		return nil, err
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	seedStr := normalize(seed)
	queue := []string{seedStr}
	queued := map[string]struct{}{seedStr: {}}
	visited := make(map[string]struct{}, maxPages)
	result := &Result{}

	for len(queue) > 0 && len(visited) < maxPages {
		current := queue[0]
		queue = queue[1:]
		delete(queued, current)

		if _, seen := visited[current]; seen {
			continue
		}
		visited[current] = struct{}{}

		parsed, err := c.fetchPage(ctx, current)
		if err != nil {
			c.logger.WarnContext(ctx, "Failed to scrape page", "url", current, "error", err)
			result.Failed = append(result.Failed, FailedPage{URL: current, Reason: err.Error()})
			continue
		}

		for _, href := range parsed.Links {
			next, ok := c.resolve(current, href, seed.Host)
			if !ok {
				continue
			}
			if _, seen := visited[next]; seen {
				continue
			}
			if _, dup := queued[next]; dup {
				continue
			}
			if len(visited)+len(queue) >= maxPages {
				break
			}
			queue = append(queue, next)
			queued[next] = struct{}{}
		}

		result.Documents = append(result.Documents, extract.ToDocument(parsed.Page, domain.SourceURL))
		c.logger.DebugContext(ctx, "Scraped page", "url", current, "chars", len(parsed.Page.RawText), "links", len(parsed.Links))
	}

	result.Visited = len(visited)
	c.logger.InfoContext(ctx, "Crawl complete",
		"seed", seedStr,
		"pages", len(result.Documents),
		"failed", len(result.Failed),
		"visited", result.Visited,
	)
	return result, nil
}

// fetchPage performs the single GET for a page and parses it once.
func (c *Crawler) fetchPage(ctx context.Context, pageURL string) (*extract.ParsedPage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFetch, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrUpstreamFetch, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %s", domain.ErrUpstreamFetch, resp.Status)
	}
	ct := resp.Header.Get("Content-Type")
	if ct != "" && !isPageContent(ct) {
		return nil, fmt.Errorf("%w: unexpected content type %q", domain.ErrUpstreamFetch, ct)
	}

	parsed, err := extract.ParsePage(pageURL, ct, io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFetch, err)
	}
	return parsed, nil
}

// resolve turns href into an absolute URL on host. It reports false for
// malformed URLs, other hosts, non-http schemes and blocked extensions.
func (c *Crawler) resolve(base, href, host string) (string, bool) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	abs := baseURL.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	if !strings.EqualFold(abs.Host, host) {
		return "", false
	}
	if c.isBlocked(abs.Path) {
		return "", false
	}

	return normalize(abs), true
}

func (c *Crawler) isBlocked(p string) bool {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(p)), ".")
	if ext == "" {
		return false
	}
	_, blocked := c.blocked[ext]
	return blocked
}

func parseSeed(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: seed url is required", domain.ErrValidation)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid seed url %q: %v", domain.ErrValidation, raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: seed url must be an absolute http(s) url, got %q", domain.ErrValidation, raw)
	}
	return u, nil
}

// normalize drops the fragment, lower-cases the host and gives an empty path
// the root path, so "https://H" and "https://h/#top" are the same frontier
// entry.
func normalize(u *url.URL) string {
	u.Fragment = ""
	u.RawFragment = ""
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

func isPageContent(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch mediaType {
	case "text/html", "application/xhtml+xml", "text/plain":
		return true
	}
	return false
}

func extensionSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		if ext != "" {
			set[ext] = struct{}{}
		}
	}
	return set
}
