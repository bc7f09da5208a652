package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/grounded-rag/internal/domain"
)

// site serves a fixed link graph and counts requests per path.
type site struct {
	mu    sync.Mutex
	pages map[string]string // path -> html body
	hits  map[string]int
}

func newSite(pages map[string]string) *site {
	return &site{pages: pages, hits: make(map[string]int)}
}

func (s *site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	s.mu.Unlock()

	body, ok := s.pages[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, body)
}

func (s *site) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func page(title string, links ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<html><head><title>%s</title></head><body><p>content of %s</p>", title, title)
	for _, l := range links {
		fmt.Fprintf(&b, `<a href="%s">link</a>`, l)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func urls(docs []domain.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Metadata.URL
	}
	return out
}

func TestCrawl_SinglePage(t *testing.T) {
	s := newSite(map[string]string{"/": page("Home")})
	srv := httptest.NewServer(s)
	defer srv.Close()

	res, err := New().Crawl(context.Background(), srv.URL, 20)
	require.NoError(t, err)

	require.Len(t, res.Documents, 1)
	doc := res.Documents[0]
	assert.Equal(t, srv.URL+"/", doc.Metadata.URL)
	assert.Equal(t, "Home", doc.Metadata.Title)
	assert.Equal(t, domain.SourceURL, doc.Metadata.Source)
	assert.Equal(t, "content of Home", doc.Content)
	assert.Empty(t, res.Failed)
	assert.Equal(t, 1, res.Visited)
}

func TestCrawl_CycleVisitsEachPageOnce(t *testing.T) {
	s := newSite(map[string]string{
		"/a": page("A", "/b"),
		"/b": page("B", "/a", "/a#top"),
	})
	srv := httptest.NewServer(s)
	defer srv.Close()

	res, err := New().Crawl(context.Background(), srv.URL+"/a", 20)
	require.NoError(t, err)

	assert.Equal(t, []string{srv.URL + "/a", srv.URL + "/b"}, urls(res.Documents))
	assert.Equal(t, 1, s.hitCount("/a"))
	assert.Equal(t, 1, s.hitCount("/b"))
	assert.Equal(t, 2, res.Visited)
}

func TestCrawl_BreadthFirstOrder(t *testing.T) {
	s := newSite(map[string]string{
		"/":   page("Root", "/a", "/b"),
		"/a":  page("A", "/a1"),
		"/b":  page("B", "/b1"),
		"/a1": page("A1"),
		"/b1": page("B1"),
	})
	srv := httptest.NewServer(s)
	defer srv.Close()

	res, err := New().Crawl(context.Background(), srv.URL+"/", 20)
	require.NoError(t, err)

	want := []string{srv.URL + "/", srv.URL + "/a", srv.URL + "/b", srv.URL + "/a1", srv.URL + "/b1"}
	assert.Equal(t, want, urls(res.Documents))
}

func TestCrawl_RespectsMaxPages(t *testing.T) {
	pages := map[string]string{}
	var links []string
	for i := 0; i < 30; i++ {
		links = append(links, fmt.Sprintf("/p%d", i))
	}
	pages["/"] = page("Root", links...)
	for i := 0; i < 30; i++ {
		// every page links to every other page
		pages[fmt.Sprintf("/p%d", i)] = page(fmt.Sprintf("P%d", i), links...)
	}
	s := newSite(pages)
	srv := httptest.NewServer(s)
	defer srv.Close()

	for _, max := range []int{1, 3, 5} {
		res, err := New().Crawl(context.Background(), srv.URL+"/", max)
		require.NoError(t, err)
		assert.Len(t, res.Documents, max, "maxPages=%d", max)
		assert.LessOrEqual(t, res.Visited, max)
	}
}

func TestCrawl_StaysOnSeedHostAndSkipsBlockedExtensions(t *testing.T) {
	other := httptest.NewServer(newSite(map[string]string{"/": page("Other")}))
	defer other.Close()

	s := newSite(map[string]string{
		"/": page("Root",
			other.URL+"/",
			"/manual.pdf",
			"/photo.PNG",
			"/bundle.zip?download=1",
			"mailto:team@example.com",
			"javascript:void(0)",
			"http://[::1]:namedport/bad",
			"/ok",
		),
		"/ok": page("OK"),
	})
	srv := httptest.NewServer(s)
	defer srv.Close()

	res, err := New().Crawl(context.Background(), srv.URL+"/", 20)
	require.NoError(t, err)

	assert.Equal(t, []string{srv.URL + "/", srv.URL + "/ok"}, urls(res.Documents))
	assert.Zero(t, s.hitCount("/manual.pdf"))
	assert.Zero(t, s.hitCount("/photo.PNG"))
	assert.Zero(t, s.hitCount("/bundle.zip"))
}

func TestCrawl_FailedPageDoesNotAbort(t *testing.T) {
	s := newSite(map[string]string{
		"/":      page("Root", "/gone", "/alive"),
		"/alive": page("Alive"),
	})
	srv := httptest.NewServer(s)
	defer srv.Close()

	res, err := New().Crawl(context.Background(), srv.URL+"/", 20)
	require.NoError(t, err)

	assert.Equal(t, []string{srv.URL + "/", srv.URL + "/alive"}, urls(res.Documents))
	require.Len(t, res.Failed, 1)
	assert.Equal(t, srv.URL+"/gone", res.Failed[0].URL)
	assert.Contains(t, res.Failed[0].Reason, "404")
	assert.Equal(t, 3, res.Visited)
}

func TestCrawl_SkipsNonHTMLResponses(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, page("Root", "/data"))
	})
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte{0, 1, 2})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	res, err := New().Crawl(context.Background(), srv.URL+"/", 20)
	require.NoError(t, err)
	assert.Len(t, res.Documents, 1)
	assert.Len(t, res.Failed, 1)
}

func TestCrawl_InvalidSeed(t *testing.T) {
	for _, seed := range []string{"", "   ", "not a url", "/relative", "ftp://example.com/"} {
		_, err := New().Crawl(context.Background(), seed, 5)
		assert.ErrorIs(t, err, domain.ErrValidation, "seed %q", seed)
	}
}

func TestCrawl_CustomBlockedExtensions(t *testing.T) {
	s := newSite(map[string]string{
		"/":         page("Root", "/feed.xml", "/doc.pdf"),
		"/feed.xml": page("Feed"),
		"/doc.pdf":  page("Doc"),
	})
	srv := httptest.NewServer(s)
	defer srv.Close()

	c := New(WithBlockedExtensions([]string{".XML"}))
	res, err := c.Crawl(context.Background(), srv.URL+"/", 20)
	require.NoError(t, err)

	assert.Equal(t, []string{srv.URL + "/", srv.URL + "/doc.pdf"}, urls(res.Documents))
}

func TestCrawl_DecodesLatin1Pages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		w.Write([]byte("<html><head><title>Caf\xe9</title></head><body><p>Men\xfc du jour</p></body></html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	res, err := New().Crawl(context.Background(), srv.URL+"/", 5)
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)

	doc := res.Documents[0]
	assert.Equal(t, "Café", doc.Metadata.Title)
	assert.Equal(t, "Menü du jour", doc.Content)
	assert.True(t, utf8.ValidString(doc.Metadata.Title))
	assert.True(t, utf8.ValidString(doc.Content))
}

func TestCrawl_OnlyPageContentTypes(t *testing.T) {
	types := map[string]string{
		"/style.css": "text/css",
		"/app.js":    "text/javascript",
		"/notes":     "text/plain; charset=utf-8",
		"/page":      "application/xhtml+xml",
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, page("Root", "/style.css", "/app.js", "/notes", "/page"))
	})
	for path, ct := range types {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", ct)
			fmt.Fprint(w, "body of "+r.URL.Path)
		})
	}
	srv := httptest.NewServer(mux)
	defer srv.Close()

	res, err := New().Crawl(context.Background(), srv.URL+"/", 20)
	require.NoError(t, err)

	assert.Equal(t, []string{srv.URL + "/", srv.URL + "/notes", srv.URL + "/page"}, urls(res.Documents))

	var failed []string
	for _, f := range res.Failed {
		failed = append(failed, f.URL)
	}
	assert.ElementsMatch(t, []string{srv.URL + "/style.css", srv.URL + "/app.js"}, failed)
}

func TestResolve_HostIsCaseInsensitive(t *testing.T) {
	c := New()

	got, ok := c.resolve("https://Example.com/docs/", "https://example.com/x#top", "Example.com")
	require.True(t, ok)
	assert.Equal(t, "https://example.com/x", got)

	got, ok = c.resolve("https://example.com/", "/Guide", "EXAMPLE.COM")
	require.True(t, ok)
	assert.Equal(t, "https://example.com/Guide", got)

	_, ok = c.resolve("https://example.com/", "https://other.com/", "example.com")
	assert.False(t, ok)
}
