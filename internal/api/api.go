// Package api serves the ingestion and query flows over HTTP as JSON.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/bull/grounded-rag/internal/indexer"
	"github.com/bull/grounded-rag/internal/rag"
)

// DefaultMaxUploadBytes caps uploads when Options does not.
const DefaultMaxUploadBytes = 32 << 20

// Service is the part of rag.Service the HTTP layer needs.
type Service interface {
	IngestFile(ctx context.Context, filename string, data []byte) (*indexer.IngestResult, error)
	IngestURL(ctx context.Context, seedURL string, maxPages int) (*indexer.IngestResult, error)
	Query(ctx context.Context, input string) (*rag.QueryResult, error)
	Health(ctx context.Context) error
}

// Options configures the HTTP handlers.
type Options struct {
	// Production withholds raw error detail from responses.
	Production     bool
	MaxUploadBytes int64
	Logger         *slog.Logger
}

type handlers struct {
	svc            Service
	production     bool
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewRouter registers every route on a new ServeMux. Callers may mount more
// handlers (such as /mcp) on the returned mux.
func NewRouter(svc Service, opts Options) *http.ServeMux {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	h := &handlers{
		svc:            svc,
		production:     opts.Production,
		maxUploadBytes: opts.MaxUploadBytes,
		logger:         opts.Logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/ingest/file", h.ingestFile)
	mux.HandleFunc("POST /api/ingest/url", h.ingestURL)
	mux.HandleFunc("GET /api/query", h.query)
	mux.HandleFunc("GET /health", NewHealthHandler(svc))
	mux.HandleFunc("GET /{$}", NewLandingHandler())
	return mux
}
