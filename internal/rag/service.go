// Package rag exposes ingestion and question answering over one collection.
// Transports (HTTP, MCP, CLI) call into a Service and nothing else.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bull/grounded-rag/internal/answer"
	"github.com/bull/grounded-rag/internal/crawler"
	"github.com/bull/grounded-rag/internal/domain"
	"github.com/bull/grounded-rag/internal/indexer"
	"github.com/bull/grounded-rag/internal/retriever"
	"github.com/bull/grounded-rag/internal/storage"
)

// Deps holds the components a Service is built from. They are constructed
// once per process and shared across requests.
type Deps struct {
	Pipeline  *indexer.Pipeline
	Retriever *retriever.Retriever
	Composer  *answer.Composer
	Store     storage.VectorStore

	// EmbeddingModel is the model used for queries. Matches stored under a
	// different model are reported in the log.
	EmbeddingModel string
	// K is the number of chunks retrieved per query.
	K int
	// MaxPages caps URL ingestion when the request does not.
	MaxPages int
}

// Service runs the ingestion and query flows.
type Service struct {
	deps       Deps
	collection string
	logger     *slog.Logger
}

// QueryResult is the answer to a query with one source per retrieved chunk.
type QueryResult struct {
	Answer  string
	Sources []answer.Source
	Matches []domain.Match
}

// Status describes the collection backing the service.
type Status struct {
	Collection     string `json:"collection"`
	Exists         bool   `json:"exists"`
	Chunks         uint64 `json:"chunks"`
	EmbeddingModel string `json:"embedding_model"`
}

// New creates a Service.
func New(deps Deps, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.K <= 0 {
		deps.K = retriever.DefaultK
	}
	if deps.MaxPages <= 0 {
		deps.MaxPages = crawler.DefaultMaxPages
	}
	return &Service{
		deps:       deps,
		collection: deps.Pipeline.Collection(),
		logger:     logger,
	}
}

// Collection returns the collection name.
func (s *Service) Collection() string {
	return s.collection
}

// IngestFile indexes an uploaded file.
func (s *Service) IngestFile(ctx context.Context, filename string, data []byte) (*indexer.IngestResult, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no file uploaded", domain.ErrValidation)
	}
	return s.deps.Pipeline.IngestFile(ctx, filename, data)
}

// IngestURL crawls seedURL and indexes the pages found. A non-positive
// maxPages uses the configured default.
func (s *Service) IngestURL(ctx context.Context, seedURL string, maxPages int) (*indexer.IngestResult, error) {
	seedURL = strings.TrimSpace(seedURL)
	if seedURL == "" {
		return nil, fmt.Errorf("%w: missing url", domain.ErrValidation)
	}
	if maxPages <= 0 {
		maxPages = s.deps.MaxPages
	}
	return s.deps.Pipeline.IngestURL(ctx, seedURL, maxPages)
}

// Search returns the k chunks most similar to query. A non-positive k uses
// the configured default.
func (s *Service) Search(ctx context.Context, query string, k int) ([]domain.Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: missing query", domain.ErrValidation)
	}
	if k <= 0 {
		k = s.deps.K
	}

	matches, err := s.deps.Retriever.Retrieve(ctx, query, k, s.collection)
	if err != nil {
		return nil, err
	}
	s.checkEmbeddingModel(ctx, matches)
	return matches, nil
}

// Query retrieves context for input and composes a grounded answer. Empty
// input is rejected before any store or model call.
func (s *Service) Query(ctx context.Context, input string) (*QueryResult, error) {
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("%w: missing 'input' query parameter", domain.ErrValidation)
	}

	matches, err := s.Search(ctx, input, s.deps.K)
	if err != nil {
		return nil, err
	}

	ans, err := s.deps.Composer.Compose(ctx, input, matches)
	if err != nil {
		return nil, err
	}

	return &QueryResult{
		Answer:  ans.Text,
		Sources: ans.Sources,
		Matches: matches,
	}, nil
}

// Status reports whether the collection exists and how many chunks it holds.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	st := &Status{Collection: s.collection, EmbeddingModel: s.deps.EmbeddingModel}

	exists, err := s.deps.Store.CollectionExists(ctx, s.collection)
	if err != nil {
		return nil, err
	}
	st.Exists = exists
	if !exists {
		return st, nil
	}

	n, err := s.deps.Store.Count(ctx, s.collection)
	if err != nil {
		return nil, err
	}
	st.Chunks = n
	return st, nil
}

// Reset removes every chunk from the collection.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.deps.Store.ClearCollection(ctx, s.collection); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Collection cleared", "collection", s.collection)
	return nil
}

// Health checks the vector store.
func (s *Service) Health(ctx context.Context) error {
	return s.deps.Store.Health(ctx)
}

// checkEmbeddingModel warns when chunks were embedded with another model;
// their scores are not comparable with the query vector.
func (s *Service) checkEmbeddingModel(ctx context.Context, matches []domain.Match) {
	if s.deps.EmbeddingModel == "" {
		return
	}
	for _, m := range matches {
		if m.EmbeddingModel != "" && m.EmbeddingModel != s.deps.EmbeddingModel {
			s.logger.WarnContext(ctx, "Embedding model mismatch",
				"collection", s.collection,
				"stored", m.EmbeddingModel,
				"query", s.deps.EmbeddingModel,
			)
			return
		}
	}
}
