// Package indexer embeds chunks and stores them, and composes the file and
// URL ingestion flows on top of that.
package indexer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bull/grounded-rag/internal/domain"
	"github.com/bull/grounded-rag/internal/embedding"
	"github.com/bull/grounded-rag/internal/storage"
)

// Indexer writes chunks into a named collection. It never retries and never
// de-duplicates: indexing the same chunks twice stores them twice.
type Indexer struct {
	embedder embedding.Embedder
	store    storage.VectorStore
	logger   *slog.Logger
}

// NewIndexer creates an Indexer.
func NewIndexer(embedder embedding.Embedder, store storage.VectorStore, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// Index embeds every chunk in one batched call and upserts the results in one
// store call. It returns the number of chunks stored.
func (ix *Indexer) Index(ctx context.Context, chunks []domain.Chunk, collection string) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	exists, err := ix.store.CollectionExists(ctx, collection)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, collection)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := ix.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	model := ix.embedder.Model()
	points := make([]storage.Point, len(chunks))
	for i, c := range chunks {
		points[i] = storage.Point{
			ID:             uuid.New().String(),
			Vector:         vectors[i],
			Chunk:          c,
			EmbeddingModel: model,
		}
	}

	if err := ix.store.Upsert(ctx, collection, points); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}

	ix.logger.DebugContext(ctx, "Indexed chunks", "collection", collection, "chunks", len(points), "model", model)
	return len(points), nil
}
