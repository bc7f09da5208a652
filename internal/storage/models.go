// Package storage persists embedded chunks and searches them by similarity.
package storage

import (
	"context"
	"strconv"

	"github.com/bull/grounded-rag/internal/domain"
)

// DefaultCollection is the collection used when none is configured.
const DefaultCollection = "langchainjs-testing"

// VectorStore is the single coupling point between ingestion and query.
type VectorStore interface {
	Health(ctx context.Context) error
	// EnsureCollection creates the collection if it does not exist. Idempotent.
	EnsureCollection(ctx context.Context, name string) error
	CollectionExists(ctx context.Context, name string) (bool, error)
	Upsert(ctx context.Context, name string, points []Point) error
	// Search returns at most k matches ordered by descending score.
	Search(ctx context.Context, name string, vector []float32, k int) ([]domain.Match, error)
	Count(ctx context.Context, name string) (uint64, error)
	// ClearCollection drops every point and recreates the collection empty.
	ClearCollection(ctx context.Context, name string) error
	Close() error
}

// Point is a chunk with its embedding, ready to be stored.
type Point struct {
	ID             string // UUID
	Vector         []float32
	Chunk          domain.Chunk
	EmbeddingModel string
}

// Payload field names shared by every backend.
const (
	fieldContent        = "content"
	fieldSource         = "source"
	fieldTitle          = "title"
	fieldURL            = "url"
	fieldPage           = "page"
	fieldChunkIndex     = "chunk_index"
	fieldTotalChunks    = "total_chunks"
	fieldEmbeddingModel = "embedding_model"
)

// stringPayload flattens a point for stores with string-only metadata.
// Content is stored separately by those stores.
func stringPayload(p Point) map[string]string {
	m := p.Chunk.Metadata
	return map[string]string{
		fieldSource:         string(m.Source),
		fieldTitle:          m.Title,
		fieldURL:            m.URL,
		fieldPage:           strconv.Itoa(m.Page),
		fieldChunkIndex:     strconv.Itoa(m.ChunkIndex),
		fieldTotalChunks:    strconv.Itoa(m.TotalChunks),
		fieldEmbeddingModel: p.EmbeddingModel,
	}
}

func chunkFromStrings(content string, payload map[string]string) (domain.Chunk, string) {
	atoi := func(key string) int {
		n, _ := strconv.Atoi(payload[key])
		return n
	}
	return domain.Chunk{
		Content: content,
		Metadata: domain.ChunkMetadata{
			Metadata: domain.Metadata{
				Source: domain.Source(payload[fieldSource]),
				Title:  payload[fieldTitle],
				URL:    payload[fieldURL],
				Page:   atoi(fieldPage),
			},
			ChunkIndex:  atoi(fieldChunkIndex),
			TotalChunks: atoi(fieldTotalChunks),
		},
	}, payload[fieldEmbeddingModel]
}
