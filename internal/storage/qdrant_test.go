//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/grounded-rag/internal/domain"
)

const testDimension = 8

// setupTestStorage creates a test storage instance with a fresh collection.
// Skips test if Qdrant is not running.
func setupTestStorage(t *testing.T) (*QdrantStorage, string) {
	storage, err := NewQdrantStorage(QdrantConfig{Host: "localhost", Port: 6334, Dimension: testDimension})
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}

	name := "test-" + uuid.New().String()
	require.NoError(t, storage.EnsureCollection(context.Background(), name), "Failed to ensure collection")
	t.Cleanup(func() {
		storage.client.DeleteCollection(context.Background(), name)
		storage.Close()
	})

	return storage, name
}

func vector(fill float32) []float32 {
	v := make([]float32, testDimension)
	for i := range v {
		v[i] = fill
	}
	return v
}

func TestChunkSearchRoundTrip(t *testing.T) {
	storage, name := setupTestStorage(t)
	ctx := context.Background()

	chunk := domain.Chunk{
		Content: "Introduction section content",
		Metadata: domain.ChunkMetadata{
			Metadata:    domain.Metadata{Source: domain.SourceURL, Title: "Intro", URL: "https://example.com/intro"},
			ChunkIndex:  1,
			TotalChunks: 3,
		},
	}
	err := storage.Upsert(ctx, name, []Point{{ID: uuid.New().String(), Vector: vector(0.1), Chunk: chunk, EmbeddingModel: "m1"}})
	require.NoError(t, err, "Failed to upsert points")

	results, err := storage.Search(ctx, name, vector(0.1), 10)
	require.NoError(t, err, "Failed to search")
	require.Len(t, results, 1)

	assert.Equal(t, chunk, results[0].Chunk)
	assert.Equal(t, "m1", results[0].EmbeddingModel)
	assert.Greater(t, results[0].Score, 0.0)
	assert.LessOrEqual(t, results[0].Score, 1.0+1e-6)
}

func TestBatchUpsertAndCount(t *testing.T) {
	storage, name := setupTestStorage(t)
	ctx := context.Background()

	// More than one batch of 100
	points := make([]Point, 250)
	for i := range points {
		points[i] = Point{
			ID:     uuid.New().String(),
			Vector: vector(0.5),
			Chunk:  domain.Chunk{Content: "Chunk content", Metadata: domain.ChunkMetadata{ChunkIndex: i, TotalChunks: 250}},
		}
	}
	require.NoError(t, storage.Upsert(ctx, name, points))

	n, err := storage.Count(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, uint64(250), n)

	require.NoError(t, storage.ClearCollection(ctx, name))
	n, err = storage.Count(ctx, name)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDimensionValidation(t *testing.T) {
	storage, name := setupTestStorage(t)
	ctx := context.Background()

	err := storage.Upsert(ctx, name, []Point{{ID: uuid.New().String(), Vector: make([]float32, 3)}})
	assert.ErrorIs(t, err, ErrDimensionMismatch, "Should reject wrong embedding dimension")

	_, err = storage.Search(ctx, name, make([]float32, 3), 2)
	assert.ErrorIs(t, err, ErrDimensionMismatch, "Should reject wrong query dimension")
}

func TestMissingCollection(t *testing.T) {
	storage, _ := setupTestStorage(t)
	ctx := context.Background()

	exists, err := storage.CollectionExists(ctx, "missing-"+uuid.New().String())
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = storage.Search(ctx, "missing-"+uuid.New().String(), vector(0.1), 2)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
