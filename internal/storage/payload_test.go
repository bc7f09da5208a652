package storage

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/grounded-rag/internal/domain"
)

func testPoint(title, content string) Point {
	return Point{
		ID:     uuid.NewString(),
		Vector: []float32{0.1, 0.2},
		Chunk: domain.Chunk{
			Content: content,
			Metadata: domain.ChunkMetadata{
				Metadata:    domain.Metadata{Source: domain.SourceURL, Title: title, URL: "https://example.com/menu"},
				ChunkIndex:  0,
				TotalChunks: 1,
			},
		},
		EmbeddingModel: "fake-embedding",
	}
}

func TestPointStruct_RoundTripsPayload(t *testing.T) {
	ps, err := pointStruct(testPoint("Café", "Menü du jour"))
	require.NoError(t, err)

	chunk, model := chunkFromPayload(ps.GetPayload())
	assert.Equal(t, "Café", chunk.Metadata.Title)
	assert.Equal(t, "Menü du jour", chunk.Content)
	assert.Equal(t, "https://example.com/menu", chunk.Metadata.URL)
	assert.Equal(t, 1, chunk.Metadata.TotalChunks)
	assert.Equal(t, "fake-embedding", model)
}

func TestPointStruct_InvalidUTF8IsAnError(t *testing.T) {
	var (
		ps  any
		err error
	)
	assert.NotPanics(t, func() {
		ps, err = pointStruct(testPoint("Caf\xe9", "Men\xfc"))
	})
	require.Error(t, err)
	assert.Nil(t, ps)
}
