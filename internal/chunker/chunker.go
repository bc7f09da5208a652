// Package chunker splits document text into overlapping fixed-size windows.
package chunker

import (
	"fmt"

	"github.com/bull/grounded-rag/internal/domain"
)

const (
	// DefaultChunkSize is the default number of characters per chunk.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the default number of characters shared by adjacent chunks.
	DefaultChunkOverlap = 200
)

// ErrInvalidWindow is returned when size and overlap do not satisfy 0 <= overlap < size.
var ErrInvalidWindow = fmt.Errorf("%w: chunk overlap must be in [0, chunk size)", domain.ErrValidation)

// Split cuts text into windows of at most size characters, each starting
// overlap characters before the previous window ended. Characters are
// Unicode code points, so a multi-byte rune is never cut in half.
// Empty text yields no chunks.
func Split(text string, size, overlap int) ([]string, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w (size=%d, overlap=%d)", ErrInvalidWindow, size, overlap)
	}

	runes := []rune(text)
	n := len(runes)
	chunks := make([]string, 0, Count(n, size, overlap))

	start := 0
	for start < n {
		end := min(start+size, n)
		chunks = append(chunks, string(runes[start:end]))
		if end == n {
			break
		}
		start = end - overlap
	}

	return chunks, nil
}

// Count returns the number of chunks Split produces for a text of length characters.
func Count(length, size, overlap int) int {
	switch {
	case length <= 0:
		return 0
	case length <= size:
		return 1
	}
	step := size - overlap
	return (length - overlap + step - 1) / step
}

// Chunker turns Documents into position-annotated Chunks.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters. Non-positive values are ignored.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap in characters. Negative values are ignored.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a Chunker. It returns ErrInvalidWindow if the resulting
// overlap is not strictly smaller than the chunk size.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.chunkSize {
		return nil, fmt.Errorf("%w (size=%d, overlap=%d)", ErrInvalidWindow, c.chunkSize, c.overlap)
	}
	return c, nil
}

// ChunkSize returns the configured window size.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// ChunkDocument splits doc fully, then annotates every chunk with its index
// and the final count. Provenance is copied unchanged from the document.
func (c *Chunker) ChunkDocument(doc domain.Document) ([]domain.Chunk, error) {
	parts, err := Split(doc.Content, c.chunkSize, c.overlap)
	if err != nil {
		return nil, err
	}

	chunks := make([]domain.Chunk, len(parts))
	for i, part := range parts {
		chunks[i] = domain.Chunk{
			Content: part,
			Metadata: domain.ChunkMetadata{
				Metadata:    doc.Metadata,
				ChunkIndex:  i,
				TotalChunks: len(parts),
			},
		}
	}
	return chunks, nil
}

// ChunkDocuments chunks each document in order and concatenates the results.
func (c *Chunker) ChunkDocuments(docs []domain.Document) ([]domain.Chunk, error) {
	var all []domain.Chunk
	for i, doc := range docs {
		chunks, err := c.ChunkDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		all = append(all, chunks...)
	}
	return all, nil
}
