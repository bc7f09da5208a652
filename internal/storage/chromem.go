package storage

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"

	"github.com/philippgille/chromem-go"

	"github.com/bull/grounded-rag/internal/domain"
)

// ChromemStorage is an embedded vector store, in memory or persisted to a
// directory. It needs no server and suits local runs and tests.
type ChromemStorage struct {
	db *chromem.DB
}

// NewChromemStorage opens a persistent store at path, or an in-memory one when
// path is empty.
func NewChromemStorage(path string) (*ChromemStorage, error) {
	if path == "" {
		return &ChromemStorage{db: chromem.NewDB()}, nil
	}

	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, unavailable("open chromem database", err)
	}
	return &ChromemStorage{db: db}, nil
}

// noEmbedding stops chromem from embedding on its own; vectors always come
// from the configured Embedder.
func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errors.New("chromem: documents must carry an embedding")
}

func (s *ChromemStorage) Health(context.Context) error { return nil }

func (s *ChromemStorage) Close() error { return nil }

func (s *ChromemStorage) CollectionExists(_ context.Context, name string) (bool, error) {
	return s.db.GetCollection(name, noEmbedding) != nil, nil
}

func (s *ChromemStorage) EnsureCollection(_ context.Context, name string) error {
	if _, err := s.db.GetOrCreateCollection(name, nil, noEmbedding); err != nil {
		return unavailable("create collection", err)
	}
	return nil
}

func (s *ChromemStorage) ClearCollection(ctx context.Context, name string) error {
	if err := s.db.DeleteCollection(name); err != nil {
		return unavailable("delete collection", err)
	}
	return s.EnsureCollection(ctx, name)
}

func (s *ChromemStorage) collection(name string) (*chromem.Collection, error) {
	c := s.db.GetCollection(name, noEmbedding)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return c, nil
}

// Upsert adds points to the collection. Points with an existing ID replace it.
func (s *ChromemStorage) Upsert(ctx context.Context, name string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	c, err := s.collection(name)
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, len(points))
	for i, p := range points {
		if len(p.Vector) == 0 {
			return fmt.Errorf("%w: point %d has no vector", ErrDimensionMismatch, i)
		}
		docs[i] = chromem.Document{
			ID:        p.ID,
			Content:   p.Chunk.Content,
			Metadata:  stringPayload(p),
			Embedding: p.Vector,
		}
	}

	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return unavailable("add documents", err)
	}
	return nil
}

// Search returns the k most similar chunks. chromem rejects a result count
// above the collection size, so k is clamped first.
func (s *ChromemStorage) Search(ctx context.Context, name string, vector []float32, k int) ([]domain.Match, error) {
	c, err := s.collection(name)
	if err != nil {
		return nil, err
	}

	n := min(k, c.Count())
	if n <= 0 {
		return nil, nil
	}

	results, err := c.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, unavailable("query", err)
	}

	matches := make([]domain.Match, 0, len(results))
	for _, r := range results {
		chunk, model := chunkFromStrings(r.Content, r.Metadata)
		matches = append(matches, domain.Match{
			Score:          float64(r.Similarity),
			Chunk:          chunk,
			EmbeddingModel: model,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	return matches, nil
}

func (s *ChromemStorage) Count(_ context.Context, name string) (uint64, error) {
	c, err := s.collection(name)
	if err != nil {
		return 0, err
	}
	return uint64(c.Count()), nil
}
