// Package ragtest builds a Service over in-memory collaborators for tests.
package ragtest

import (
	"context"
	"sync"
	"testing"

	"github.com/bull/grounded-rag/internal/answer"
	"github.com/bull/grounded-rag/internal/chunker"
	"github.com/bull/grounded-rag/internal/crawler"
	"github.com/bull/grounded-rag/internal/domain"
	"github.com/bull/grounded-rag/internal/embedding/embeddingtest"
	"github.com/bull/grounded-rag/internal/extract"
	"github.com/bull/grounded-rag/internal/indexer"
	"github.com/bull/grounded-rag/internal/llm"
	"github.com/bull/grounded-rag/internal/rag"
	"github.com/bull/grounded-rag/internal/retriever"
	"github.com/bull/grounded-rag/internal/storage"
)

// Collection is the collection every Env uses.
const Collection = "ragtest"

// Generator replies with Reply, or fails with Err.
type Generator struct {
	Reply llm.Response
	Err   error

	mu      sync.Mutex
	prompts []string
}

func (g *Generator) Generate(_ context.Context, prompt string) (llm.Response, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	return g.Reply, g.Err
}

// Calls returns the number of Generate calls.
func (g *Generator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

// CountingStore records how many store operations a request performed.
type CountingStore struct {
	storage.VectorStore

	mu    sync.Mutex
	calls int
}

func (s *CountingStore) count() {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
}

// Calls returns the number of store operations, excluding setup.
func (s *CountingStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *CountingStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	s.count()
	return s.VectorStore.CollectionExists(ctx, name)
}

func (s *CountingStore) Upsert(ctx context.Context, name string, points []storage.Point) error {
	s.count()
	return s.VectorStore.Upsert(ctx, name, points)
}

func (s *CountingStore) Search(ctx context.Context, name string, vector []float32, k int) ([]domain.Match, error) {
	s.count()
	return s.VectorStore.Search(ctx, name, vector, k)
}

func (s *CountingStore) Count(ctx context.Context, name string) (uint64, error) {
	s.count()
	return s.VectorStore.Count(ctx, name)
}

// Env is a Service with handles on its fakes.
type Env struct {
	Service   *rag.Service
	Pipeline  *indexer.Pipeline
	Store     *CountingStore
	Embedder  *embeddingtest.Fake
	Generator *Generator
}

// New builds an Env with an empty collection, 100/20 chunk windows and a
// generator replying "stub answer".
func New(t testing.TB) *Env {
	t.Helper()

	chromem, err := storage.NewChromemStorage("")
	if err != nil {
		t.Fatalf("open chromem: %v", err)
	}
	if err := chromem.EnsureCollection(context.Background(), Collection); err != nil {
		t.Fatalf("create collection: %v", err)
	}
	store := &CountingStore{VectorStore: chromem}

	c, err := chunker.New(chunker.WithChunkSize(100), chunker.WithOverlap(20))
	if err != nil {
		t.Fatalf("chunker: %v", err)
	}

	embedder := embeddingtest.New(256)
	gen := &Generator{Reply: llm.TextResponse("stub answer")}

	pipeline := indexer.NewPipeline(
		extract.NewExtractor(nil),
		crawler.New(),
		c,
		indexer.NewIndexer(embedder, store, nil),
		Collection,
		nil,
	)

	svc := rag.New(rag.Deps{
		Pipeline:       pipeline,
		Retriever:      retriever.New(embedder, store, nil),
		Composer:       answer.NewComposer(gen, nil),
		Store:          store,
		EmbeddingModel: embedder.Model(),
	}, nil)

	return &Env{Service: svc, Pipeline: pipeline, Store: store, Embedder: embedder, Generator: gen}
}
