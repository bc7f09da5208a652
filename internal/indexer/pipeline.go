package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bull/grounded-rag/internal/chunker"
	"github.com/bull/grounded-rag/internal/crawler"
	"github.com/bull/grounded-rag/internal/domain"
	"github.com/bull/grounded-rag/internal/extract"
)

// IngestResult contains statistics about an ingestion.
type IngestResult struct {
	Documents int // Extracted records or crawled pages
	Chunks    int
	Failed    []FailedDoc
	Duration  time.Duration
}

// FailedDoc represents a page that could not be ingested.
type FailedDoc struct {
	URL    string
	Reason string
}

// Pipeline orchestrates ingestion from a source to the vector store.
type Pipeline struct {
	extractor  *extract.Extractor
	crawler    *crawler.Crawler
	chunker    *chunker.Chunker
	indexer    *Indexer
	collection string
	logger     *slog.Logger
}

// NewPipeline creates a new ingestion pipeline with the given components.
func NewPipeline(
	extractor *extract.Extractor,
	crawler *crawler.Crawler,
	chunker *chunker.Chunker,
	indexer *Indexer,
	collection string,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		extractor:  extractor,
		crawler:    crawler,
		chunker:    chunker,
		indexer:    indexer,
		collection: collection,
		logger:     logger,
	}
}

// Collection returns the collection this pipeline writes to.
func (p *Pipeline) Collection() string {
	return p.collection
}

// IngestFile extracts, chunks and indexes one uploaded file.
func (p *Pipeline) IngestFile(ctx context.Context, filename string, data []byte) (*IngestResult, error) {
	start := time.Now()

	docs, err := p.extractor.Extract(ctx, filename, data)
	if err != nil {
		return nil, err
	}

	result, err := p.chunkAndIndex(ctx, docs)
	if err != nil {
		return nil, err
	}
	result.Duration = time.Since(start)

	p.logger.InfoContext(ctx, "Ingested file",
		"file", filename,
		"documents", result.Documents,
		"chunks", result.Chunks,
		"duration", result.Duration,
	)
	return result, nil
}

// IngestURL crawls from seedURL and indexes every page collected. Pages that
// fail are reported in Failed and do not fail the ingestion.
func (p *Pipeline) IngestURL(ctx context.Context, seedURL string, maxPages int) (*IngestResult, error) {
	start := time.Now()

	crawled, err := p.crawler.Crawl(ctx, seedURL, maxPages)
	if err != nil {
		return nil, fmt.Errorf("crawl: %w", err)
	}

	result, err := p.chunkAndIndex(ctx, crawled.Documents)
	if err != nil {
		return nil, err
	}
	for _, f := range crawled.Failed {
		result.Failed = append(result.Failed, FailedDoc{URL: f.URL, Reason: f.Reason})
	}
	result.Duration = time.Since(start)

	p.logger.InfoContext(ctx, "Ingested site",
		"seed", seedURL,
		"pages", result.Documents,
		"failed", len(result.Failed),
		"chunks", result.Chunks,
		"duration", result.Duration,
	)
	return result, nil
}

func (p *Pipeline) chunkAndIndex(ctx context.Context, docs []domain.Document) (*IngestResult, error) {
	chunks, err := p.chunker.ChunkDocuments(docs)
	if err != nil {
		return nil, fmt.Errorf("chunk: %w", err)
	}
	p.logger.DebugContext(ctx, "Chunked documents", "documents", len(docs), "chunks", len(chunks))

	n, err := p.indexer.Index(ctx, chunks, p.collection)
	if err != nil {
		return nil, err
	}

	return &IngestResult{Documents: len(docs), Chunks: n}, nil
}
