// Package app builds the service graph from configuration. Both binaries
// share it so the server and the CLI always agree on store, models and
// chunking.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bull/grounded-rag/internal/answer"
	"github.com/bull/grounded-rag/internal/chunker"
	"github.com/bull/grounded-rag/internal/config"
	"github.com/bull/grounded-rag/internal/crawler"
	"github.com/bull/grounded-rag/internal/embedding"
	"github.com/bull/grounded-rag/internal/extract"
	"github.com/bull/grounded-rag/internal/indexer"
	"github.com/bull/grounded-rag/internal/llm"
	"github.com/bull/grounded-rag/internal/rag"
	"github.com/bull/grounded-rag/internal/retriever"
	"github.com/bull/grounded-rag/internal/storage"
)

// App is a fully wired service and the resources it owns.
type App struct {
	Config  *config.Config
	Service *rag.Service
	Store   storage.VectorStore
	Logger  *slog.Logger
}

// New connects to the vector store, makes sure the collection exists and
// wires the ingestion and query flows. Callers must Close the App.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureCollection(ctx, cfg.Collection); err != nil {
		store.Close()
		return nil, fmt.Errorf("ensure collection %q: %w", cfg.Collection, err)
	}

	var openaiClient *embedding.Client
	if cfg.EmbeddingProvider == config.ProviderOpenAI || cfg.LLMProvider == config.ProviderOpenAI {
		openaiClient, err = embedding.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("create openai client: %w", err)
		}
	}

	embedder, err := newEmbedder(cfg, openaiClient)
	if err != nil {
		store.Close()
		return nil, err
	}
	generator, err := newGenerator(cfg, openaiClient)
	if err != nil {
		store.Close()
		return nil, err
	}

	textChunker, err := chunker.New(chunker.WithChunkSize(cfg.ChunkSize), chunker.WithOverlap(cfg.ChunkOverlap))
	if err != nil {
		store.Close()
		return nil, err
	}

	siteCrawler := crawler.New(
		crawler.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.CrawlTimeoutSeconds) * time.Second}),
		crawler.WithRateLimit(cfg.CrawlRate),
		crawler.WithLogger(logger),
	)

	pipeline := indexer.NewPipeline(
		extract.NewExtractor(logger),
		siteCrawler,
		textChunker,
		indexer.NewIndexer(embedder, store, logger),
		cfg.Collection,
		logger,
	)

	svc := rag.New(rag.Deps{
		Pipeline:       pipeline,
		Retriever:      retriever.New(embedder, store, logger),
		Composer:       answer.NewComposer(generator, logger),
		Store:          store,
		EmbeddingModel: embedder.Model(),
		K:              cfg.RetrieveK,
		MaxPages:       cfg.CrawlMaxPages,
	}, logger)

	logger.InfoContext(ctx, "Service ready",
		"backend", cfg.VectorBackend,
		"collection", cfg.Collection,
		"embedding_provider", cfg.EmbeddingProvider,
		"embedding_model", embedder.Model(),
		"llm_provider", cfg.LLMProvider,
	)

	return &App{Config: cfg, Service: svc, Store: store, Logger: logger}, nil
}

// Close releases the vector store connection.
func (a *App) Close() error {
	return a.Store.Close()
}

func newStore(cfg *config.Config) (storage.VectorStore, error) {
	switch cfg.VectorBackend {
	case config.BackendQdrant:
		return storage.NewQdrantStorage(storage.QdrantConfig{
			Host:      cfg.QdrantHost,
			Port:      cfg.QdrantPort,
			APIKey:    cfg.QdrantAPIKey,
			UseTLS:    cfg.QdrantUseTLS,
			Dimension: cfg.EmbeddingDimension,
		})
	case config.BackendChromem:
		return storage.NewChromemStorage(cfg.ChromemPath)
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}
}

func newEmbedder(cfg *config.Config, client *embedding.Client) (embedding.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case config.ProviderOpenAI:
		return embedding.NewOpenAIEmbedder(client, cfg.EmbeddingModel, 0), nil
	case config.ProviderOllama:
		return embedding.NewOllama(cfg.OllamaURL, cfg.EmbeddingModel)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}
}

func newGenerator(cfg *config.Config, client *embedding.Client) (llm.Generator, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return llm.NewOpenAIGenerator(client.Client(), cfg.LLMModel, cfg.LLMTemperature), nil
	case config.ProviderOllama:
		return llm.NewOllamaGenerator(cfg.OllamaURL, cfg.LLMModel, cfg.LLMTemperature)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}
