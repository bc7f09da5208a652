package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bull/grounded-rag/internal/domain"
)

// vectorName is the named vector chunks are stored under.
const vectorName = "content"

// QdrantConfig holds the connection settings for QdrantStorage.
type QdrantConfig struct {
	Host      string
	Port      int
	APIKey    string
	UseTLS    bool
	Dimension int // Vector size of the configured embedding model
}

// QdrantStorage wraps the Qdrant client with connection management and health checks.
type QdrantStorage struct {
	client    *qdrant.Client
	dimension int
}

// NewQdrantStorage creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStorage(cfg QdrantConfig) (*QdrantStorage, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("%w: vector dimension must be positive, got %d", domain.ErrStoreUnavailable, cfg.Dimension)
	}

	// Create Qdrant client using gRPC
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create client: %v", ErrQdrantUnreachable, err)
	}

	storage := &QdrantStorage{
		client:    client,
		dimension: cfg.Dimension,
	}

	if err := storage.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return storage, nil
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s. This is the only
// retry in the system; request paths fail on the first error.
func (s *QdrantStorage) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(exponentialBackoff, ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStorage) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return unavailable("health check", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("%w: health check returned invalid response", domain.ErrStoreUnavailable)
	}
	return nil
}

// CollectionExists reports whether the named collection exists.
func (s *QdrantStorage) CollectionExists(ctx context.Context, name string) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return false, unavailable("check collection", err)
	}
	return exists, nil
}

// EnsureCollection creates the collection with cosine distance over the
// configured dimension, plus keyword indexes on the provenance fields.
func (s *QdrantStorage) EnsureCollection(ctx context.Context, name string) error {
	exists, err := s.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			vectorName: {
				Size:     uint64(s.dimension),
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return unavailable("create collection", err)
	}

	return s.createPayloadIndexes(ctx, name)
}

// createPayloadIndexes creates indexes for the filterable provenance fields.
func (s *QdrantStorage) createPayloadIndexes(ctx context.Context, name string) error {
	for _, field := range []string{fieldSource, fieldURL, fieldEmbeddingModel} {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: name,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return unavailable("create index for field "+field, err)
		}
	}
	return nil
}

// ClearCollection deletes the collection and recreates it empty.
func (s *QdrantStorage) ClearCollection(ctx context.Context, name string) error {
	if err := s.client.DeleteCollection(ctx, name); err != nil && !isNotFound(err) {
		return unavailable("delete collection", err)
	}
	return s.EnsureCollection(ctx, name)
}

// Close closes the Qdrant client connection.
func (s *QdrantStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Upsert stores points in batches of 100. A failed batch is not retried.
func (s *QdrantStorage) Upsert(ctx context.Context, name string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	for i, p := range points {
		if len(p.Vector) != s.dimension {
			return fmt.Errorf("%w: point %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(p.Vector), s.dimension)
		}
	}

	batchSize := 100
	for i := 0; i < len(points); i += batchSize {
		end := min(i+batchSize, len(points))

		batch := make([]*qdrant.PointStruct, 0, end-i)
		for j, p := range points[i:end] {
			ps, err := pointStruct(p)
			if err != nil {
				return fmt.Errorf("%w: point %d: %v", domain.ErrStoreUnavailable, i+j, err)
			}
			batch = append(batch, ps)
		}

		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: name,
			Points:         batch,
		})
		if err != nil {
			return s.classify(fmt.Sprintf("upsert batch %d-%d", i, end), err)
		}
	}

	return nil
}

// Search performs vector similarity search over the collection.
func (s *QdrantStorage) Search(ctx context.Context, name string, vector []float32, k int) ([]domain.Match, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), s.dimension)
	}
	if k <= 0 {
		return nil, nil
	}

	using := vectorName
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQuery(vector...),
		Using:          &using,
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, s.classify("search", err)
	}

	matches := make([]domain.Match, 0, len(results))
	for _, result := range results {
		chunk, model := chunkFromPayload(result.Payload)
		matches = append(matches, domain.Match{
			Score:          float64(result.Score), // Qdrant returns float32
			Chunk:          chunk,
			EmbeddingModel: model,
		})
	}
	return matches, nil
}

// Count returns the exact number of points in the collection.
func (s *QdrantStorage) Count(ctx context.Context, name string) (uint64, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: name,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, s.classify("count", err)
	}
	return n, nil
}

func (s *QdrantStorage) classify(op string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%w: %s: %v", ErrCollectionNotFound, op, err)
	}
	return unavailable(op, err)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// pointStruct converts p for upsert. Payload strings that are not valid UTF-8
// are reported as an error.
func pointStruct(p Point) (*qdrant.PointStruct, error) {
	values, err := qdrant.TryValueMap(payload(p))
	if err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}
	return &qdrant.PointStruct{
		Id: qdrant.NewIDUUID(p.ID),
		Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
			vectorName: qdrant.NewVector(p.Vector...),
		}),
		Payload: values,
	}, nil
}

func payload(p Point) map[string]any {
	m := p.Chunk.Metadata
	return map[string]any{
		fieldContent:        p.Chunk.Content,
		fieldSource:         string(m.Source),
		fieldTitle:          m.Title,
		fieldURL:            m.URL,
		fieldPage:           m.Page,
		fieldChunkIndex:     m.ChunkIndex,
		fieldTotalChunks:    m.TotalChunks,
		fieldEmbeddingModel: p.EmbeddingModel,
	}
}

func chunkFromPayload(payload map[string]*qdrant.Value) (domain.Chunk, string) {
	str := func(key string) string { return payload[key].GetStringValue() }
	num := func(key string) int { return int(payload[key].GetIntegerValue()) }

	return domain.Chunk{
		Content: str(fieldContent),
		Metadata: domain.ChunkMetadata{
			Metadata: domain.Metadata{
				Source: domain.Source(str(fieldSource)),
				Title:  str(fieldTitle),
				URL:    str(fieldURL),
				Page:   num(fieldPage),
			},
			ChunkIndex:  num(fieldChunkIndex),
			TotalChunks: num(fieldTotalChunks),
		},
	}, str(fieldEmbeddingModel)
}
