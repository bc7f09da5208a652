// Package retriever finds the chunks most similar to a query.
package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/bull/grounded-rag/internal/domain"
	"github.com/bull/grounded-rag/internal/embedding"
	"github.com/bull/grounded-rag/internal/storage"
)

// DefaultK is the number of matches returned when the caller does not ask for a count.
const DefaultK = 2

// Retriever embeds queries with the same Embedder used at index time.
type Retriever struct {
	embedder embedding.Embedder
	store    storage.VectorStore
	logger   *slog.Logger
}

// New creates a Retriever.
func New(embedder embedding.Embedder, store storage.VectorStore, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{embedder: embedder, store: store, logger: logger}
}

// Retrieve returns at most k matches for query, best first. A non-positive k
// selects DefaultK.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, collection string) ([]domain.Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrValidation)
	}
	if k <= 0 {
		k = DefaultK
	}

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := r.store.Search(ctx, collection, vector, k)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > k {
		matches = matches[:k]
	}

	r.logger.DebugContext(ctx, "Retrieved matches", "collection", collection, "k", k, "matches", len(matches))
	return matches, nil
}
