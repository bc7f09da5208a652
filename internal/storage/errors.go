package storage

import (
	"fmt"

	"github.com/bull/grounded-rag/internal/domain"
)

// All storage sentinels wrap domain.ErrStoreUnavailable.
var (
	ErrQdrantUnreachable  = fmt.Errorf("%w: qdrant server unreachable", domain.ErrStoreUnavailable)
	ErrCollectionNotFound = fmt.Errorf("%w: collection not found", domain.ErrStoreUnavailable)
	ErrDimensionMismatch  = fmt.Errorf("%w: embedding dimension mismatch", domain.ErrStoreUnavailable)
)

// unavailable wraps a client failure so callers can classify it.
func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, op, err)
}
