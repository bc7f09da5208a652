package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthResponse is the body returned by /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Store     string `json:"store"`
	Timestamp string `json:"timestamp"`
}

// HealthChecker is implemented by rag.Service and by the vector stores.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewHealthHandler reports vector store connectivity. Checks are bounded to
// three seconds.
func NewHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		response := HealthResponse{
			Status:    "healthy",
			Store:     "connected",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		status := http.StatusOK
		if err := checker.Health(ctx); err != nil {
			response.Status = "unhealthy"
			response.Store = "disconnected"
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(response)
	}
}
