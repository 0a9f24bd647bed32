package handlers

import (
	"context"
	"net/http"
	"time"
)

// Backend is the part of the history store the health check reports on
type Backend interface {
	Backend() string
}

// healthChecker is implemented by stores that hold a connection
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler reports liveness and store health
type HealthHandler struct {
	store Backend
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store Backend) *HealthHandler {
	return &HealthHandler{store: store}
}

// Health is GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":  "ok",
		"backend": h.store.Backend(),
	}

	if hc, ok := h.store.(healthChecker); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := hc.HealthCheck(ctx); err != nil {
			status["status"] = "degraded"
			status["store_error"] = err.Error()
			respondJSON(w, http.StatusServiceUnavailable, status)
			return
		}
	}

	respondJSON(w, http.StatusOK, status)
}
