package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/eshaffer321/finance-reconciler/internal/api/dto"
)

const pingTimeout = 2 * time.Second

// Pinger is the part of the store the health check needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the API can reach its database.
type HealthHandler struct {
	*Base
	store Pinger
}

// NewHealthHandler creates a health handler probing store.
func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{Base: NewBase(nil), store: store}
}

// ServeHTTP handles GET /health. An unreachable database answers 503 so
// load balancers take the instance out of rotation.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	response := dto.NewHealthResponse(h.store.Ping(ctx))
	status := http.StatusOK
	if response.Status != dto.HealthStatusOK {
		status = http.StatusServiceUnavailable
	}
	h.WriteJSON(w, status, response)
}
