package handler

import (
	"context"
	"net/http"

	"github.com/mcoot/guildbot/internal/api/response"
)

// Pinger is a dependency the health check pings
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the bot's store is reachable
type HealthHandler struct {
	storage Pinger
}

// NewHealthHandler creates a new health handler. storage may be nil for the
// in-memory store.
func NewHealthHandler(storage Pinger) *HealthHandler {
	return &HealthHandler{storage: storage}
}

// Get handles GET /api/v1/health
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		response.JSON(w, http.StatusOK, response.Health{Status: "ok", Storage: "memory"})
		return
	}
	if err := h.storage.Ping(r.Context()); err != nil {
		response.JSON(w, http.StatusServiceUnavailable, response.Health{Status: "degraded", Storage: "unreachable"})
		return
	}
	response.JSON(w, http.StatusOK, response.Health{Status: "ok", Storage: "ok"})
}
