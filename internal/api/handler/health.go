package handler

import (
	"net/http"

	"github.com/mcoot/pongrelay/internal/api/response"
	"github.com/mcoot/pongrelay/internal/relay"
)

// HealthHandler serves the liveness endpoint with relay gauges
type HealthHandler struct {
	dispatcher *relay.Dispatcher
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(dispatcher *relay.Dispatcher) *HealthHandler {
	return &HealthHandler{
		dispatcher: dispatcher,
	}
}

// Get handles GET /health
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.HealthFromCounts(h.dispatcher.Counts()))
}
