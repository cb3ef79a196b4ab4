package handlers

import (
	"net/http"

	"github.com/giftlens/giftlens/internal/app"
	"github.com/giftlens/giftlens/internal/observability"
)

// HealthReporter reports service health. *app.App implements it.
type HealthReporter interface {
	Health() app.Health
}

// HealthHandler serves the health endpoint. It always answers 200 so that
// callers can watch startup progress.
type HealthHandler struct {
	logger   *observability.Logger
	reporter HealthReporter
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(logger *observability.Logger, reporter HealthReporter) *HealthHandler {
	return &HealthHandler{logger: logger, reporter: reporter}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.reporter.Health())
}
