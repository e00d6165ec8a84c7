package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"namerank/internal/services"
	"namerank/pkg/contracts"
)

// HealthResponse is the body of GET /api/health
type HealthResponse struct {
	Status    string                `json:"status"`
	Version   contracts.VersionInfo `json:"version"`
	Dataset   services.DatasetStats `json:"dataset"`
	Uptime    string                `json:"uptime"`
	Timestamp time.Time             `json:"timestamp"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	service AnalysisServiceInterface
	started time.Time
	logger  *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(service AnalysisServiceInterface, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		service: service,
		started: time.Now(),
		logger:  logger.With(slog.String("handler", "health")),
	}
}

// HealthCheck handles GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{
		Status:    "ok",
		Version:   contracts.GetVersionInfo(),
		Dataset:   h.service.Stats(),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
	})
}

// Version handles GET /api/version
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, contracts.GetVersionInfo())
}
