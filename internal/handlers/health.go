package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger is any backing service the health check can probe
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Service    string            `json:"service"`
	Components map[string]string `json:"components"`
	Chapters   int               `json:"chapters"`
	Events     int               `json:"events"`
}

type HealthHandler struct {
	components map[string]Pinger
	counts     func() (chapters, events int)
	logger     *slog.Logger
}

// NewHealthHandler probes each named component. counts may be nil.
func NewHealthHandler(components map[string]Pinger, counts func() (int, int), logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		components: components,
		counts:     counts,
		logger:     logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Health check requested",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := make(map[string]string, len(h.components))
	overallStatus := "healthy"
	for name, p := range h.components {
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("Health check failed", "component", name, "error", err)
			components[name] = "unhealthy"
			overallStatus = "degraded"
			continue
		}
		components[name] = "healthy"
	}

	response := HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Service:    "narrative-engine",
		Components: components,
	}
	if h.counts != nil {
		response.Chapters, response.Events = h.counts()
	}

	statusCode := http.StatusOK
	if overallStatus != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, h.logger, statusCode, response)
}
