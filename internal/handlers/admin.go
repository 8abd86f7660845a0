package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/narrative-engine/internal/content"
	"github.com/jwebster45206/narrative-engine/internal/middleware"
)

// AdminHandler reloads and validates content at runtime
type AdminHandler struct {
	content *content.Manager
	logger  *slog.Logger
}

func NewAdminHandler(m *content.Manager, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{content: m, logger: logger}
}

type ValidateResponse struct {
	Valid    bool     `json:"valid"`
	Findings []string `json:"findings"`
}

// Register adds POST /v1/admin/reload and GET /v1/admin/validate
func (h *AdminHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/admin/reload", h.handleReload)
	mux.HandleFunc("GET /v1/admin/validate", h.handleValidate)
}

func (h *AdminHandler) handleReload(w http.ResponseWriter, r *http.Request) {
	log := middleware.FromContext(r.Context(), h.logger)
	report := h.content.Reload()
	log.Info("Content reload requested", "chapters", report.Chapters, "events", report.Events)
	writeJSON(w, log, http.StatusOK, report)
}

func (h *AdminHandler) handleValidate(w http.ResponseWriter, r *http.Request) {
	findings := h.content.Validate()
	if findings == nil {
		findings = []string{}
	}
	writeJSON(w, h.logger, http.StatusOK, ValidateResponse{Valid: len(findings) == 0, Findings: findings})
}
