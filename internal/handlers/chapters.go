package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/narrative-engine/pkg/chapter"
)

// ChapterHandler serves the loaded chapter graph read-only
type ChapterHandler struct {
	registry *chapter.Registry
	logger   *slog.Logger
}

func NewChapterHandler(registry *chapter.Registry, logger *slog.Logger) *ChapterHandler {
	return &ChapterHandler{registry: registry, logger: logger}
}

type ChapterListResponse struct {
	Chapters []string `json:"chapters"`
}

// Register adds GET /v1/chapters and GET /v1/chapters/{id}
func (h *ChapterHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/chapters", h.handleList)
	mux.HandleFunc("GET /v1/chapters/{id}", h.handleGet)
}

func (h *ChapterHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ids := h.registry.Current().IDs()
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, h.logger, http.StatusOK, ChapterListResponse{Chapters: ids})
}

func (h *ChapterHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ch, ok := h.registry.Current().GetChapter(id)
	if !ok {
		writeError(w, h.logger, http.StatusNotFound, "Chapter not found")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, ch)
}
