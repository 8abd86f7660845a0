package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/narrative-engine/internal/logger"
	"github.com/jwebster45206/narrative-engine/internal/middleware"
	"github.com/jwebster45206/narrative-engine/pkg/engine"
)

// PlayerHandler exposes chapter progression for a player
type PlayerHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

func NewPlayerHandler(e *engine.Engine, logger *slog.Logger) *PlayerHandler {
	return &PlayerHandler{engine: e, logger: logger}
}

// ChoiceRequest is the body of POST /v1/players/{player}/choices
type ChoiceRequest struct {
	ChoiceIndex *int `json:"choice_index"`
}

// Register adds the player routes:
//
//	GET  /v1/players/{player}/progress
//	GET  /v1/players/{player}/chapters/available
//	POST /v1/players/{player}/chapters/{chapter}/start
//	POST /v1/players/{player}/chapters/{chapter}/complete
//	POST /v1/players/{player}/choices
func (h *PlayerHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/players/{player}/progress", h.handleProgress)
	mux.HandleFunc("GET /v1/players/{player}/chapters/available", h.handleAvailable)
	mux.HandleFunc("POST /v1/players/{player}/chapters/{chapter}/start", h.handleStart)
	mux.HandleFunc("POST /v1/players/{player}/chapters/{chapter}/complete", h.handleComplete)
	mux.HandleFunc("POST /v1/players/{player}/choices", h.handleChoice)
}

func (h *PlayerHandler) log(r *http.Request) *slog.Logger {
	return logger.WithPlayer(middleware.FromContext(r.Context(), h.logger), r.PathValue("player"))
}

func (h *PlayerHandler) handleProgress(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.log(r), h.engine.GetProgress(r.Context(), r.PathValue("player")))
}

func (h *PlayerHandler) handleAvailable(w http.ResponseWriter, r *http.Request) {
	res := h.engine.AvailableChapters(r.Context(), r.PathValue("player"))
	if res.Success && res.Chapters == nil {
		res.Chapters = []string{}
	}
	writeResult(w, h.log(r), res)
}

func (h *PlayerHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	res := h.engine.StartChapter(r.Context(), r.PathValue("player"), r.PathValue("chapter"))
	if !res.Success {
		log.Warn("Start chapter failed", "chapter_id", r.PathValue("chapter"), "code", res.Code)
	}
	writeResult(w, log, res)
}

func (h *PlayerHandler) handleComplete(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	res := h.engine.CompleteChapter(r.Context(), r.PathValue("player"), r.PathValue("chapter"))
	if !res.Success {
		log.Warn("Complete chapter failed", "chapter_id", r.PathValue("chapter"), "code", res.Code)
	}
	writeResult(w, log, res)
}

func (h *PlayerHandler) handleChoice(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)

	var req ChoiceRequest
	if err := decodeBody(r, &req); err != nil {
		log.Warn("Invalid request body", "error", err)
		writeError(w, log, http.StatusBadRequest, "Invalid request body. Expected JSON with 'choice_index' field.")
		return
	}
	if req.ChoiceIndex == nil {
		writeError(w, log, http.StatusBadRequest, "choice_index is required")
		return
	}

	res := h.engine.ProcessChoice(r.Context(), r.PathValue("player"), *req.ChoiceIndex)
	if !res.Success {
		log.Warn("Choice rejected", "choice_index", *req.ChoiceIndex, "code", res.Code)
	}
	writeResult(w, log, res)
}
