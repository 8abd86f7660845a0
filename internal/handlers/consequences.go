package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/narrative-engine/internal/logger"
	"github.com/jwebster45206/narrative-engine/internal/middleware"
	"github.com/jwebster45206/narrative-engine/pkg/consequence"
)

// ConsequenceHandler exposes the consequence ledger
type ConsequenceHandler struct {
	tracker *consequence.Tracker
	logger  *slog.Logger
}

func NewConsequenceHandler(tracker *consequence.Tracker, logger *slog.Logger) *ConsequenceHandler {
	return &ConsequenceHandler{tracker: tracker, logger: logger}
}

// AppendRequest carries reflections or alternative paths to append
type AppendRequest struct {
	Items []string `json:"items"`
}

type CommunityResponse struct {
	ChapterID  string  `json:"chapter_id"`
	SceneID    string  `json:"scene_id"`
	ChoiceText string  `json:"choice_text"`
	Percentage float64 `json:"percentage"`
}

// Register adds the consequence routes:
//
//	GET  /v1/players/{player}/consequences
//	GET  /v1/consequences/{id}
//	POST /v1/consequences/{id}/reflections
//	POST /v1/consequences/{id}/alternatives
//	POST /v1/consequences/{id}/deactivate
//	GET  /v1/community?chapter=&scene=&choice=
func (h *ConsequenceHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/players/{player}/consequences", h.handleDashboard)
	mux.HandleFunc("GET /v1/consequences/{id}", h.handleGet)
	mux.HandleFunc("POST /v1/consequences/{id}/reflections", h.handleAppend(h.tracker.AddEthicalReflections))
	mux.HandleFunc("POST /v1/consequences/{id}/alternatives", h.handleAppend(h.tracker.AddAlternativePaths))
	mux.HandleFunc("POST /v1/consequences/{id}/deactivate", h.handleDeactivate)
	mux.HandleFunc("GET /v1/community", h.handleCommunity)
}

func (h *ConsequenceHandler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	log := middleware.FromContext(r.Context(), h.logger)
	dash, err := h.tracker.GetDecisionDashboard(r.Context(), r.PathValue("player"))
	if err != nil {
		h.writeTrackerError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, dash)
}

func (h *ConsequenceHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	log := middleware.FromContext(r.Context(), h.logger)
	c, err := h.tracker.GetConsequence(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeTrackerError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, c)
}

func (h *ConsequenceHandler) handleAppend(appendFn func(context.Context, string, ...string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.FromContext(r.Context(), h.logger)

		var req AppendRequest
		if err := decodeBody(r, &req); err != nil {
			log.Warn("Invalid request body", "error", err)
			writeError(w, log, http.StatusBadRequest, "Invalid request body. Expected JSON with 'items' array.")
			return
		}

		id := r.PathValue("id")
		if err := appendFn(r.Context(), id, req.Items...); err != nil {
			h.writeTrackerError(w, log, err)
			return
		}
		h.writeCurrent(w, r, log, id)
	}
}

func (h *ConsequenceHandler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	log := middleware.FromContext(r.Context(), h.logger)
	id := r.PathValue("id")
	if err := h.tracker.DeactivateConsequence(r.Context(), id); err != nil {
		h.writeTrackerError(w, log, err)
		return
	}
	h.writeCurrent(w, r, log, id)
}

func (h *ConsequenceHandler) handleCommunity(w http.ResponseWriter, r *http.Request) {
	log := middleware.FromContext(r.Context(), h.logger)
	q := r.URL.Query()
	resp := CommunityResponse{
		ChapterID:  q.Get("chapter"),
		SceneID:    q.Get("scene"),
		ChoiceText: q.Get("choice"),
	}
	if resp.ChapterID == "" || resp.SceneID == "" || resp.ChoiceText == "" {
		writeError(w, log, http.StatusBadRequest, "chapter, scene and choice query parameters are required")
		return
	}

	pct, err := h.tracker.GetCommunityChoicePercentage(r.Context(), resp.ChapterID, resp.SceneID, resp.ChoiceText)
	if err != nil {
		h.writeTrackerError(w, log, err)
		return
	}
	resp.Percentage = pct
	writeJSON(w, log, http.StatusOK, resp)
}

// writeCurrent responds with the consequence as it is now stored
func (h *ConsequenceHandler) writeCurrent(w http.ResponseWriter, r *http.Request, log *slog.Logger, id string) {
	c, err := h.tracker.GetConsequence(r.Context(), id)
	if err != nil {
		h.writeTrackerError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, c)
}

func (h *ConsequenceHandler) writeTrackerError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, consequence.ErrNotFound):
		writeError(w, log, http.StatusNotFound, "Consequence not found")
	case errors.Is(err, consequence.ErrMissingPlayer):
		writeError(w, log, http.StatusBadRequest, err.Error())
	default:
		logger.WithError(log, err).Error("Consequence ledger failure")
		writeError(w, log, http.StatusInternalServerError, "Failed to access consequence ledger")
	}
}
