package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/narrative-engine/internal/events"
	"github.com/jwebster45206/narrative-engine/internal/logger"
	"github.com/jwebster45206/narrative-engine/internal/middleware"
	"github.com/jwebster45206/narrative-engine/pkg/engine"
	"github.com/jwebster45206/narrative-engine/pkg/event"
)

// EventHandler exposes event eligibility, triggering and the notification stream
type EventHandler struct {
	engine      *engine.Engine
	broadcaster *events.Broadcaster // nil disables the stream
	logger      *slog.Logger

	keepalive time.Duration
}

func NewEventHandler(e *engine.Engine, broadcaster *events.Broadcaster, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		engine:      e,
		broadcaster: broadcaster,
		logger:      logger,
		keepalive:   30 * time.Second,
	}
}

// TriggerRequest is the body of POST /v1/players/{player}/events/{event}/trigger
type TriggerRequest struct {
	ActionData map[string]string `json:"action_data"`
}

// Register adds the event routes:
//
//	GET  /v1/events
//	GET  /v1/events/{event}
//	GET  /v1/players/{player}/events                   season and action data as query parameters
//	POST /v1/players/{player}/events/{event}/trigger
//	POST /v1/players/{player}/events/{event}/complete
//	GET  /v1/players/{player}/stream                   Server-Sent Events
func (h *EventHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/events", h.handleList)
	mux.HandleFunc("GET /v1/events/{event}", h.handleGet)
	mux.HandleFunc("GET /v1/players/{player}/events", h.handleEligible)
	mux.HandleFunc("POST /v1/players/{player}/events/{event}/trigger", h.handleTrigger)
	mux.HandleFunc("POST /v1/players/{player}/events/{event}/complete", h.handleComplete)
	mux.HandleFunc("GET /v1/players/{player}/stream", h.handleStream)
}

func (h *EventHandler) log(r *http.Request) *slog.Logger {
	return logger.WithPlayer(middleware.FromContext(r.Context(), h.logger), r.PathValue("player"))
}

type EventListResponse struct {
	Events []*event.Event `json:"events"`
}

func (h *EventHandler) handleList(w http.ResponseWriter, r *http.Request) {
	all := h.engine.Events().All()
	if all == nil {
		all = []*event.Event{}
	}
	writeJSON(w, h.logger, http.StatusOK, EventListResponse{Events: all})
}

func (h *EventHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	ev, ok := h.engine.Events().Get(r.PathValue("event"))
	if !ok {
		writeError(w, h.logger, http.StatusNotFound, "Event not found")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, ev)
}

// handleEligible reads the optional season from ?season= and treats every
// other query parameter as action data
func (h *EventHandler) handleEligible(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	query := r.URL.Query()

	var season event.Season
	if raw := query.Get("season"); raw != "" {
		s, ok := event.ParseSeason(raw)
		if !ok {
			writeError(w, log, http.StatusBadRequest, fmt.Sprintf("Unknown season %q", raw))
			return
		}
		season = s
	}

	actionData := make(map[string]string)
	for key, values := range query {
		if key == "season" || len(values) == 0 {
			continue
		}
		actionData[key] = values[0]
	}

	writeResult(w, log, h.engine.EligibleEvents(r.Context(), r.PathValue("player"), season, actionData))
}

func (h *EventHandler) handleTrigger(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)

	var req TriggerRequest
	if err := decodeBody(r, &req); err != nil {
		log.Warn("Invalid request body", "error", err)
		writeError(w, log, http.StatusBadRequest, "Invalid request body. Expected JSON with optional 'action_data' object.")
		return
	}

	res := h.engine.TriggerEvent(r.Context(), r.PathValue("player"), r.PathValue("event"), req.ActionData)
	if !res.Success {
		log.Info("Event not triggered", "event_id", r.PathValue("event"), "code", res.Code)
	}
	writeResult(w, log, res)
}

func (h *EventHandler) handleComplete(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.log(r), h.engine.CompleteEvent(r.Context(), r.PathValue("player"), r.PathValue("event")))
}

// handleStream forwards the player's notifications as Server-Sent Events
func (h *EventHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	if h.broadcaster == nil {
		writeError(w, log, http.StatusServiceUnavailable, "Event stream requires Redis")
		return
	}
	playerID := r.PathValue("player")

	log.Info("SSE connection established", "remote_addr", r.RemoteAddr)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	pubsub := h.broadcaster.Subscribe(r.Context(), playerID)
	defer func() {
		if err := pubsub.Close(); err != nil {
			log.Error("Failed to close pubsub", "error", err)
		}
	}()
	msgChan := pubsub.Channel()

	keepaliveTicker := time.NewTicker(h.keepalive)
	defer keepaliveTicker.Stop()

	h.sendSSE(w, log, "connected", map[string]any{
		"player_id": playerID,
		"message":   "Connected to event stream",
	})

	for {
		select {
		case <-r.Context().Done():
			log.Info("SSE client disconnected")
			return

		case msg, ok := <-msgChan:
			if !ok {
				return
			}
			n, err := events.Decode(msg.Payload)
			if err != nil {
				log.Error("Failed to decode notification", "error", err, "payload", msg.Payload)
				continue
			}
			h.sendSSE(w, log, string(n.Type), n)

		case <-keepaliveTicker.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				log.Error("Failed to write keepalive", "error", err)
				return
			}
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}
		}
	}
}

func (h *EventHandler) sendSSE(w http.ResponseWriter, log *slog.Logger, eventType string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		log.Error("Failed to marshal SSE data", "error", err)
		return
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, dataJSON); err != nil {
		log.Error("Failed to write event", "error", err)
		return
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
