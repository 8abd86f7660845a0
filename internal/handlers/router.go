package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/narrative-engine/internal/content"
	"github.com/jwebster45206/narrative-engine/internal/events"
	"github.com/jwebster45206/narrative-engine/pkg/chapter"
	"github.com/jwebster45206/narrative-engine/pkg/engine"
)

// Deps is everything the HTTP API is built over
type Deps struct {
	Engine      *engine.Engine
	Registry    *chapter.Registry
	Content     *content.Manager    // nil disables the admin routes
	Broadcaster *events.Broadcaster // nil disables the event stream
	Health      map[string]Pinger
	Logger      *slog.Logger
}

// NewRouter registers every route on a fresh mux
func NewRouter(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	counts := func() (int, int) {
		return d.Engine.Graph().Len(), d.Engine.Events().Len()
	}
	mux.Handle("GET /health", NewHealthHandler(d.Health, counts, d.Logger))

	NewChapterHandler(d.Registry, d.Logger).Register(mux)
	NewPlayerHandler(d.Engine, d.Logger).Register(mux)
	NewEventHandler(d.Engine, d.Broadcaster, d.Logger).Register(mux)
	NewConsequenceHandler(d.Engine.Tracker(), d.Logger).Register(mux)
	if d.Content != nil {
		NewAdminHandler(d.Content, d.Logger).Register(mux)
	}
	return mux
}
