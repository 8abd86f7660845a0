package engine

import (
	"context"
	"time"
)

// NotificationType names a progression change
type NotificationType string

const (
	NotifyChapterStarted   NotificationType = "chapter.started"
	NotifyChapterCompleted NotificationType = "chapter.completed"
	NotifyChoiceProcessed  NotificationType = "choice.processed"
	NotifyEventTriggered   NotificationType = "event.triggered"
	NotifyEventCompleted   NotificationType = "event.completed"
)

// Notification describes a change to a player's progression
type Notification struct {
	Type      NotificationType `json:"type"`
	PlayerID  string           `json:"player_id"`
	ChapterID string           `json:"chapter_id,omitempty"`
	EventID   string           `json:"event_id,omitempty"`
	Data      map[string]any   `json:"data,omitempty"`
	At        time.Time        `json:"at"`
}

// Notifier receives notifications after a mutation has been saved.
// Failures are logged; they never fail the operation.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notification) error { return nil }

func (e *Engine) notify(ctx context.Context, n Notification) {
	n.At = e.now()
	if err := e.notifier.Notify(ctx, n); err != nil {
		e.logger.Warn("Failed to publish notification", "type", n.Type, "player_id", n.PlayerID, "error", err)
	}
}
