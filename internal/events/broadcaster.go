package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/narrative-engine/pkg/engine"
)

// Broadcaster publishes engine notifications to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

var _ engine.Notifier = (*Broadcaster)(nil)

// NewBroadcaster creates a new notification broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Channel is the pub/sub channel a player's notifications are published on
func Channel(playerID string) string {
	return fmt.Sprintf("player-events:%s", playerID)
}

// Notify publishes n to the player's channel
func (b *Broadcaster) Notify(ctx context.Context, n engine.Notification) error {
	channel := Channel(n.PlayerID)

	data, err := json.Marshal(n)
	if err != nil {
		b.logger.Error("Failed to marshal notification", "error", err, "type", n.Type)
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish notification", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	b.logger.Debug("Notification published",
		"channel", channel,
		"type", n.Type,
		"chapter_id", n.ChapterID,
		"event_id", n.EventID,
	)
	return nil
}

// Subscribe opens a subscription to the player's channel. The caller closes it.
func (b *Broadcaster) Subscribe(ctx context.Context, playerID string) *redis.PubSub {
	return b.redisClient.Subscribe(ctx, Channel(playerID))
}

// Decode parses a published payload
func Decode(payload string) (engine.Notification, error) {
	var n engine.Notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return n, fmt.Errorf("failed to unmarshal notification: %w", err)
	}
	return n, nil
}
