package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/narrative-engine/pkg/player"
	"github.com/jwebster45206/narrative-engine/pkg/progress"
	"github.com/jwebster45206/narrative-engine/pkg/storage"
)

// RedisStorage implements the Storage interface using Redis.
// Progress, players and relationships are JSON values; faction standings are
// a hash per player and event participants a set per event.
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// Ensure RedisStorage implements Storage interface
var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisClient builds a client from a redis:// URL or a bare host:port
func NewRedisClient(redisURL string) (*redis.Client, error) {
	if !strings.Contains(redisURL, "://") {
		return redis.NewClient(&redis.Options{Addr: redisURL}), nil
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return redis.NewClient(opt), nil
}

// NewRedisStorage creates a storage over client. ttl bounds how long idle
// records are kept; zero keeps them indefinitely.
func NewRedisStorage(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisStorage {
	return &RedisStorage{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// Client returns the underlying Redis client for components that share it
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

func progressKey(playerID string) string { return "progress:" + playerID }
func playerKey(playerID string) string   { return "player:" + playerID }
func factionKey(playerID string) string  { return "faction:" + playerID }
func relationshipKey(playerID, npcID string) string {
	return "relationship:" + playerID + ":" + npcID
}
func participantsKey(eventID string) string { return "event-participants:" + eventID }

// setJSON marshals v and stores it under key
func (r *RedisStorage) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// getJSON loads key into v. It reports false when the key does not exist.
func (r *RedisStorage) getJSON(ctx context.Context, key string, v any) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

// Progress operations

func (r *RedisStorage) SaveProgress(ctx context.Context, p *progress.Progress) error {
	p.UpdatedAt = time.Now()
	if err := r.setJSON(ctx, progressKey(p.PlayerID), p); err != nil {
		r.logger.Error("Failed to save progress", "player_id", p.PlayerID, "error", err)
		return err
	}
	return nil
}

func (r *RedisStorage) GetProgress(ctx context.Context, playerID string) (*progress.Progress, error) {
	var p progress.Progress
	found, err := r.getJSON(ctx, progressKey(playerID), &p)
	if err != nil {
		r.logger.Error("Failed to load progress", "player_id", playerID, "error", err)
		return nil, err
	}
	if !found {
		return nil, nil
	}
	p.Normalize()
	return &p, nil
}

// Player operations

func (r *RedisStorage) SavePlayer(ctx context.Context, p *player.Player) error {
	p.UpdatedAt = time.Now()
	if err := r.setJSON(ctx, playerKey(p.ID), p); err != nil {
		r.logger.Error("Failed to save player", "player_id", p.ID, "error", err)
		return err
	}
	return nil
}

func (r *RedisStorage) GetPlayer(ctx context.Context, playerID string) (*player.Player, error) {
	var p player.Player
	found, err := r.getJSON(ctx, playerKey(playerID), &p)
	if err != nil {
		r.logger.Error("Failed to load player", "player_id", playerID, "error", err)
		return nil, err
	}
	if !found {
		return nil, nil
	}
	if p.Attributes == nil {
		p.Attributes = make(map[string]int)
	}
	return &p, nil
}

// Relationship operations

func (r *RedisStorage) SaveRelationship(ctx context.Context, rel *player.Relationship) error {
	rel.UpdatedAt = time.Now()
	if err := r.setJSON(ctx, relationshipKey(rel.PlayerID, rel.NPCID), rel); err != nil {
		r.logger.Error("Failed to save relationship", "player_id", rel.PlayerID, "npc_id", rel.NPCID, "error", err)
		return err
	}
	return nil
}

func (r *RedisStorage) GetRelationship(ctx context.Context, playerID, npcID string) (*player.Relationship, error) {
	var rel player.Relationship
	found, err := r.getJSON(ctx, relationshipKey(playerID, npcID), &rel)
	if err != nil {
		r.logger.Error("Failed to load relationship", "player_id", playerID, "npc_id", npcID, "error", err)
		return nil, err
	}
	if !found {
		return nil, nil
	}
	if rel.TriggeredEvents == nil {
		rel.TriggeredEvents = []string{}
	}
	return &rel, nil
}

// Faction standing operations

func (r *RedisStorage) GetFactionStandings(ctx context.Context, playerID string) (map[string]int, error) {
	raw, err := r.client.HGetAll(ctx, factionKey(playerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load faction standings: %w", err)
	}
	out := make(map[string]int, len(raw))
	for faction, v := range raw {
		n, err := strconv.Atoi(v)
		if err != nil {
			r.logger.Warn("Ignoring non-numeric faction standing", "player_id", playerID, "faction_id", faction, "value", v)
			continue
		}
		out[faction] = n
	}
	return out, nil
}

func (r *RedisStorage) SetFactionStanding(ctx context.Context, playerID, factionID string, value int) error {
	key := factionKey(playerID)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, factionID, value)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save faction standing: %w", err)
	}
	return nil
}

// Event participant operations

func (r *RedisStorage) AddEventParticipant(ctx context.Context, eventID, playerID string) (bool, error) {
	added, err := r.client.SAdd(ctx, participantsKey(eventID), playerID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to add event participant: %w", err)
	}
	return added > 0, nil
}

func (r *RedisStorage) RemoveEventParticipant(ctx context.Context, eventID, playerID string) error {
	if err := r.client.SRem(ctx, participantsKey(eventID), playerID).Err(); err != nil {
		return fmt.Errorf("failed to remove event participant: %w", err)
	}
	return nil
}

func (r *RedisStorage) ListEventParticipants(ctx context.Context, eventID string) ([]string, error) {
	members, err := r.client.SMembers(ctx, participantsKey(eventID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list event participants: %w", err)
	}
	slices.Sort(members)
	return members, nil
}
