package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultLockTTL   = 30 * time.Second
	defaultRetryWait = 25 * time.Millisecond
)

// releaseScript deletes the lock only if we still own it
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisLocker is a lock per key shared by every process using the same Redis.
// The lock expires after ttl so a crashed holder cannot block a key forever.
type RedisLocker struct {
	client    *redis.Client
	prefix    string
	ttl       time.Duration
	retryWait time.Duration
	logger    *slog.Logger
}

func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLocker{
		client:    client,
		prefix:    "player-lock:",
		ttl:       ttl,
		retryWait: defaultRetryWait,
		logger:    logger,
	}
}

// Lock polls SETNX until the key is acquired or ctx is done
func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := r.prefix + key
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, lockKey, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for lock %s: %w", key, ctx.Err())
		case <-time.After(r.retryWait):
		}
	}

	return func() {
		// Release even if the caller's context is already done
		if err := releaseScript.Run(context.WithoutCancel(ctx), r.client, []string{lockKey}, token).Err(); err != nil {
			r.logger.Error("Failed to release lock", "key", key, "error", err)
		}
	}, nil
}
