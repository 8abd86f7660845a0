package lock

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

func setupTestRedis(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewRedisLocker(client, time.Minute, logger), mr
}

// exerciseMutualExclusion increments a shared counter non-atomically under the lock
func exerciseMutualExclusion(t *testing.T, l locker) {
	t.Helper()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		counter int
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "p1")
			if !assert.NoError(t, err) {
				return
			}
			v := counter
			time.Sleep(time.Millisecond)
			counter = v + 1
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, counter)
}

func TestKeyedMutex_MutualExclusion(t *testing.T) {
	k := NewKeyedMutex()
	exerciseMutualExclusion(t, k)
	assert.Zero(t, k.Len(), "entries are dropped when released")
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	k := NewKeyedMutex()
	ctx := context.Background()

	unlock1, err := k.Lock(ctx, "p1")
	require.NoError(t, err)
	defer unlock1()

	ctx2, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	unlock2, err := k.Lock(ctx2, "p2")
	require.NoError(t, err, "another key is not blocked")
	unlock2()
}

func TestKeyedMutex_ContextCancel(t *testing.T) {
	k := NewKeyedMutex()
	unlock, err := k.Lock(context.Background(), "p1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = k.Lock(ctx, "p1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock() // second call is a no-op
	assert.Zero(t, k.Len())
}

func TestRedisLocker_MutualExclusion(t *testing.T) {
	l, _ := setupTestRedis(t)
	exerciseMutualExclusion(t, l)
}

func TestRedisLocker_Timeout(t *testing.T) {
	l, mr := setupTestRedis(t)
	unlock, err := l.Lock(context.Background(), "p1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("player-lock:p1"))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "p1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	assert.False(t, mr.Exists("player-lock:p1"))
}

func TestRedisLocker_ReleaseOnlyOwnLock(t *testing.T) {
	l, mr := setupTestRedis(t)
	unlock, err := l.Lock(context.Background(), "p1")
	require.NoError(t, err)

	// Simulate expiry and takeover by another holder
	require.NoError(t, mr.Set("player-lock:p1", "someone-else"))
	unlock()

	v, err := mr.Get("player-lock:p1")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", v)
}
