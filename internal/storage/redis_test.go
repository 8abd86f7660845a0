package storage

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/narrative-engine/pkg/player"
	"github.com/jwebster45206/narrative-engine/pkg/progress"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	client, err := NewRedisClient("redis://" + mr.Addr())
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create redis client: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	s := NewRedisStorage(client, ttl, logger)
	t.Cleanup(func() {
		_ = s.Close()
		mr.Close()
	})
	return s, mr
}

func TestRedisStorage_Progress(t *testing.T) {
	s, mr := setupTestRedis(t, 0)
	ctx := context.Background()

	loaded, err := s.GetProgress(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, loaded, "missing progress is (nil, nil)")

	p := progress.New("p1", time.Now())
	p.CurrentChapterID = "harbor"
	p.CurrentDialogueIndex = 2
	p.MarkCompleted("intro")
	p.RecordChoice("intro", 0, 1)
	p.AdjustFaction("guild", 10)
	require.NoError(t, s.SaveProgress(ctx, p))

	assert.True(t, mr.Exists("progress:p1"))
	assert.Zero(t, mr.TTL("progress:p1"))

	loaded, err = s.GetProgress(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "harbor", loaded.CurrentChapterID)
	assert.Equal(t, 2, loaded.CurrentDialogueIndex)
	assert.Equal(t, []string{"intro"}, loaded.CompletedChapters)
	assert.Equal(t, map[string]int{"intro_dialogue_0": 1}, loaded.Choices)
	assert.Equal(t, 10, loaded.FactionReputation["guild"])
	assert.NotNil(t, loaded.TriggeredEvents)
}

func TestRedisStorage_ProgressTTL(t *testing.T) {
	s, mr := setupTestRedis(t, time.Hour)
	require.NoError(t, s.SaveProgress(context.Background(), progress.New("p1", time.Now())))
	assert.Equal(t, time.Hour, mr.TTL("progress:p1"))
}

func TestRedisStorage_CorruptValue(t *testing.T) {
	s, mr := setupTestRedis(t, 0)
	require.NoError(t, mr.Set("progress:p1", "{not json"))

	_, err := s.GetProgress(context.Background(), "p1")
	assert.Error(t, err)
}

func TestRedisStorage_Player(t *testing.T) {
	s, _ := setupTestRedis(t, 0)
	ctx := context.Background()

	loaded, err := s.GetPlayer(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	p := player.New("p1", time.Now())
	p.Attributes["charm"] = 3
	p.Currency = 12
	p.Items = []string{"scarf"}
	require.NoError(t, s.SavePlayer(ctx, p))

	loaded, err = s.GetPlayer(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 3, loaded.Attribute("charm"))
	assert.Equal(t, 12, loaded.Currency)
	assert.Equal(t, 1, loaded.Level)
	assert.Equal(t, []string{"scarf"}, loaded.Items)
}

func TestRedisStorage_Relationship(t *testing.T) {
	s, mr := setupTestRedis(t, 0)
	ctx := context.Background()

	loaded, err := s.GetRelationship(ctx, "p1", "mara")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	rel := player.NewRelationship("p1", "mara")
	rel.AdjustAffinity(80)
	rel.AddTriggeredEvent("romance_mara_1")
	require.NoError(t, s.SaveRelationship(ctx, rel))
	assert.True(t, mr.Exists("relationship:p1:mara"))

	loaded, err = s.GetRelationship(ctx, "p1", "mara")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 80, loaded.Affinity)
	assert.True(t, loaded.HasTriggered("romance_mara_1"))
}

func TestRedisStorage_FactionStandings(t *testing.T) {
	s, mr := setupTestRedis(t, 0)
	ctx := context.Background()

	standings, err := s.GetFactionStandings(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, standings)

	require.NoError(t, s.SetFactionStanding(ctx, "p1", "guild", 15))
	require.NoError(t, s.SetFactionStanding(ctx, "p1", "crown", -40))
	mr.HSet("faction:p1", "broken", "lots")

	standings, err = s.GetFactionStandings(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"guild": 15, "crown": -40}, standings)
}

func TestRedisStorage_EventParticipants(t *testing.T) {
	s, _ := setupTestRedis(t, 0)
	ctx := context.Background()

	added, err := s.AddEventParticipant(ctx, "storm", "p2")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AddEventParticipant(ctx, "storm", "p2")
	require.NoError(t, err)
	assert.False(t, added, "adding twice is idempotent")

	_, err = s.AddEventParticipant(ctx, "storm", "p1")
	require.NoError(t, err)

	members, err := s.ListEventParticipants(ctx, "storm")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, members)

	require.NoError(t, s.RemoveEventParticipant(ctx, "storm", "p2"))
	members, err = s.ListEventParticipants(ctx, "storm")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, members)
}

func TestRedisStorage_Ping(t *testing.T) {
	s, mr := setupTestRedis(t, 0)
	require.NoError(t, s.Ping(context.Background()))

	mr.Close()
	assert.Error(t, s.Ping(context.Background()))
}

func TestNewRedisClient_BareAddress(t *testing.T) {
	client, err := NewRedisClient("localhost:6379")
	require.NoError(t, err)
	defer client.Close()
	assert.Equal(t, "localhost:6379", client.Options().Addr)

	_, err = NewRedisClient("redis://localhost:6379/notadb")
	assert.Error(t, err)
}
