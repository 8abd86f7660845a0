package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/narrative-engine/pkg/consequence"
	"github.com/jwebster45206/narrative-engine/pkg/player"
	"github.com/jwebster45206/narrative-engine/pkg/progress"
)

func TestMockStorage_ProgressIsCloned(t *testing.T) {
	ctx := context.Background()
	m := NewMockStorage()

	p := progress.New("p1", time.Now())
	p.Choices["intro_dialogue_0"] = 1
	require.NoError(t, m.SaveProgress(ctx, p))

	p.Choices["intro_dialogue_1"] = 0
	got, err := m.GetProgress(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"intro_dialogue_0": 1}, got.Choices)

	missing, err := m.GetProgress(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMockStorage_SaveError(t *testing.T) {
	ctx := context.Background()
	m := NewMockStorage()
	boom := errors.New("boom")

	m.SetSaveError(boom)
	assert.ErrorIs(t, m.SaveProgress(ctx, progress.New("p1", time.Now())), boom)

	m.SetSaveError(nil)
	assert.NoError(t, m.SaveProgress(ctx, progress.New("p1", time.Now())))
}

func TestMockStorage_FailOn(t *testing.T) {
	ctx := context.Background()
	m := NewMockStorage()
	boom := errors.New("boom")

	m.FailOn("SavePlayer", boom)
	assert.ErrorIs(t, m.SavePlayer(ctx, player.New("p1", time.Now())), boom)
	assert.NoError(t, m.SaveProgress(ctx, progress.New("p1", time.Now())), "other writes are unaffected")

	m.FailOn("SavePlayer", nil)
	assert.NoError(t, m.SavePlayer(ctx, player.New("p1", time.Now())))
}

func TestMockStorage_ChoiceTallyUsesLatestChoice(t *testing.T) {
	ctx := context.Background()
	m := NewMockStorage()

	record := func(id, playerID, text string) {
		t.Helper()
		require.NoError(t, m.InsertConsequence(ctx, &consequence.Consequence{
			ID:         id,
			PlayerID:   playerID,
			ChapterID:  "intro",
			SceneID:    "dialogue_0",
			ChoiceText: text,
			Active:     true,
		}))
	}
	record("c1", "p1", "Help")
	record("c2", "p2", "Help")
	record("c3", "p1", "Refuse") // p1 changed their mind

	matching, total, err := m.ChoiceTally(ctx, "intro", "dialogue_0", "Help")
	require.NoError(t, err)
	assert.Equal(t, 1, matching)
	assert.Equal(t, 2, total)

	assert.Error(t, m.InsertConsequence(ctx, &consequence.Consequence{ID: "c1", PlayerID: "p3"}))
}

func TestMockStorage_EventParticipants(t *testing.T) {
	ctx := context.Background()
	m := NewMockStorage()

	added, err := m.AddEventParticipant(ctx, "harvest", "p2")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = m.AddEventParticipant(ctx, "harvest", "p2")
	require.NoError(t, err)
	assert.False(t, added)

	_, err = m.AddEventParticipant(ctx, "harvest", "p1")
	require.NoError(t, err)

	ids, err := m.ListEventParticipants(ctx, "harvest")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, ids)

	require.NoError(t, m.RemoveEventParticipant(ctx, "harvest", "p1"))
	ids, err = m.ListEventParticipants(ctx, "harvest")
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, ids)
}
