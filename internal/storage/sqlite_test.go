package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/narrative-engine/pkg/consequence"
)

func openTestLedger(t *testing.T) *SQLiteLedger {
	t.Helper()
	l, err := OpenSQLiteLedger(filepath.Join(t.TempDir(), "data", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestSQLiteLedger_InsertAndGet(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	missing, err := l.GetConsequence(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	pct := 0.25
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := &consequence.Consequence{
		ID:                        "c1",
		PlayerID:                  "p1",
		Name:                      "Board the ship",
		Type:                      consequence.TypeLongTerm,
		ChapterID:                 "harbor",
		SceneID:                   "dialogue_0",
		ChoiceText:                "Board the ship",
		Context:                   map[string]string{"weather": "fog"},
		Effects:                   []string{"currency:-3"},
		RelatedChoices:            []string{"harbor_dialogue_0"},
		AffectedNPCs:              []string{},
		Active:                    true,
		CreatedAt:                 created,
		CommunityChoicePercentage: &pct,
		EthicalReflections:        []string{"first thought"},
	}
	require.NoError(t, l.InsertConsequence(ctx, c))
	assert.Error(t, l.InsertConsequence(ctx, c), "ids are unique")

	got, err := l.GetConsequence(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "p1", got.PlayerID)
	assert.Equal(t, consequence.TypeLongTerm, got.Type)
	assert.Equal(t, map[string]string{"weather": "fog"}, got.Context)
	assert.Equal(t, []string{"currency:-3"}, got.Effects)
	assert.Equal(t, []string{"harbor_dialogue_0"}, got.RelatedChoices)
	assert.Empty(t, got.AffectedNPCs)
	assert.True(t, got.Active)
	assert.True(t, created.Equal(got.CreatedAt))
	require.NotNil(t, got.CommunityChoicePercentage)
	assert.InDelta(t, 0.25, *got.CommunityChoicePercentage, 1e-9)
	assert.Equal(t, []string{"first thought"}, got.EthicalReflections)
	assert.Empty(t, got.AlternativePaths)
}

func TestSQLiteLedger_AppendOnly(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.InsertConsequence(ctx, &consequence.Consequence{
		ID: "c1", PlayerID: "p1", Name: "n", Type: consequence.TypeImmediate, Active: true, CreatedAt: time.Now(),
	}))

	found, err := l.AppendReflections(ctx, "c1", []string{"a", "b"})
	require.NoError(t, err)
	assert.True(t, found)
	found, err = l.AppendReflections(ctx, "c1", []string{"c"})
	require.NoError(t, err)
	assert.True(t, found)
	found, err = l.AppendAlternativePaths(ctx, "c1", []string{"stay"})
	require.NoError(t, err)
	assert.True(t, found)

	found, err = l.Deactivate(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, found)

	got, err := l.GetConsequence(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got.EthicalReflections)
	assert.Equal(t, []string{"stay"}, got.AlternativePaths)
	assert.False(t, got.Active)

	found, err = l.AppendReflections(ctx, "missing", []string{"x"})
	require.NoError(t, err)
	assert.False(t, found)
	found, err = l.Deactivate(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSQLiteLedger_ListAndTally(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	insert := func(id, playerID, text string) {
		t.Helper()
		require.NoError(t, l.InsertConsequence(ctx, &consequence.Consequence{
			ID: id, PlayerID: playerID, Name: text, Type: consequence.TypeImmediate,
			ChapterID: "harbor", SceneID: "dialogue_0", ChoiceText: text,
			Active: true, CreatedAt: time.Now(),
		}))
	}
	insert("c1", "p1", "Sail")
	insert("c2", "p2", "Stay")
	insert("c3", "p1", "Stay")
	insert("c4", "p3", "Sail")

	list, err := l.ListConsequences(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c1", list[0].ID)
	assert.Equal(t, "c3", list[1].ID)

	none, err := l.ListConsequences(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	matching, total, err := l.ChoiceTally(ctx, "harbor", "dialogue_0", "Stay")
	require.NoError(t, err)
	assert.Equal(t, 2, matching)
	assert.Equal(t, 3, total)

	matching, total, err = l.ChoiceTally(ctx, "harbor", "dialogue_9", "Stay")
	require.NoError(t, err)
	assert.Zero(t, matching)
	assert.Zero(t, total)
}

func TestSQLiteLedger_WithTracker(t *testing.T) {
	ctx := context.Background()
	tracker := consequence.NewTracker(openTestLedger(t), nil)

	c, err := tracker.TrackPlayerDecision(ctx, consequence.Decision{PlayerID: "p1"})
	require.NoError(t, err)
	require.NoError(t, tracker.AddEthicalReflections(ctx, c.ID, "why"))

	dash, err := tracker.GetDecisionDashboard(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, dash.Total)
	require.Len(t, dash.Active, 1)
	assert.Equal(t, []string{"why"}, dash.Active[0].EthicalReflections)
}
