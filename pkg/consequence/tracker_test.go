package consequence_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jwebster45206/narrative-engine/pkg/consequence"
	"github.com/jwebster45206/narrative-engine/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTracker() (*consequence.Tracker, *storage.MockStorage) {
	store := storage.NewMockStorage()
	return consequence.NewTracker(store, nil), store
}

func TestTrackPlayerDecision_OneRecordPerCall(t *testing.T) {
	ctx := context.Background()
	tracker, store := newTracker()

	for i := range 3 {
		c, err := tracker.TrackPlayerDecision(ctx, consequence.Decision{PlayerID: "p1", ChapterID: "intro", SceneID: "dialogue_0"})
		require.NoError(t, err)
		assert.NotEmpty(t, c.ID)
		assert.True(t, c.Active)
		assert.Equal(t, consequence.TypeImmediate, c.Type)
		assert.Empty(t, c.Effects)
		assert.NotNil(t, c.Effects)

		list, err := store.ListConsequences(ctx, "p1")
		require.NoError(t, err)
		assert.Len(t, list, i+1)
	}
}

func TestTrackPlayerDecision_KeepsDecisionFields(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTracker()

	c, err := tracker.TrackPlayerDecision(ctx, consequence.Decision{
		PlayerID:       "p1",
		ChapterID:      "harbor",
		SceneID:        "dialogue_2",
		ChoiceText:     "Board the ship",
		Type:           consequence.TypeLongTerm,
		Effects:        []string{"relationship:mara:+5"},
		RelatedChoices: []string{"harbor_dialogue_2"},
		AffectedNPCs:   []string{"mara"},
	})
	require.NoError(t, err)

	got, err := tracker.GetConsequence(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Board the ship", got.Name)
	assert.Equal(t, consequence.TypeLongTerm, got.Type)
	assert.Equal(t, []string{"relationship:mara:+5"}, got.Effects)
	assert.Equal(t, []string{"harbor_dialogue_2"}, got.RelatedChoices)
	assert.Equal(t, []string{"mara"}, got.AffectedNPCs)
	assert.Nil(t, got.CommunityChoicePercentage, "first decision has no community to compare with")
}

func TestTrackPlayerDecision_RequiresPlayer(t *testing.T) {
	tracker, _ := newTracker()
	_, err := tracker.TrackPlayerDecision(context.Background(), consequence.Decision{})
	assert.ErrorIs(t, err, consequence.ErrMissingPlayer)
}

func TestTrackPlayerDecision_LedgerFailure(t *testing.T) {
	tracker, store := newTracker()
	store.SetSaveError(errors.New("disk full"))
	_, err := tracker.TrackPlayerDecision(context.Background(), consequence.Decision{PlayerID: "p1"})
	assert.Error(t, err)
}

func TestGetCommunityChoicePercentage(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTracker()

	track := func(playerID, text string) *consequence.Consequence {
		t.Helper()
		c, err := tracker.TrackPlayerDecision(ctx, consequence.Decision{
			PlayerID: playerID, ChapterID: "harbor", SceneID: "dialogue_0", ChoiceText: text,
		})
		require.NoError(t, err)
		return c
	}

	pct, err := tracker.GetCommunityChoicePercentage(ctx, "harbor", "dialogue_0", "Sail")
	require.NoError(t, err)
	assert.Zero(t, pct)

	track("p1", "Sail")
	track("p2", "Stay")
	track("p3", "Sail")
	track("p4", "Stay")
	// p4 changes their mind; only the latest choice counts
	c := track("p4", "Sail")
	require.NotNil(t, c.CommunityChoicePercentage)
	assert.InDelta(t, 0.5, *c.CommunityChoicePercentage, 1e-9)

	pct, err = tracker.GetCommunityChoicePercentage(ctx, "harbor", "dialogue_0", "Sail")
	require.NoError(t, err)
	assert.InDelta(t, 0.75, pct, 1e-9)

	pct, err = tracker.GetCommunityChoicePercentage(ctx, "harbor", "dialogue_1", "Sail")
	require.NoError(t, err)
	assert.Zero(t, pct, "other scenes are counted separately")
}

func TestGetDecisionDashboard(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTracker()

	a, err := tracker.TrackPlayerDecision(ctx, consequence.Decision{PlayerID: "p1"})
	require.NoError(t, err)
	_, err = tracker.TrackPlayerDecision(ctx, consequence.Decision{PlayerID: "p1", Type: consequence.TypePermanent})
	require.NoError(t, err)
	_, err = tracker.TrackPlayerDecision(ctx, consequence.Decision{PlayerID: "p2"})
	require.NoError(t, err)
	require.NoError(t, tracker.DeactivateConsequence(ctx, a.ID))

	dash, err := tracker.GetDecisionDashboard(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, dash.Total)
	assert.Len(t, dash.ByType[consequence.TypeImmediate], 1)
	assert.Len(t, dash.ByType[consequence.TypePermanent], 1)
	assert.Empty(t, dash.ByType[consequence.TypeShortTerm])
	assert.Len(t, dash.Active, 1)
	require.Len(t, dash.Inactive, 1)
	assert.Equal(t, a.ID, dash.Inactive[0].ID)
}

func TestAppendOnlyUpdates(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTracker()

	c, err := tracker.TrackPlayerDecision(ctx, consequence.Decision{PlayerID: "p1"})
	require.NoError(t, err)

	require.NoError(t, tracker.AddEthicalReflections(ctx, c.ID, "Was loyalty worth it?"))
	require.NoError(t, tracker.AddEthicalReflections(ctx, c.ID, "", "Who paid the price?"))
	require.NoError(t, tracker.AddAlternativePaths(ctx, c.ID, "Stay ashore"))
	require.NoError(t, tracker.DeactivateConsequence(ctx, c.ID))

	got, err := tracker.GetConsequence(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Was loyalty worth it?", "Who paid the price?"}, got.EthicalReflections)
	assert.Equal(t, []string{"Stay ashore"}, got.AlternativePaths)
	assert.False(t, got.Active)

	assert.ErrorIs(t, tracker.AddEthicalReflections(ctx, "missing", "x"), consequence.ErrNotFound)
	assert.ErrorIs(t, tracker.AddAlternativePaths(ctx, "missing"), consequence.ErrNotFound)
	assert.ErrorIs(t, tracker.DeactivateConsequence(ctx, "missing"), consequence.ErrNotFound)
}
