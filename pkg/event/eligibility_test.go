package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jwebster45206/narrative-engine/pkg/player"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedCalendar struct {
	month, day int
}

func (c fixedCalendar) Now() time.Time {
	return time.Date(2025, time.Month(c.month), c.day, 12, 0, 0, 0, time.UTC)
}

func (c fixedCalendar) InRange(sm, sd, em, ed int) bool {
	return DateInRange(c.month, c.day, sm, sd, em, ed)
}

type stubRelationships struct {
	rels map[string]*player.Relationship
	err  error
}

func (s stubRelationships) GetRelationship(_ context.Context, playerID, npcID string) (*player.Relationship, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rels[playerID+":"+npcID], nil
}

type constRand float64

func (c constRand) Float64() float64 { return float64(c) }

func ptr[T any](v T) *T { return &v }

func winterFestival() *Event {
	return &Event{
		ID: "winter_festival", Type: TypeSeasonal,
		StartMonth: ptr(12), StartDay: ptr(20), EndMonth: ptr(1), EndDay: ptr(10),
	}
}

func TestEligible_Seasonal(t *testing.T) {
	ctx := context.Background()
	ev := winterFestival()

	tests := []struct {
		month, day int
		want       bool
	}{
		{12, 25, true},
		{1, 5, true},
		{12, 20, true},
		{1, 10, true},
		{1, 11, false},
		{12, 19, false},
		{6, 1, false},
	}
	for _, tt := range tests {
		e := NewEvaluator(fixedCalendar{tt.month, tt.day}, nil, nil, nil, nil)
		got, err := e.Eligible(ctx, ev, Snapshot{}, nil)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "date %d/%d", tt.month, tt.day)
	}
}

func TestEligible_SeasonalIncompleteRange(t *testing.T) {
	ev := &Event{ID: "half", Type: TypeSeasonal, StartMonth: ptr(6), StartDay: ptr(1), EndMonth: ptr(8)}
	e := NewEvaluator(fixedCalendar{7, 1}, nil, nil, nil, nil)
	got, err := e.Eligible(context.Background(), ev, Snapshot{}, nil)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestEligible_SeasonalMonthOutsideCalendar(t *testing.T) {
	ctx := context.Background()
	ev := &Event{ID: "thirteenth", Type: TypeSeasonal, StartMonth: ptr(13), StartDay: ptr(1), EndMonth: ptr(13), EndDay: ptr(31)}
	assert.True(t, ev.HasDateRange())
	assert.False(t, ev.HasValidDateRange())

	e := NewEvaluator(fixedCalendar{12, 25}, nil, nil, nil, nil)
	got, err := e.Eligible(ctx, ev, Snapshot{}, nil)
	require.NoError(t, err)
	assert.False(t, got)

	got, err = e.EligibleForSeason(ctx, ev, Snapshot{}, Winter, nil)
	require.NoError(t, err)
	assert.False(t, got, "an invalid month is not filed under winter")
}

func TestEligibleForSeason(t *testing.T) {
	ctx := context.Background()
	e := NewEvaluator(fixedCalendar{12, 25}, nil, nil, nil, nil)
	ev := winterFestival()

	got, err := e.EligibleForSeason(ctx, ev, Snapshot{}, Winter, nil)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = e.EligibleForSeason(ctx, ev, Snapshot{}, Summer, nil)
	require.NoError(t, err)
	assert.False(t, got)

	climax := &Event{ID: "finale", Type: TypeClimactic, TriggerConditions: []string{"story:chapter=intro"}}
	got, err = e.EligibleForSeason(ctx, climax, Snapshot{Completed: map[string]bool{"intro": true}}, Summer, nil)
	require.NoError(t, err)
	assert.True(t, got, "season filter only applies to seasonal events")
}

func TestSeasonOf(t *testing.T) {
	want := map[int]Season{
		1: Winter, 2: Winter, 3: Spring, 5: Spring, 6: Summer, 8: Summer, 9: Autumn, 11: Autumn, 12: Winter,
	}
	for month, season := range want {
		assert.Equal(t, season, SeasonOf(month), "month %d", month)
	}

	s, ok := ParseSeason("Fall")
	assert.True(t, ok)
	assert.Equal(t, Autumn, s)
	_, ok = ParseSeason("monsoon")
	assert.False(t, ok)
}

func TestEligible_Random(t *testing.T) {
	ctx := context.Background()
	ev := &Event{ID: "storm", Type: TypeRandom, TriggerChance: ptr(0.3)}

	got, err := NewEvaluator(nil, constRand(0.29), nil, nil, nil).Eligible(ctx, ev, Snapshot{}, nil)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = NewEvaluator(nil, constRand(0.3), nil, nil, nil).Eligible(ctx, ev, Snapshot{}, nil)
	require.NoError(t, err)
	assert.False(t, got)

	noChance := &Event{ID: "never", Type: TypeRandom}
	got, err = NewEvaluator(nil, constRand(0), nil, nil, nil).Eligible(ctx, noChance, Snapshot{}, nil)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestEligible_RandomDrawsFresh(t *testing.T) {
	ctx := context.Background()
	ev := &Event{ID: "coin", Type: TypeRandom, TriggerChance: ptr(0.5)}
	e := NewEvaluator(nil, NewLockedRand(42), nil, nil, nil)

	seen := map[bool]int{}
	for range 200 {
		got, err := e.Eligible(ctx, ev, Snapshot{}, nil)
		require.NoError(t, err)
		seen[got]++
	}
	assert.Positive(t, seen[true])
	assert.Positive(t, seen[false])
}

func TestLockedRand_Seeded(t *testing.T) {
	a, b := NewLockedRand(7), NewLockedRand(7)
	for range 10 {
		v := a.Float64()
		assert.Equal(t, v, b.Float64())
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

func TestEligible_ChoiceTriggered(t *testing.T) {
	ctx := context.Background()
	e := NewEvaluator(nil, nil, nil, nil, nil)
	ev := &Event{ID: "betrayal", Type: TypeChoiceTriggered, RequiredChoices: []string{"intro_dialogue_0", "harbor_dialogue_2"}}

	got, err := e.Eligible(ctx, ev, Snapshot{Choices: map[string]int{"intro_dialogue_0": 1}}, nil)
	require.NoError(t, err)
	assert.False(t, got)

	got, err = e.Eligible(ctx, ev, Snapshot{Choices: map[string]int{"intro_dialogue_0": 1, "harbor_dialogue_2": 0, "x": 3}}, nil)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestEligible_Climactic(t *testing.T) {
	ctx := context.Background()
	e := NewEvaluator(nil, nil, nil, nil, nil)
	ev := &Event{ID: "finale", Type: TypeClimactic, TriggerConditions: []string{"story:chapter=intro", "story:chapter=harbor"}}

	got, err := e.Eligible(ctx, ev, Snapshot{Completed: map[string]bool{"intro": true}}, nil)
	require.NoError(t, err)
	assert.False(t, got)

	got, err = e.Eligible(ctx, ev, Snapshot{Completed: map[string]bool{"intro": true, "harbor": true}}, nil)
	require.NoError(t, err)
	assert.True(t, got)

	empty := &Event{ID: "hollow", Type: TypeClimactic}
	got, err = e.Eligible(ctx, empty, Snapshot{Completed: map[string]bool{"intro": true}}, nil)
	require.NoError(t, err)
	assert.False(t, got, "no trigger conditions is never eligible")
}

func TestEligible_GenericConditions(t *testing.T) {
	ctx := context.Background()
	e := NewEvaluator(nil, nil, nil, nil, nil)
	ev := &Event{ID: "market_day", Type: Type("AMBIENT"), TriggerConditions: []string{"action:location=market", "story:chapter=intro"}}
	s := Snapshot{Completed: map[string]bool{"intro": true}}

	got, err := e.Eligible(ctx, ev, s, map[string]string{"location": "market"})
	require.NoError(t, err)
	assert.True(t, got)

	got, err = e.Eligible(ctx, ev, s, map[string]string{"location": "market_square"})
	require.NoError(t, err)
	assert.False(t, got, "no partial matching")
}

func TestEligible_Romance(t *testing.T) {
	ctx := context.Background()
	romance := NewRomanceConfig(map[string]RomanceRoute{
		"3": {RequiredAffinity: 80, Events: []string{"romance_3_1", "romance_3_2"}},
	})
	step2 := &Event{ID: "romance_3_2", Type: TypeRomance}
	step1 := &Event{ID: "romance_3_1", Type: TypeRomance}
	s := Snapshot{PlayerID: "p1"}

	evaluate := func(ev *Event, rel *player.Relationship) bool {
		t.Helper()
		rels := stubRelationships{rels: map[string]*player.Relationship{}}
		if rel != nil {
			rels.rels["p1:3"] = rel
		}
		got, err := NewEvaluator(nil, nil, romance, rels, nil).Eligible(ctx, ev, s, nil)
		require.NoError(t, err)
		return got
	}

	triggered := []string{"romance_3_1"}
	assert.False(t, evaluate(step2, &player.Relationship{NPCID: "3", Affinity: 79, TriggeredEvents: triggered}))
	assert.True(t, evaluate(step2, &player.Relationship{NPCID: "3", Affinity: 80, TriggeredEvents: triggered}))
	assert.False(t, evaluate(step2, &player.Relationship{NPCID: "3", Affinity: 100}))
	assert.False(t, evaluate(step2, nil), "no relationship")

	assert.True(t, evaluate(step1, &player.Relationship{NPCID: "3", Affinity: 80}))
	assert.False(t, evaluate(step1, &player.Relationship{NPCID: "3", Affinity: 10}))

	unconfigured := &Event{ID: "romance_9_1", Type: TypeRomance}
	assert.False(t, evaluate(unconfigured, &player.Relationship{NPCID: "9", Affinity: 100}))
}

func TestEligible_RomanceLookupError(t *testing.T) {
	romance := NewRomanceConfig(map[string]RomanceRoute{"3": {RequiredAffinity: 1}})
	e := NewEvaluator(nil, nil, romance, stubRelationships{err: errors.New("down")}, nil)
	_, err := e.Eligible(context.Background(), &Event{ID: "romance_3_1", Type: TypeRomance}, Snapshot{PlayerID: "p1"}, nil)
	assert.Error(t, err)
}
