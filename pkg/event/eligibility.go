package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/narrative-engine/pkg/condition"
	"github.com/jwebster45206/narrative-engine/pkg/player"
)

// RelationshipLookup returns a player's relationship with an NPC, or nil when none exists
type RelationshipLookup interface {
	GetRelationship(ctx context.Context, playerID, npcID string) (*player.Relationship, error)
}

// Snapshot is the player state events are evaluated against
type Snapshot struct {
	PlayerID  string
	Completed map[string]bool
	Choices   map[string]int
}

// Evaluator decides event eligibility. It reads state but never changes it.
type Evaluator struct {
	calendar      Calendar
	random        Random
	romance       *RomanceConfig
	relationships RelationshipLookup
	logger        *slog.Logger
}

// NewEvaluator builds an evaluator. A nil random source uses the runtime's
// shared generator; a nil romance config disables romance events.
func NewEvaluator(cal Calendar, rnd Random, romance *RomanceConfig, rels RelationshipLookup, logger *slog.Logger) *Evaluator {
	if rnd == nil {
		rnd = globalRand{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		calendar:      cal,
		random:        rnd,
		romance:       romance,
		relationships: rels,
		logger:        logger,
	}
}

// Eligible reports whether ev applies to the player. Only the relationship
// lookup can fail; every other rule is a pure predicate.
func (e *Evaluator) Eligible(ctx context.Context, ev *Event, s Snapshot, actionData map[string]string) (bool, error) {
	switch ev.Type {
	case TypeSeasonal:
		return e.seasonal(ev), nil
	case TypeRandom:
		return e.randomDraw(ev), nil
	case TypeChoiceTriggered:
		return choicesRecorded(ev, s), nil
	case TypeRomance:
		return e.romanceEligible(ctx, ev, s)
	case TypeClimactic:
		return e.conditionsMet(ev, s, nil), nil
	default:
		return e.conditionsMet(ev, s, actionData), nil
	}
}

// EligibleForSeason is Eligible with seasonal events additionally required
// to start in season
func (e *Evaluator) EligibleForSeason(ctx context.Context, ev *Event, s Snapshot, season Season, actionData map[string]string) (bool, error) {
	if ev.Type == TypeSeasonal {
		if !ev.HasValidDateRange() || SeasonOf(*ev.StartMonth) != season {
			return false, nil
		}
	}
	return e.Eligible(ctx, ev, s, actionData)
}

func (e *Evaluator) seasonal(ev *Event) bool {
	if !ev.HasValidDateRange() || e.calendar == nil {
		return false
	}
	return e.calendar.InRange(*ev.StartMonth, *ev.StartDay, *ev.EndMonth, *ev.EndDay)
}

// randomDraw takes a fresh draw on every call
func (e *Evaluator) randomDraw(ev *Event) bool {
	if ev.TriggerChance == nil {
		return false
	}
	return e.random.Float64() < *ev.TriggerChance
}

func choicesRecorded(ev *Event, s Snapshot) bool {
	for _, key := range ev.RequiredChoices {
		if _, ok := s.Choices[key]; !ok {
			return false
		}
	}
	return true
}

func (e *Evaluator) romanceEligible(ctx context.Context, ev *Event, s Snapshot) (bool, error) {
	npcID, step, ok := ParseRomanceID(ev.ID)
	if !ok {
		return false, nil
	}
	route, ok := e.romance.Route(npcID)
	if !ok {
		e.logger.Debug("No romance route configured", "event_id", ev.ID, "npc_id", npcID)
		return false, nil
	}
	if e.relationships == nil {
		return false, nil
	}

	rel, err := e.relationships.GetRelationship(ctx, s.PlayerID, npcID)
	if err != nil {
		return false, fmt.Errorf("failed to load relationship: %w", err)
	}
	if rel == nil || rel.Affinity < route.RequiredAffinity {
		return false, nil
	}

	if prev, needed := route.PreviousStep(npcID, step, ev.ID); needed {
		return rel.HasTriggered(prev), nil
	}
	return true, nil
}

// conditionsMet requires every trigger condition to match; an event with
// none never matches
func (e *Evaluator) conditionsMet(ev *Event, s Snapshot, actionData map[string]string) bool {
	return condition.MatchAll(ev.TriggerConditions, condition.Context{
		ActionData: actionData,
		Completed:  s.Completed,
		Choices:    s.Choices,
	})
}
