package engine

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/jwebster45206/narrative-engine/pkg/effect"
	"github.com/jwebster45206/narrative-engine/pkg/event"
	"github.com/jwebster45206/narrative-engine/pkg/player"
	"github.com/jwebster45206/narrative-engine/pkg/progress"
)

func snapshotOf(p *progress.Progress) event.Snapshot {
	return event.Snapshot{
		PlayerID:  p.PlayerID,
		Completed: p.CompletedSet(),
		Choices:   p.Choices,
	}
}

// EligibleEvents lists the ids of the events that apply to the player now.
// A non-empty season additionally restricts seasonal events to that season.
func (e *Engine) EligibleEvents(ctx context.Context, playerID string, season event.Season, actionData map[string]string) *Result {
	if r := requirePlayer(playerID); r != nil {
		return r
	}
	p, r := e.loadProgress(ctx, playerID)
	if r != nil {
		return r
	}
	snap := snapshotOf(p)

	eligible := []string{}
	for _, ev := range e.Events().All() {
		var (
			ok  bool
			err error
		)
		if season != "" {
			ok, err = e.evaluator.EligibleForSeason(ctx, ev, snap, season, actionData)
		} else {
			ok, err = e.evaluator.Eligible(ctx, ev, snap, actionData)
		}
		if err != nil {
			e.logger.Error("Failed to evaluate event", "player_id", playerID, "event_id", ev.ID, "error", err)
			return fail(CodeStorageError, "failed to evaluate events")
		}
		if ok {
			eligible = append(eligible, ev.ID)
		}
	}
	return &Result{Success: true, Events: eligible}
}

// TriggerEvent re-checks eligibility and records the trigger: the player joins
// the event's participants, the trigger time is kept in progress, and romance
// events are added to the NPC relationship.
func (e *Engine) TriggerEvent(ctx context.Context, playerID, eventID string, actionData map[string]string) *Result {
	if r := requirePlayer(playerID); r != nil {
		return r
	}
	ev, ok := e.Events().Get(eventID)
	if !ok {
		return fail(CodeNotFound, fmt.Sprintf("event %q not found", eventID))
	}

	return e.withPlayerLock(ctx, playerID, func() *Result {
		p, r := e.loadProgress(ctx, playerID)
		if r != nil {
			return r
		}

		eligible, err := e.evaluator.Eligible(ctx, ev, snapshotOf(p), actionData)
		if err != nil {
			e.logger.Error("Failed to evaluate event", "player_id", playerID, "event_id", eventID, "error", err)
			return fail(CodeStorageError, "failed to evaluate event")
		}
		if !eligible {
			return fail(CodeNotEligible, fmt.Sprintf("event %q is not eligible", eventID))
		}

		// Participants, then the romance step, then progress. Each failure
		// undoes the writes before it.
		added, err := e.store.AddEventParticipant(ctx, eventID, playerID)
		if err != nil {
			e.logger.Error("Failed to add event participant", "player_id", playerID, "event_id", eventID, "error", err)
			return fail(CodeStorageError, "failed to record event participant")
		}
		undo := func() {
			if !added {
				return
			}
			if err := e.store.RemoveEventParticipant(ctx, eventID, playerID); err != nil {
				e.logger.Error("Failed to remove event participant", "player_id", playerID, "event_id", eventID, "error", err)
			}
		}

		if ev.Type == event.TypeRomance {
			prevRel, r := e.recordRomanceStep(ctx, playerID, eventID)
			if r != nil {
				undo()
				return r
			}
			if prevRel != nil {
				undoParticipant := undo
				undo = func() {
					if err := e.store.SaveRelationship(ctx, prevRel); err != nil {
						e.logger.Error("Failed to restore relationship", "player_id", playerID, "npc_id", prevRel.NPCID, "error", err)
					}
					undoParticipant()
				}
			}
		}

		p.MarkTriggered(eventID, e.now())
		if r := e.saveProgress(ctx, p); r != nil {
			undo()
			return r
		}

		e.logger.Info("Event triggered", "player_id", playerID, "event_id", eventID, "type", ev.Type)
		e.notify(ctx, Notification{Type: NotifyEventTriggered, PlayerID: playerID, EventID: eventID})
		return &Result{Success: true, Progress: p.Clone(), Events: []string{eventID}}
	})
}

// recordRomanceStep adds eventID to the NPC relationship. It returns the
// relationship as it was before the write, or nil when nothing was written.
func (e *Engine) recordRomanceStep(ctx context.Context, playerID, eventID string) (*player.Relationship, *Result) {
	npcID, _, ok := event.ParseRomanceID(eventID)
	if !ok {
		return nil, nil
	}
	rel, err := e.store.GetRelationship(ctx, playerID, npcID)
	if err != nil {
		e.logger.Error("Failed to load relationship", "player_id", playerID, "npc_id", npcID, "error", err)
		return nil, fail(CodeStorageError, "failed to load relationship")
	}
	if rel == nil {
		rel = player.NewRelationship(playerID, npcID)
	}
	prev := rel.Clone()
	if !rel.AddTriggeredEvent(eventID) {
		return nil, nil
	}
	if err := e.store.SaveRelationship(ctx, rel); err != nil {
		e.logger.Error("Failed to save relationship", "player_id", playerID, "npc_id", npcID, "error", err)
		return nil, fail(CodeStorageError, "failed to save relationship")
	}
	return prev, nil
}

// CompleteEvent grants a triggered event's rewards. Rewards are granted once;
// unrecognized reward tokens are logged and skipped.
func (e *Engine) CompleteEvent(ctx context.Context, playerID, eventID string) *Result {
	if r := requirePlayer(playerID); r != nil {
		return r
	}
	ev, ok := e.Events().Get(eventID)
	if !ok {
		return fail(CodeNotFound, fmt.Sprintf("event %q not found", eventID))
	}

	return e.withPlayerLock(ctx, playerID, func() *Result {
		p, r := e.loadProgress(ctx, playerID)
		if r != nil {
			return r
		}
		if !p.HasTriggered(eventID) {
			return fail(CodeNotTriggered, fmt.Sprintf("event %q has not been triggered", eventID))
		}
		pl, r := e.loadPlayer(ctx, playerID)
		if r != nil {
			return r
		}
		prev := pl.Clone()
		if !p.MarkEventCompleted(eventID) {
			return &Result{Success: true, Message: "event already completed", Progress: p.Clone(), Player: pl.Clone()}
		}

		granted := []effect.Effect{}
		for _, reward := range ev.RewardEffects {
			if reward.Kind == effect.KindUnknown {
				e.logger.Warn("Ignoring unrecognized reward", "event_id", eventID, "token", reward.Value)
				continue
			}
			granted = append(granted, reward)
		}
		forward := e.applyEffects(p, pl, granted)

		if r := e.commitPlayerThenProgress(ctx, p, pl, prev); r != nil {
			return r
		}
		e.forwardReputation(ctx, playerID, forward)

		e.logger.Info("Event completed", "player_id", playerID, "event_id", eventID, "rewards", len(granted))
		e.notify(ctx, Notification{Type: NotifyEventCompleted, PlayerID: playerID, EventID: eventID})
		return &Result{Success: true, Progress: p.Clone(), Player: pl.Clone(), Rewards: granted}
	})
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
