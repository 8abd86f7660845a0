package engine

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jwebster45206/narrative-engine/pkg/chapter"
	"github.com/jwebster45206/narrative-engine/pkg/condition"
	"github.com/jwebster45206/narrative-engine/pkg/consequence"
	"github.com/jwebster45206/narrative-engine/pkg/effect"
	"github.com/jwebster45206/narrative-engine/pkg/player"
	"github.com/jwebster45206/narrative-engine/pkg/progress"
)

// StartChapter places the player at the first dialogue of chapterID
func (e *Engine) StartChapter(ctx context.Context, playerID, chapterID string) *Result {
	if r := requirePlayer(playerID); r != nil {
		return r
	}
	if _, ok := e.Graph().GetChapter(chapterID); !ok {
		return chapterNotFound(chapterID)
	}

	return e.withPlayerLock(ctx, playerID, func() *Result {
		p, r := e.loadProgress(ctx, playerID)
		if r != nil {
			return r
		}
		p.CurrentChapterID = chapterID
		p.CurrentDialogueIndex = 0
		if r := e.saveProgress(ctx, p); r != nil {
			return r
		}

		e.logger.Info("Chapter started", "player_id", playerID, "chapter_id", chapterID)
		e.notify(ctx, Notification{Type: NotifyChapterStarted, PlayerID: playerID, ChapterID: chapterID})
		return &Result{Success: true, Progress: p.Clone()}
	})
}

// CompleteChapter marks chapterID completed. Rewards are granted only the
// first time; the pointer is cleared if the player is in that chapter.
func (e *Engine) CompleteChapter(ctx context.Context, playerID, chapterID string) *Result {
	if r := requirePlayer(playerID); r != nil {
		return r
	}
	ch, ok := e.Graph().GetChapter(chapterID)
	if !ok {
		return chapterNotFound(chapterID)
	}

	return e.withPlayerLock(ctx, playerID, func() *Result {
		p, r := e.loadProgress(ctx, playerID)
		if r != nil {
			return r
		}
		pl, r := e.loadPlayer(ctx, playerID)
		if r != nil {
			return r
		}

		prev := pl.Clone()
		granted := e.completeChapter(p, pl, ch)
		if granted {
			// Rewards land before the completion that guards them
			if r := e.commitPlayerThenProgress(ctx, p, pl, prev); r != nil {
				return r
			}
			e.notify(ctx, Notification{Type: NotifyChapterCompleted, PlayerID: playerID, ChapterID: chapterID})
		} else if r := e.saveProgress(ctx, p); r != nil {
			return r
		}

		res := &Result{Success: true, Progress: p.Clone(), Player: pl.Clone(), DialogueIndex: p.CurrentDialogueIndex}
		if !granted {
			res.Message = "chapter already completed"
		}
		return res
	})
}

// completeChapter applies completion to p and pl and reports whether this
// was the first completion
func (e *Engine) completeChapter(p *progress.Progress, pl *player.Player, ch *chapter.Chapter) bool {
	granted := p.MarkCompleted(ch.ID)
	if granted {
		pl.Experience += ch.CompletionExp
		pl.Currency += ch.CompletionCurrency
		e.logger.Info("Chapter completed", "player_id", p.PlayerID, "chapter_id", ch.ID,
			"exp", ch.CompletionExp, "currency", ch.CompletionCurrency)
	}
	if p.CurrentChapterID == ch.ID {
		p.CurrentChapterID = ""
		p.CurrentDialogueIndex = 0
	}
	return granted
}

// ProcessChoice resolves choiceIndex against the active choice list at the
// player's position, applies its effects and moves the player on.
func (e *Engine) ProcessChoice(ctx context.Context, playerID string, choiceIndex int) *Result {
	if r := requirePlayer(playerID); r != nil {
		return r
	}
	return e.withPlayerLock(ctx, playerID, func() *Result {
		return e.processChoice(ctx, playerID, choiceIndex)
	})
}

func (e *Engine) processChoice(ctx context.Context, playerID string, choiceIndex int) *Result {
	p, err := e.store.GetProgress(ctx, playerID)
	if err != nil {
		e.logger.Error("Failed to load progress", "player_id", playerID, "error", err)
		return fail(CodeStorageError, "failed to load progress")
	}
	if p == nil || !p.InChapter() {
		return fail(CodeNoActiveChapter, "player is not in a chapter")
	}

	graph := e.Graph()
	ch, ok := graph.GetChapter(p.CurrentChapterID)
	if !ok {
		return chapterNotFound(p.CurrentChapterID)
	}

	dialogueIndex := p.CurrentDialogueIndex
	choices := ch.ActiveChoices(dialogueIndex)
	if len(choices) == 0 {
		return fail(CodeNoChoicesAvailable, fmt.Sprintf("no choices available at %s dialogue %d", ch.ID, dialogueIndex))
	}
	if choiceIndex < 0 || choiceIndex >= len(choices) {
		return fail(CodeInvalidChoiceIndex, fmt.Sprintf("choice index %d out of range [0, %d)", choiceIndex, len(choices)))
	}
	choice := choices[choiceIndex]
	if choice.Invalid {
		return fail(CodeInvalidChoice, fmt.Sprintf("choice %d at %s dialogue %d is malformed", choiceIndex, ch.ID, dialogueIndex))
	}

	pl, r := e.loadPlayer(ctx, playerID)
	if r != nil {
		return r
	}

	prevProgress, prevPlayer := p.Clone(), pl.Clone()
	key := p.RecordChoice(ch.ID, dialogueIndex, choiceIndex)
	forward := e.applyEffects(p, pl, choice.Effects)

	// Navigation: advance, complete, jump to scene, then transition
	position := dialogueIndex + 1
	if choice.NextDialogueIndex != nil {
		position = *choice.NextDialogueIndex
	}
	p.CurrentDialogueIndex = position

	completed := false
	if choice.CompleteChapter {
		completed = e.completeChapter(p, pl, ch)
	}

	if choice.NextSceneID != "" {
		if idx, found := ch.SceneIndex(choice.NextSceneID); found {
			position = idx
			if p.CurrentChapterID == ch.ID {
				p.CurrentDialogueIndex = idx
			}
		} else {
			e.logger.Warn("Choice targets an unknown scene", "chapter_id", ch.ID, "scene_id", choice.NextSceneID)
		}
	}

	nextChapter := ""
	overflow := position >= len(ch.Dialogues)
	if choice.NextChapterID != "" || overflow {
		if target := e.resolveTransition(graph, ch, choice, p); target != "" {
			p.CurrentChapterID = target
			p.CurrentDialogueIndex = 0
			nextChapter = target
		}
	}
	// Running off the end with nowhere to go finishes the chapter
	if overflow && nextChapter == "" && p.CurrentChapterID == ch.ID {
		completed = e.completeChapter(p, pl, ch) || completed
	}

	// Player, then progress, then the decision. A failure restores what was
	// already written so the choice can be retried at the same position.
	if r := e.commitPlayerThenProgress(ctx, p, pl, prevPlayer); r != nil {
		return r
	}

	c, err := e.tracker.TrackPlayerDecision(ctx, consequence.Decision{
		PlayerID:   playerID,
		ChapterID:  ch.ID,
		SceneID:    "dialogue_" + strconv.Itoa(dialogueIndex),
		ChoiceText: choice.Text,
		Context: map[string]string{
			"choice_key":   key,
			"choice_index": strconv.Itoa(choiceIndex),
		},
		Type:           consequence.TypeImmediate,
		Effects:        effectStrings(choice.Effects),
		RelatedChoices: []string{key},
		AffectedNPCs:   affectedNPCs(choice.Effects),
	})
	if err != nil {
		e.logger.Error("Failed to record decision", "player_id", playerID, "choice_key", key, "error", err)
		e.restore(ctx, prevProgress, prevPlayer)
		return fail(CodeStorageError, "failed to record decision")
	}
	e.forwardReputation(ctx, playerID, forward)

	e.logger.Debug("Choice processed", "player_id", playerID, "choice_key", key, "choice_index", choiceIndex,
		"dialogue_index", p.CurrentDialogueIndex, "next_chapter", nextChapter)
	e.notify(ctx, Notification{
		Type:      NotifyChoiceProcessed,
		PlayerID:  playerID,
		ChapterID: ch.ID,
		Data: map[string]any{
			"choice_key":     key,
			"choice_index":   choiceIndex,
			"dialogue_index": p.CurrentDialogueIndex,
			"next_chapter":   nextChapter,
		},
	})
	if completed {
		e.notify(ctx, Notification{Type: NotifyChapterCompleted, PlayerID: playerID, ChapterID: ch.ID})
	}

	return &Result{
		Success:       true,
		Progress:      p.Clone(),
		Player:        pl.Clone(),
		DialogueIndex: p.CurrentDialogueIndex,
		NextChapter:   nextChapter,
		ChoiceKey:     key,
		Consequence:   c,
	}
}

// resolveTransition picks the chapter a choice leads to: the first matching
// conditional target in key order, then the choice's next_chapter, then the
// chapter's own. Targets missing from the graph are skipped.
func (e *Engine) resolveTransition(graph *chapter.Graph, ch *chapter.Chapter, choice chapter.Choice, p *progress.Progress) string {
	if len(choice.ConditionalNextChapter) > 0 {
		cctx := condition.Context{Completed: p.CompletedSet(), Choices: p.Choices}
		for _, cond := range sortedKeys(choice.ConditionalNextChapter) {
			target := choice.ConditionalNextChapter[cond]
			if condition.Match(cond, cctx) && graph.Has(target) {
				return target
			}
		}
	}
	for _, target := range []string{choice.NextChapterID, ch.NextChapterID} {
		if target == "" {
			continue
		}
		if graph.Has(target) {
			return target
		}
		e.logger.Warn("Transition target does not exist", "chapter_id", ch.ID, "target", target)
	}
	return ""
}

// applyEffects applies player-owned effects to pl and relationship and faction
// deltas to p. It returns the deltas to forward to the reputation collaborator.
func (e *Engine) applyEffects(p *progress.Progress, pl *player.Player, effects []effect.Effect) []effect.Effect {
	var forward []effect.Effect
	for _, eff := range effects {
		switch eff.Kind {
		case effect.KindRelationship:
			p.AdjustRelationship(eff.Target, eff.Delta)
			forward = append(forward, eff)
		case effect.KindFactionReputation:
			p.AdjustFaction(eff.Target, eff.Delta)
			forward = append(forward, eff)
		case effect.KindUnknown:
			e.logger.Warn("Ignoring unrecognized effect", "player_id", p.PlayerID, "token", eff.Value)
		default:
			pl.Apply(eff)
		}
	}
	return forward
}

func (e *Engine) forwardReputation(ctx context.Context, playerID string, effects []effect.Effect) {
	for _, eff := range effects {
		var err error
		switch eff.Kind {
		case effect.KindRelationship:
			_, err = e.reputation.AdjustAffinity(ctx, playerID, eff.Target, eff.Delta)
		case effect.KindFactionReputation:
			_, err = e.reputation.AdjustFaction(ctx, playerID, eff.Target, eff.Delta)
		}
		if err != nil {
			e.logger.Error("Failed to forward reputation change", "player_id", playerID, "effect", eff.String(), "error", err)
		}
	}
}

// AvailableChapters lists the chapters the player can start now
func (e *Engine) AvailableChapters(ctx context.Context, playerID string) *Result {
	if r := requirePlayer(playerID); r != nil {
		return r
	}
	p, r := e.loadProgress(ctx, playerID)
	if r != nil {
		return r
	}
	pl, r := e.loadPlayer(ctx, playerID)
	if r != nil {
		return r
	}

	snap := chapter.NewSnapshot(p.CompletedChapters, pl.Attributes)
	return &Result{Success: true, Chapters: e.Graph().AvailableChapters(snap), Progress: p}
}

// GetProgress returns the player's progress and player aggregate
func (e *Engine) GetProgress(ctx context.Context, playerID string) *Result {
	if r := requirePlayer(playerID); r != nil {
		return r
	}
	p, err := e.store.GetProgress(ctx, playerID)
	if err != nil {
		e.logger.Error("Failed to load progress", "player_id", playerID, "error", err)
		return fail(CodeStorageError, "failed to load progress")
	}
	if p == nil {
		return fail(CodeNotFound, fmt.Sprintf("no progress for player %q", playerID))
	}
	pl, r := e.loadPlayer(ctx, playerID)
	if r != nil {
		return r
	}
	return &Result{Success: true, Progress: p, Player: pl, DialogueIndex: p.CurrentDialogueIndex}
}

func effectStrings(effects []effect.Effect) []string {
	out := make([]string, len(effects))
	for i, eff := range effects {
		out[i] = eff.String()
	}
	return out
}

func affectedNPCs(effects []effect.Effect) []string {
	var out []string
	for _, eff := range effects {
		if eff.Kind == effect.KindRelationship {
			out = append(out, eff.Target)
		}
	}
	return out
}
