// Package engine drives a player's progression through the chapter graph
// and through supplemental events.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jwebster45206/narrative-engine/internal/lock"
	"github.com/jwebster45206/narrative-engine/pkg/chapter"
	"github.com/jwebster45206/narrative-engine/pkg/consequence"
	"github.com/jwebster45206/narrative-engine/pkg/event"
	"github.com/jwebster45206/narrative-engine/pkg/player"
	"github.com/jwebster45206/narrative-engine/pkg/progress"
	"github.com/jwebster45206/narrative-engine/pkg/storage"
)

// Locker serializes mutations per player. The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Reputation accepts affinity and faction deltas and returns the resulting standing
type Reputation interface {
	AdjustAffinity(ctx context.Context, playerID, npcID string, delta int) (int, error)
	AdjustFaction(ctx context.Context, playerID, factionID string, delta int) (int, error)
}

// Config wires an Engine. Registry, Storage, Tracker and Evaluator are required;
// the rest have defaults.
type Config struct {
	Registry   *chapter.Registry
	Storage    storage.Storage
	Tracker    *consequence.Tracker
	Evaluator  *event.Evaluator
	Events     *event.Catalog
	Reputation Reputation // defaults to StorageReputation over Storage
	Locker     Locker     // defaults to an in-process lock.KeyedMutex
	Notifier   Notifier   // defaults to discarding notifications
	Logger     *slog.Logger
	Now        func() time.Time
}

type Engine struct {
	registry   *chapter.Registry
	store      storage.Storage
	tracker    *consequence.Tracker
	evaluator  *event.Evaluator
	events     atomic.Pointer[event.Catalog]
	reputation Reputation
	locker     Locker
	notifier   Notifier
	logger     *slog.Logger
	now        func() time.Time
}

func New(cfg Config) *Engine {
	e := &Engine{
		registry:   cfg.Registry,
		store:      cfg.Storage,
		tracker:    cfg.Tracker,
		evaluator:  cfg.Evaluator,
		reputation: cfg.Reputation,
		locker:     cfg.Locker,
		notifier:   cfg.Notifier,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}
	if e.registry == nil {
		e.registry = chapter.NewRegistry(nil)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.tracker == nil {
		e.tracker = consequence.NewTracker(nopLedger{}, e.logger)
	}
	if e.evaluator == nil {
		e.evaluator = event.NewEvaluator(nil, nil, nil, e.store, e.logger)
	}
	if e.reputation == nil {
		e.reputation = NewStorageReputation(e.store)
	}
	if e.locker == nil {
		e.locker = lock.NewKeyedMutex()
	}
	if e.notifier == nil {
		e.notifier = nopNotifier{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	e.SetEvents(cfg.Events)
	return e
}

// Graph returns the chapter graph currently in use
func (e *Engine) Graph() *chapter.Graph {
	return e.registry.Current()
}

// SetEvents replaces the event catalog
func (e *Engine) SetEvents(c *event.Catalog) {
	if c == nil {
		c, _ = event.NewCatalog(nil)
	}
	e.events.Store(c)
}

// Events returns the event catalog currently in use
func (e *Engine) Events() *event.Catalog {
	return e.events.Load()
}

// Tracker returns the consequence tracker decisions are recorded with
func (e *Engine) Tracker() *consequence.Tracker {
	return e.tracker
}

// withPlayerLock runs fn while holding the player's lock
func (e *Engine) withPlayerLock(ctx context.Context, playerID string, fn func() *Result) *Result {
	unlock, err := e.locker.Lock(ctx, "player:"+playerID)
	if err != nil {
		e.logger.Error("Failed to acquire player lock", "player_id", playerID, "error", err)
		return fail(CodeStorageError, "failed to acquire player lock")
	}
	defer unlock()
	return fn()
}

// loadProgress loads the player's progress, creating a fresh record if none exists
func (e *Engine) loadProgress(ctx context.Context, playerID string) (*progress.Progress, *Result) {
	p, err := e.store.GetProgress(ctx, playerID)
	if err != nil {
		e.logger.Error("Failed to load progress", "player_id", playerID, "error", err)
		return nil, fail(CodeStorageError, "failed to load progress")
	}
	if p == nil {
		p = progress.New(playerID, e.now())
	}
	return p, nil
}

// loadPlayer loads the player aggregate, creating a fresh one if none exists
func (e *Engine) loadPlayer(ctx context.Context, playerID string) (*player.Player, *Result) {
	pl, err := e.store.GetPlayer(ctx, playerID)
	if err != nil {
		e.logger.Error("Failed to load player", "player_id", playerID, "error", err)
		return nil, fail(CodeStorageError, "failed to load player")
	}
	if pl == nil {
		pl = player.New(playerID, e.now())
	}
	return pl, nil
}

func (e *Engine) saveProgress(ctx context.Context, p *progress.Progress) *Result {
	p.UpdatedAt = e.now()
	if err := e.store.SaveProgress(ctx, p); err != nil {
		e.logger.Error("Failed to save progress", "player_id", p.PlayerID, "error", err)
		return fail(CodeStorageError, "failed to save progress")
	}
	return nil
}

func (e *Engine) savePlayer(ctx context.Context, pl *player.Player) *Result {
	pl.UpdatedAt = e.now()
	if err := e.store.SavePlayer(ctx, pl); err != nil {
		e.logger.Error("Failed to save player", "player_id", pl.ID, "error", err)
		return fail(CodeStorageError, "failed to save player")
	}
	return nil
}

// commitPlayerThenProgress saves pl and then p. If the progress save fails the
// player is written back to prev, so neither record runs ahead of the other.
func (e *Engine) commitPlayerThenProgress(ctx context.Context, p *progress.Progress, pl, prev *player.Player) *Result {
	if r := e.savePlayer(ctx, pl); r != nil {
		return r
	}
	if r := e.saveProgress(ctx, p); r != nil {
		e.restore(ctx, nil, prev)
		return r
	}
	return nil
}

// restore writes back records saved earlier in a mutation that later failed.
// A nil argument is skipped.
func (e *Engine) restore(ctx context.Context, p *progress.Progress, pl *player.Player) {
	if p != nil {
		if err := e.store.SaveProgress(ctx, p); err != nil {
			e.logger.Error("Failed to restore progress", "player_id", p.PlayerID, "error", err)
		}
	}
	if pl != nil {
		if err := e.store.SavePlayer(ctx, pl); err != nil {
			e.logger.Error("Failed to restore player", "player_id", pl.ID, "error", err)
		}
	}
}

func requirePlayer(playerID string) *Result {
	if playerID == "" {
		return fail(CodeInvalidRequest, "player id is required")
	}
	return nil
}

func chapterNotFound(id string) *Result {
	return fail(CodeNotFound, fmt.Sprintf("chapter %q not found", id))
}

// nopLedger lets an engine run without a consequence store
type nopLedger struct{}

func (nopLedger) InsertConsequence(context.Context, *consequence.Consequence) error { return nil }
func (nopLedger) GetConsequence(context.Context, string) (*consequence.Consequence, error) {
	return nil, nil
}
func (nopLedger) ListConsequences(context.Context, string) ([]*consequence.Consequence, error) {
	return []*consequence.Consequence{}, nil
}
func (nopLedger) AppendReflections(context.Context, string, []string) (bool, error) {
	return false, nil
}
func (nopLedger) AppendAlternativePaths(context.Context, string, []string) (bool, error) {
	return false, nil
}
func (nopLedger) Deactivate(context.Context, string) (bool, error) { return false, nil }
func (nopLedger) ChoiceTally(context.Context, string, string, string) (int, int, error) {
	return 0, 0, nil
}
