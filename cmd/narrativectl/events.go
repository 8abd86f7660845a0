package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/narrative-engine/internal/calendar"
	"github.com/jwebster45206/narrative-engine/pkg/event"
	"github.com/jwebster45206/narrative-engine/pkg/player"
	"github.com/jwebster45206/narrative-engine/pkg/storage"
)

type eventsOptions struct {
	date        string
	season      string
	romancePath string
	seed        uint64
	completed   []string
	choices     []string
	actions     []string
	affinities  []string
	triggered   []string
}

func newEventsCmd(opts *rootOptions) *cobra.Command {
	o := &eventsOptions{}
	cmd := &cobra.Command{
		Use:   "events <content-dir>",
		Short: "List the events a player in the given state would be eligible for",
		Example: `  narrativectl events ./data --date 2025-12-25 --season winter
  narrativectl events ./data --affinity 3=85 --triggered romance_3_1
  narrativectl events ./data --action location=fields --choice harbor_dialogue_0=1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, opts, args[0])
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.date, "date", "", "evaluation date as YYYY-MM-DD (default today, UTC)")
	f.StringVar(&o.season, "season", "", "restrict seasonal events to spring, summer, autumn or winter")
	f.StringVar(&o.romancePath, "romance", "", "romance route file (default <content-dir>/romance.toml)")
	f.Uint64Var(&o.seed, "seed", 0, "seed for random events (default unseeded)")
	f.StringSliceVar(&o.completed, "completed", nil, "completed chapter ids")
	f.StringSliceVar(&o.choices, "choice", nil, "recorded choice as key=index (repeatable)")
	f.StringSliceVar(&o.actions, "action", nil, "action data as key=value (repeatable)")
	f.StringSliceVar(&o.affinities, "affinity", nil, "NPC affinity as npc=value (repeatable)")
	f.StringSliceVar(&o.triggered, "triggered", nil, "romance events already triggered")
	return cmd
}

const playerID = "narrativectl"

func (o *eventsOptions) run(cmd *cobra.Command, opts *rootOptions, dir string) error {
	ctx := context.Background()

	cal := calendar.NewSystem(time.UTC)
	if o.date != "" {
		t, err := time.Parse(time.DateOnly, o.date)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
		cal = calendar.NewFixed(t)
	}

	var season event.Season
	if o.season != "" {
		s, ok := event.ParseSeason(o.season)
		if !ok {
			return fmt.Errorf("unknown season %q", o.season)
		}
		season = s
	}

	choices, err := parsePairs(o.choices, strconv.Atoi)
	if err != nil {
		return err
	}
	actions, err := parsePairs(o.actions, func(s string) (string, error) { return s, nil })
	if err != nil {
		return err
	}
	affinities, err := parsePairs(o.affinities, strconv.Atoi)
	if err != nil {
		return err
	}

	// Relationships go through the in-memory store the engine tests use
	rels := storage.NewMockStorage()
	for npc, affinity := range affinities {
		rel := player.NewRelationship(playerID, npc)
		rel.AdjustAffinity(affinity)
		for _, id := range o.triggered {
			if owner, _, ok := event.ParseRomanceID(id); ok && owner == npc {
				rel.AddTriggeredEvent(id)
			}
		}
		if err := rels.SaveRelationship(ctx, rel); err != nil {
			return err
		}
	}

	b, err := opts.loadDir(cmd, dir)
	if err != nil {
		return err
	}
	romance, err := opts.loadRomance(cmd, dir, o.romancePath)
	if err != nil {
		return err
	}

	var rnd event.Random
	if o.seed != 0 {
		rnd = event.NewLockedRand(o.seed)
	}
	evaluator := event.NewEvaluator(cal, rnd, romance, rels, opts.logger(cmd))

	completed := make(map[string]bool, len(o.completed))
	for _, id := range o.completed {
		completed[id] = true
	}
	snap := event.Snapshot{PlayerID: playerID, Completed: completed, Choices: choices}

	out := cmd.OutOrStdout()
	for _, ev := range b.Events.All() {
		var ok bool
		if season != "" {
			ok, err = evaluator.EligibleForSeason(ctx, ev, snap, season, actions)
		} else {
			ok, err = evaluator.Eligible(ctx, ev, snap, actions)
		}
		if err != nil {
			return err
		}
		if ok {
			fmt.Fprintf(out, "%s\t%s\n", ev.ID, ev.Type)
		}
	}
	return nil
}

// parsePairs splits key=value flags, converting each value with conv
func parsePairs[V any](raw []string, conv func(string) (V, error)) (map[string]V, error) {
	out := make(map[string]V, len(raw))
	for _, s := range raw {
		key, value, ok := strings.Cut(s, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid value %q, expected key=value", s)
		}
		v, err := conv(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", s, err)
		}
		out[key] = v
	}
	return out, nil
}
