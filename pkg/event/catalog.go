package event

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"

	"github.com/jwebster45206/narrative-engine/pkg/effect"
)

// TreeDir is the content directory event definitions are loaded from
const TreeDir = "events"

// Catalog is an immutable id -> Event index
type Catalog struct {
	events map[string]*Event
	ids    []string
}

// NewCatalog indexes events by id; the first event with an id wins
func NewCatalog(events []*Event) (*Catalog, []error) {
	c := &Catalog{events: make(map[string]*Event, len(events))}
	var errs []error
	for _, ev := range events {
		if ev == nil {
			continue
		}
		if ev.ID == "" {
			errs = append(errs, fmt.Errorf("%s: event has no id", ev.Source))
			continue
		}
		if _, dup := c.events[ev.ID]; dup {
			errs = append(errs, fmt.Errorf("%s: duplicate event id %q", ev.Source, ev.ID))
			continue
		}
		c.events[ev.ID] = ev
		c.ids = append(c.ids, ev.ID)
	}
	slices.Sort(c.ids)
	return c, errs
}

// Get returns the event with the given id
func (c *Catalog) Get(id string) (*Event, bool) {
	if c == nil {
		return nil, false
	}
	ev, ok := c.events[id]
	return ev, ok
}

// All returns every event in id order
func (c *Catalog) All() []*Event {
	if c == nil {
		return nil
	}
	out := make([]*Event, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.events[id])
	}
	return out
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.ids)
}

// Load reads every event definition under events/ in fsys.
// Units that fail to decode are skipped and reported; a missing tree yields
// an empty catalog.
func Load(fsys fs.FS, logger *slog.Logger) (*Catalog, []error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		events []*Event
		errs   []error
	)

	err := fs.WalkDir(fsys, TreeDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == TreeDir {
				return fs.SkipDir
			}
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
			return nil
		}
		ext := strings.ToLower(path.Ext(p))
		if d.IsDir() || (ext != ".json" && ext != ".yaml" && ext != ".yml") {
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
			return nil
		}
		decoded, err := Decode(data, ext)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
			return nil
		}

		stem := strings.TrimSuffix(path.Base(p), path.Ext(p))
		for _, ev := range decoded {
			if ev.ID == "" && len(decoded) == 1 {
				ev.ID = stem
			}
			ev.Source = p
			ev.prepare()
			warnUnusable(logger, ev)
			events = append(events, ev)
		}
		return nil
	})
	if err != nil {
		errs = append(errs, err)
	}

	c, dupErrs := NewCatalog(events)
	errs = append(errs, dupErrs...)

	for _, e := range errs {
		logger.Warn("Skipped event content", "error", e)
	}
	logger.Info("Events loaded", "events", c.Len(), "skipped", len(errs))
	return c, errs
}

// warnUnusable logs definitions that load but can never become eligible
func warnUnusable(logger *slog.Logger, ev *Event) {
	switch ev.Type {
	case TypeSeasonal:
		if !ev.HasDateRange() {
			logger.Warn("Seasonal event has an incomplete date range", "event_id", ev.ID)
		} else if !ev.HasValidDateRange() {
			logger.Warn("Seasonal event date range is outside the calendar", "event_id", ev.ID,
				"start", fmt.Sprintf("%d/%d", *ev.StartMonth, *ev.StartDay),
				"end", fmt.Sprintf("%d/%d", *ev.EndMonth, *ev.EndDay))
		}
	case TypeRandom:
		if ev.TriggerChance == nil {
			logger.Warn("Random event has no trigger_chance", "event_id", ev.ID)
		}
	case TypeRomance:
		if _, _, ok := ParseRomanceID(ev.ID); !ok {
			logger.Warn("Romance event id does not encode an npc and step", "event_id", ev.ID)
		}
	case TypeClimactic:
		if len(ev.TriggerConditions) == 0 {
			logger.Warn("Climactic event has no trigger conditions", "event_id", ev.ID)
		}
	}
	for _, r := range ev.RewardEffects {
		if r.Kind == effect.KindUnknown {
			logger.Warn("Event has an unrecognized reward token", "event_id", ev.ID, "token", r.Value)
		}
	}
}
