package event

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/BurntSushi/toml"
)

const romancePrefix = "romance_"

// RomanceRoute is the configuration for one NPC's romance route
type RomanceRoute struct {
	RequiredAffinity int      `toml:"required_affinity" json:"required_affinity"`
	Events           []string `toml:"events" json:"events"`
}

// PreviousStep returns the event id that must have been triggered before
// eventID. The route's ordered event list is used when it contains eventID;
// otherwise the id of step-1 is constructed.
func (r RomanceRoute) PreviousStep(npcID string, step int, eventID string) (string, bool) {
	if step <= 1 {
		return "", false
	}
	if i := slices.Index(r.Events, eventID); i > 0 {
		return r.Events[i-1], true
	}
	return RomanceID(npcID, step-1), true
}

type romanceFile struct {
	NPC map[string]RomanceRoute `toml:"npc"`
}

// ParseRomanceConfig decodes a TOML route table:
//
//	[npc.3]
//	required_affinity = 80
//	events = ["romance_3_1", "romance_3_2"]
func ParseRomanceConfig(data string) (map[string]RomanceRoute, error) {
	var f romanceFile
	if _, err := toml.Decode(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse romance config: %w", err)
	}
	if f.NPC == nil {
		f.NPC = make(map[string]RomanceRoute)
	}
	return f.NPC, nil
}

// RomanceConfig holds the current route table and can be reloaded from its
// file without restarting.
type RomanceConfig struct {
	path   string
	logger *slog.Logger
	routes atomic.Pointer[map[string]RomanceRoute]
}

// NewRomanceConfig returns a config holding routes that cannot be reloaded
func NewRomanceConfig(routes map[string]RomanceRoute) *RomanceConfig {
	c := &RomanceConfig{logger: slog.Default()}
	if routes == nil {
		routes = make(map[string]RomanceRoute)
	}
	c.routes.Store(&routes)
	return c
}

// LoadRomanceConfig reads the route table from path. An empty path or a
// missing file yields an empty table, which makes every romance event ineligible.
func LoadRomanceConfig(path string, logger *slog.Logger) (*RomanceConfig, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := NewRomanceConfig(nil)
	c.path = path
	c.logger = logger
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the route file. On error the previous table stays active.
func (c *RomanceConfig) Reload() error {
	if c.path == "" {
		return nil
	}

	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		c.logger.Warn("Romance config not found, romance events disabled", "path", c.path)
		empty := make(map[string]RomanceRoute)
		c.routes.Store(&empty)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read romance config: %w", err)
	}

	routes, err := ParseRomanceConfig(string(data))
	if err != nil {
		return err
	}
	c.routes.Store(&routes)
	c.logger.Info("Romance config loaded", "path", c.path, "npcs", len(routes))
	return nil
}

// Route returns the route configured for npcID
func (c *RomanceConfig) Route(npcID string) (RomanceRoute, bool) {
	if c == nil {
		return RomanceRoute{}, false
	}
	routes := *c.routes.Load()
	r, ok := routes[npcID]
	return r, ok
}

// RomanceID builds the event id for an NPC's route step
func RomanceID(npcID string, step int) string {
	return romancePrefix + npcID + "_" + strconv.Itoa(step)
}

// ParseRomanceID splits "romance_<npcId>_<step>". The step is the text after
// the last underscore, so NPC ids may themselves contain underscores.
func ParseRomanceID(eventID string) (npcID string, step int, ok bool) {
	rest, found := strings.CutPrefix(eventID, romancePrefix)
	if !found {
		return "", 0, false
	}
	idx := strings.LastIndex(rest, "_")
	if idx <= 0 {
		return "", 0, false
	}
	step, err := strconv.Atoi(rest[idx+1:])
	if err != nil || step < 1 {
		return "", 0, false
	}
	return rest[:idx], step, true
}
