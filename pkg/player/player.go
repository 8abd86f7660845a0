package player

import (
	"maps"
	"slices"
	"time"

	"github.com/jwebster45206/narrative-engine/pkg/effect"
	"github.com/jwebster45206/narrative-engine/pkg/progress"
)

// Player is the reward-bearing aggregate the engine mutates: attributes,
// experience, currency, level and items.
type Player struct {
	ID         string         `json:"id"`
	Attributes map[string]int `json:"attributes"`
	Experience int            `json:"experience"`
	Currency   int            `json:"currency"`
	Level      int            `json:"level"`
	Items      []string       `json:"items,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func New(id string, now time.Time) *Player {
	return &Player{
		ID:         id,
		Attributes: make(map[string]int),
		Level:      1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Attribute returns the named attribute, 0 when unset
func (p *Player) Attribute(name string) int {
	return p.Attributes[name]
}

// Apply applies a player-owned effect.
// Relationship, faction and unknown effects are not owned by the player and
// return false without changing anything.
func (p *Player) Apply(e effect.Effect) bool {
	if p.Attributes == nil {
		p.Attributes = make(map[string]int)
	}
	switch e.Kind {
	case effect.KindAttribute:
		p.Attributes[e.Target] += e.Delta
	case effect.KindExperience:
		p.Experience += e.Delta
	case effect.KindCurrency:
		p.Currency += e.Delta
	case effect.KindLevel:
		p.Level += e.Delta
	case effect.KindItem:
		p.Items = append(p.Items, e.Value)
	default:
		return false
	}
	return true
}

func (p *Player) Clone() *Player {
	if p == nil {
		return nil
	}
	c := *p
	c.Attributes = maps.Clone(p.Attributes)
	c.Items = slices.Clone(p.Items)
	return &c
}

// Relationship is a player's standing with one NPC
type Relationship struct {
	PlayerID        string    `json:"player_id"`
	NPCID           string    `json:"npc_id"`
	Affinity        int       `json:"affinity"`
	TriggeredEvents []string  `json:"triggered_events"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func NewRelationship(playerID, npcID string) *Relationship {
	return &Relationship{PlayerID: playerID, NPCID: npcID, TriggeredEvents: []string{}}
}

// AdjustAffinity applies delta, keeping affinity within the shared bounds
func (r *Relationship) AdjustAffinity(delta int) int {
	r.Affinity = progress.Clamp(r.Affinity+delta, progress.MinAffinity, progress.MaxAffinity)
	return r.Affinity
}

func (r *Relationship) HasTriggered(eventID string) bool {
	return slices.Contains(r.TriggeredEvents, eventID)
}

func (r *Relationship) Clone() *Relationship {
	c := *r
	c.TriggeredEvents = slices.Clone(r.TriggeredEvents)
	return &c
}

// AddTriggeredEvent returns false if the event was already recorded
func (r *Relationship) AddTriggeredEvent(eventID string) bool {
	if r.HasTriggered(eventID) {
		return false
	}
	r.TriggeredEvents = append(r.TriggeredEvents, eventID)
	return true
}
