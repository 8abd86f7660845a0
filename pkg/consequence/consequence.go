// Package consequence records player decisions as an append-only history and
// aggregates it into dashboards and community statistics.
package consequence

import (
	"context"
	"time"
)

// Type classifies how long a consequence is expected to matter
type Type string

const (
	TypeImmediate Type = "IMMEDIATE"
	TypeShortTerm Type = "SHORT_TERM"
	TypeLongTerm  Type = "LONG_TERM"
	TypePermanent Type = "PERMANENT"
)

// Types lists every consequence type in dashboard order
var Types = []Type{TypeImmediate, TypeShortTerm, TypeLongTerm, TypePermanent}

// Known reports whether t is a defined consequence type
func (t Type) Known() bool {
	switch t {
	case TypeImmediate, TypeShortTerm, TypeLongTerm, TypePermanent:
		return true
	}
	return false
}

// Consequence is one recorded decision. Records are never deleted;
// deactivation only clears Active.
type Consequence struct {
	ID                        string            `json:"id"`
	PlayerID                  string            `json:"player_id"`
	Name                      string            `json:"name"`
	Description               string            `json:"description,omitempty"`
	Type                      Type              `json:"type"`
	ChapterID                 string            `json:"chapter_id,omitempty"`
	SceneID                   string            `json:"scene_id,omitempty"`
	ChoiceText                string            `json:"choice_text,omitempty"`
	Context                   map[string]string `json:"context,omitempty"`
	Effects                   []string          `json:"effects"`
	RelatedChoices            []string          `json:"related_choices"`
	AffectedNPCs              []string          `json:"affected_npcs"`
	Active                    bool              `json:"active"`
	CreatedAt                 time.Time         `json:"created_at"`
	CommunityChoicePercentage *float64          `json:"community_choice_percentage,omitempty"`
	EthicalReflections        []string          `json:"ethical_reflections"`
	AlternativePaths          []string          `json:"alternative_paths"`
}

// Ledger is the durable store consequences are kept in.
// Get returns (nil, nil) for an unknown id; the append and deactivate
// operations report whether the id existed.
type Ledger interface {
	InsertConsequence(ctx context.Context, c *Consequence) error
	GetConsequence(ctx context.Context, id string) (*Consequence, error)
	// ListConsequences returns a player's consequences in creation order
	ListConsequences(ctx context.Context, playerID string) ([]*Consequence, error)
	AppendReflections(ctx context.Context, id string, reflections []string) (bool, error)
	AppendAlternativePaths(ctx context.Context, id string, paths []string) (bool, error)
	Deactivate(ctx context.Context, id string) (bool, error)
	// ChoiceTally counts distinct players with a recorded choice at chapter and
	// scene, and how many of them last chose choiceText there
	ChoiceTally(ctx context.Context, chapterID, sceneID, choiceText string) (matching, total int, err error)
}
