// Package event holds supplemental narrative events and the predicates that
// decide whether one applies to a player.
package event

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/narrative-engine/pkg/effect"
)

// Type is the kind of event. Types other than the named ones are evaluated
// against their trigger conditions alone.
type Type string

const (
	TypeSeasonal        Type = "SEASONAL"
	TypeRandom          Type = "RANDOM"
	TypeChoiceTriggered Type = "CHOICE_TRIGGERED"
	TypeRomance         Type = "ROMANCE"
	TypeClimactic       Type = "CLIMACTIC"
)

var upper = cases.Upper(language.Und)

// NormalizeType upper-cases a type name and joins words with underscores
func NormalizeType(s string) Type {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	return Type(upper.String(s))
}

// Event is a supplemental narrative event definition
type Event struct {
	ID                string   `json:"id"`
	Name              string   `json:"name,omitempty"`
	Description       string   `json:"description,omitempty"`
	Type              Type     `json:"type"`
	TriggerConditions []string `json:"trigger_conditions,omitempty"`
	TriggerChance     *float64 `json:"trigger_chance,omitempty"`
	RequiredChoices   []string `json:"required_choices,omitempty"`
	StartMonth        *int     `json:"start_month,omitempty"`
	StartDay          *int     `json:"start_day,omitempty"`
	EndMonth          *int     `json:"end_month,omitempty"`
	EndDay            *int     `json:"end_day,omitempty"`
	Rewards           []string `json:"rewards,omitempty"`

	// RewardEffects is Rewards decoded at load time
	RewardEffects []effect.Effect `json:"-"`
	Source        string          `json:"-"`
}

// HasDateRange reports whether all four seasonal date fields are set
func (e *Event) HasDateRange() bool {
	return e.StartMonth != nil && e.StartDay != nil && e.EndMonth != nil && e.EndDay != nil
}

// HasValidDateRange also requires both ends to be real calendar positions:
// month 1-12, day 1-31
func (e *Event) HasValidDateRange() bool {
	return e.HasDateRange() && validMonthDay(*e.StartMonth, *e.StartDay) && validMonthDay(*e.EndMonth, *e.EndDay)
}

func validMonthDay(month, day int) bool {
	return month >= 1 && month <= 12 && day >= 1 && day <= 31
}

// prepare normalizes the type and decodes reward tokens
func (e *Event) prepare() {
	e.ID = strings.TrimSpace(e.ID)
	e.Type = NormalizeType(string(e.Type))
	e.RewardEffects = effect.ParseRewards(e.Rewards)
}

// Decode reads one content unit. A unit holds either a single event object
// or a list of them; YAML is converted to JSON before decoding.
func Decode(data []byte, ext string) ([]*Event, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
		converted, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to convert yaml: %w", err)
		}
		data = converted
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var events []*Event
		if err := json.Unmarshal(data, &events); err != nil {
			return nil, fmt.Errorf("failed to unmarshal events: %w", err)
		}
		return events, nil
	}

	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return []*Event{&ev}, nil
}
