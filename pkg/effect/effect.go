// Package effect defines the decoded form of choice effects and event rewards.
// Content carries these as loose maps and "type:value" tokens; they are turned
// into Effect values once, when content is loaded.
package effect

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Kind identifies what an Effect changes
type Kind string

const (
	KindAttribute         Kind = "attribute"
	KindRelationship      Kind = "relationship"
	KindFactionReputation Kind = "faction_reputation"
	KindCurrency          Kind = "currency"
	KindExperience        Kind = "experience"
	KindItem              Kind = "item"
	KindLevel             Kind = "level"
	KindUnknown           Kind = "unknown"
)

// Effect is a single state mutation.
// Target holds the stat name, NPC id or faction id for keyed kinds.
// Value holds the item id for KindItem and the raw token for KindUnknown.
type Effect struct {
	Kind   Kind   `json:"kind"`
	Target string `json:"target,omitempty"`
	Delta  int    `json:"delta,omitempty"`
	Value  string `json:"value,omitempty"`
}

func (e Effect) String() string {
	switch e.Kind {
	case KindAttribute, KindRelationship, KindFactionReputation:
		return fmt.Sprintf("%s:%s:%+d", e.Kind, e.Target, e.Delta)
	case KindItem:
		return "item:" + e.Value
	case KindUnknown:
		return "unknown:" + e.Value
	default:
		return fmt.Sprintf("%s:%+d", e.Kind, e.Delta)
	}
}

// ChoiceEffects is the content shape of a choice's "effects" object
type ChoiceEffects struct {
	Attributes        map[string]int `json:"attributes,omitempty"`
	Relationships     map[string]int `json:"relationships,omitempty"`
	FactionReputation map[string]int `json:"faction_reputation,omitempty"`
	Currency          int            `json:"currency,omitempty"`
	Experience        int            `json:"experience,omitempty"`
}

// Effects flattens the content shape into an ordered list.
// Keyed entries are sorted so that application order is stable.
func (ce ChoiceEffects) Effects() []Effect {
	var out []Effect
	out = appendKeyed(out, KindAttribute, ce.Attributes)
	out = appendKeyed(out, KindRelationship, ce.Relationships)
	out = appendKeyed(out, KindFactionReputation, ce.FactionReputation)
	if ce.Currency != 0 {
		out = append(out, Effect{Kind: KindCurrency, Delta: ce.Currency})
	}
	if ce.Experience != 0 {
		out = append(out, Effect{Kind: KindExperience, Delta: ce.Experience})
	}
	return out
}

func appendKeyed(out []Effect, kind Kind, m map[string]int) []Effect {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		out = append(out, Effect{Kind: kind, Target: k, Delta: m[k]})
	}
	return out
}

// ParseReward decodes a "type:value" reward token.
// Tokens that cannot be decoded come back as KindUnknown carrying the raw token.
func ParseReward(token string) Effect {
	unknown := Effect{Kind: KindUnknown, Value: token}

	kind, value, ok := strings.Cut(strings.TrimSpace(token), ":")
	if !ok || value == "" {
		return unknown
	}

	switch strings.ToLower(kind) {
	case "experience", "exp", "xp":
		if n, err := strconv.Atoi(value); err == nil {
			return Effect{Kind: KindExperience, Delta: n}
		}
	case "currency", "tusd", "coins":
		if n, err := strconv.Atoi(value); err == nil {
			return Effect{Kind: KindCurrency, Delta: n}
		}
	case "level":
		if n, err := strconv.Atoi(value); err == nil {
			return Effect{Kind: KindLevel, Delta: n}
		}
	case "item":
		return Effect{Kind: KindItem, Value: value}
	case "attribute", "stat":
		if target, n, ok := keyedDelta(value); ok {
			return Effect{Kind: KindAttribute, Target: target, Delta: n}
		}
	case "relationship", "affinity":
		if target, n, ok := keyedDelta(value); ok {
			return Effect{Kind: KindRelationship, Target: target, Delta: n}
		}
	case "faction":
		if target, n, ok := keyedDelta(value); ok {
			return Effect{Kind: KindFactionReputation, Target: target, Delta: n}
		}
	}
	return unknown
}

// ParseRewards decodes every token in order
func ParseRewards(tokens []string) []Effect {
	out := make([]Effect, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, ParseReward(t))
	}
	return out
}

// keyedDelta splits "target:delta"
func keyedDelta(value string) (string, int, bool) {
	idx := strings.LastIndex(value, ":")
	if idx <= 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(value[idx+1:])
	if err != nil {
		return "", 0, false
	}
	return value[:idx], n, true
}
