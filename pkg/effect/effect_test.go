package effect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseReward(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  Effect
	}{
		{"experience", "experience:100", Effect{Kind: KindExperience, Delta: 100}},
		{"exp alias", "exp:25", Effect{Kind: KindExperience, Delta: 25}},
		{"currency", "tusd:50", Effect{Kind: KindCurrency, Delta: 50}},
		{"negative currency", "currency:-5", Effect{Kind: KindCurrency, Delta: -5}},
		{"level", "level:1", Effect{Kind: KindLevel, Delta: 1}},
		{"item", "item:old_key", Effect{Kind: KindItem, Value: "old_key"}},
		{"attribute", "stat:charm:2", Effect{Kind: KindAttribute, Target: "charm", Delta: 2}},
		{"affinity", "affinity:3:10", Effect{Kind: KindRelationship, Target: "3", Delta: 10}},
		{"faction", "faction:night_guild:-4", Effect{Kind: KindFactionReputation, Target: "night_guild", Delta: -4}},
		{"case insensitive type", "XP:7", Effect{Kind: KindExperience, Delta: 7}},
		{"unknown type", "title:hero", Effect{Kind: KindUnknown, Value: "title:hero"}},
		{"bad number", "experience:lots", Effect{Kind: KindUnknown, Value: "experience:lots"}},
		{"no separator", "experience", Effect{Kind: KindUnknown, Value: "experience"}},
		{"empty value", "item:", Effect{Kind: KindUnknown, Value: "item:"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseReward(tt.token))
		})
	}
}

func TestChoiceEffects_Effects(t *testing.T) {
	ce := ChoiceEffects{
		Attributes:        map[string]int{"wit": 1, "charm": 2},
		Relationships:     map[string]int{"3": 5},
		FactionReputation: map[string]int{"guild": -2},
		Currency:          10,
		Experience:        20,
	}

	got := ce.Effects()
	want := []Effect{
		{Kind: KindAttribute, Target: "charm", Delta: 2},
		{Kind: KindAttribute, Target: "wit", Delta: 1},
		{Kind: KindRelationship, Target: "3", Delta: 5},
		{Kind: KindFactionReputation, Target: "guild", Delta: -2},
		{Kind: KindCurrency, Delta: 10},
		{Kind: KindExperience, Delta: 20},
	}
	assert.Equal(t, want, got)

	assert.Empty(t, ChoiceEffects{}.Effects())
}
