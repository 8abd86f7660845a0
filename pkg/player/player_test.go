package player

import (
	"testing"
	"time"

	"github.com/jwebster45206/narrative-engine/pkg/effect"
	"github.com/stretchr/testify/assert"
)

func TestPlayer_Apply(t *testing.T) {
	p := New("p1", time.Now())

	tests := []struct {
		name    string
		eff     effect.Effect
		applied bool
	}{
		{"attribute", effect.Effect{Kind: effect.KindAttribute, Target: "charm", Delta: 3}, true},
		{"experience", effect.Effect{Kind: effect.KindExperience, Delta: 40}, true},
		{"currency", effect.Effect{Kind: effect.KindCurrency, Delta: -15}, true},
		{"level", effect.Effect{Kind: effect.KindLevel, Delta: 2}, true},
		{"item", effect.Effect{Kind: effect.KindItem, Value: "lantern"}, true},
		{"relationship is not player owned", effect.Effect{Kind: effect.KindRelationship, Target: "3", Delta: 5}, false},
		{"unknown", effect.Effect{Kind: effect.KindUnknown, Value: "title:hero"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.applied, p.Apply(tt.eff))
		})
	}

	assert.Equal(t, 3, p.Attribute("charm"))
	assert.Equal(t, 0, p.Attribute("missing"))
	assert.Equal(t, 40, p.Experience)
	assert.Equal(t, -15, p.Currency, "currency is not clamped")
	assert.Equal(t, 3, p.Level)
	assert.Equal(t, []string{"lantern"}, p.Items)
}

func TestRelationship(t *testing.T) {
	r := NewRelationship("p1", "3")

	assert.Equal(t, 100, r.AdjustAffinity(150))
	assert.Equal(t, -100, r.AdjustAffinity(-500))

	assert.True(t, r.AddTriggeredEvent("romance_3_1"))
	assert.False(t, r.AddTriggeredEvent("romance_3_1"))
	assert.True(t, r.HasTriggered("romance_3_1"))

	c := r.Clone()
	c.AddTriggeredEvent("romance_3_2")
	assert.False(t, r.HasTriggered("romance_3_2"), "clones do not share triggered events")
}
