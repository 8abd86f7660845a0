package event

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRomanceID(t *testing.T) {
	tests := []struct {
		id   string
		npc  string
		step int
		ok   bool
	}{
		{"romance_3_2", "3", 2, true},
		{"romance_lady_ash_1", "lady_ash", 1, true},
		{"romance_3", "", 0, false},
		{"romance_3_x", "", 0, false},
		{"romance_3_0", "", 0, false},
		{"festival_3_1", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			npc, step, ok := ParseRomanceID(tt.id)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.npc, npc)
			assert.Equal(t, tt.step, step)
		})
	}
}

func TestRomanceRoute_PreviousStep(t *testing.T) {
	route := RomanceRoute{Events: []string{"romance_3_1", "romance_3_garden", "romance_3_3"}}

	_, needed := route.PreviousStep("3", 1, "romance_3_1")
	assert.False(t, needed)

	prev, needed := route.PreviousStep("3", 3, "romance_3_3")
	assert.True(t, needed)
	assert.Equal(t, "romance_3_garden", prev, "ordered list wins")

	prev, needed = route.PreviousStep("3", 5, "romance_3_5")
	assert.True(t, needed)
	assert.Equal(t, "romance_3_4", prev)
}

func TestRomanceConfig_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "romance.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[npc.3]
required_affinity = 80
events = ["romance_3_1", "romance_3_2"]
`), 0o644))

	cfg, err := LoadRomanceConfig(path, nil)
	require.NoError(t, err)
	route, ok := cfg.Route("3")
	require.True(t, ok)
	assert.Equal(t, 80, route.RequiredAffinity)
	assert.Equal(t, []string{"romance_3_1", "romance_3_2"}, route.Events)

	require.NoError(t, os.WriteFile(path, []byte(`
[npc.3]
required_affinity = 60

[npc.mara]
required_affinity = 40
`), 0o644))
	require.NoError(t, cfg.Reload())
	route, _ = cfg.Route("3")
	assert.Equal(t, 60, route.RequiredAffinity)
	_, ok = cfg.Route("mara")
	assert.True(t, ok)

	require.NoError(t, os.WriteFile(path, []byte(`[npc.3`), 0o644))
	assert.Error(t, cfg.Reload())
	route, _ = cfg.Route("3")
	assert.Equal(t, 60, route.RequiredAffinity, "failed reload keeps the previous table")
}

func TestLoadRomanceConfig_Missing(t *testing.T) {
	cfg, err := LoadRomanceConfig(filepath.Join(t.TempDir(), "nope.toml"), nil)
	require.NoError(t, err)
	_, ok := cfg.Route("3")
	assert.False(t, ok)

	cfg, err = LoadRomanceConfig("", nil)
	require.NoError(t, err)
	_, ok = cfg.Route("3")
	assert.False(t, ok)
}
