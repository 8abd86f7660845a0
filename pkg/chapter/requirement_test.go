package chapter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequirement(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []Requirement
	}{
		{"legacy chapter token", `"chapter:intro"`, []Requirement{LegacyChapterToken{ID: "intro"}}},
		{"legacy chapters list", `"chapters:a, b"`, []Requirement{ChaptersCompleted{IDs: []string{"a", "b"}}}},
		{"legacy new player", `"new_player"`, []Requirement{NewPlayer{Want: true}}},
		{"legacy new player false", `"new_player:false"`, []Requirement{NewPlayer{Want: false}}},
		{"legacy stat", `"stat:charm:5"`, []Requirement{StatAtLeast{Stat: "charm", Value: 5}}},
		{"structured new player", `{"is_new_player": true}`, []Requirement{NewPlayer{Want: true}}},
		{
			"structured combined",
			`{"stats": {"wit": 3, "charm": 2}, "chapters": ["intro"]}`,
			[]Requirement{
				StatAtLeast{Stat: "charm", Value: 2},
				StatAtLeast{Stat: "wit", Value: 3},
				ChaptersCompleted{IDs: []string{"intro"}},
			},
		},
		{"embedded object string", `"{\"chapters\": [\"intro\"]}"`, []Requirement{ChaptersCompleted{IDs: []string{"intro"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRequirement(json.RawMessage(tt.raw)))
		})
	}
}

func TestParseRequirement_MalformedFailsClosed(t *testing.T) {
	for _, raw := range []string{
		`"chapter:"`,
		`"stat:charm:lots"`,
		`"level>5"`,
		`{}`,
		`{"stats": {"charm": "high"}}`,
		`{"is_new_player": "yes"}`,
		`42`,
		`"{not json"`,
	} {
		t.Run(raw, func(t *testing.T) {
			reqs := ParseRequirement(json.RawMessage(raw))
			require.Len(t, reqs, 1)
			_, ok := reqs[0].(Malformed)
			assert.True(t, ok, "expected Malformed, got %T", reqs[0])

			empty := NewSnapshot(nil, nil)
			full := NewSnapshot([]string{"intro"}, map[string]int{"charm": 100})
			assert.False(t, reqs[0].Met(empty))
			assert.False(t, reqs[0].Met(full))
		})
	}
}

func TestRequirement_Met(t *testing.T) {
	fresh := NewSnapshot(nil, nil)
	veteran := NewSnapshot([]string{"intro", "harbor"}, map[string]int{"charm": 4})

	tests := []struct {
		name    string
		req     Requirement
		fresh   bool
		veteran bool
	}{
		{"new player", NewPlayer{Want: true}, true, false},
		{"not new player", NewPlayer{Want: false}, false, true},
		{"stat met", StatAtLeast{Stat: "charm", Value: 4}, false, true},
		{"stat missing counts as zero", StatAtLeast{Stat: "wit", Value: 0}, true, true},
		{"stat not met", StatAtLeast{Stat: "charm", Value: 5}, false, false},
		{"chapters completed", ChaptersCompleted{IDs: []string{"intro", "harbor"}}, false, true},
		{"chapters partially completed", ChaptersCompleted{IDs: []string{"intro", "finale"}}, false, false},
		{"legacy token", LegacyChapterToken{ID: "harbor"}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fresh, tt.req.Met(fresh))
			assert.Equal(t, tt.veteran, tt.req.Met(veteran))
		})
	}
}
