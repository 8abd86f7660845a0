package chapter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Snapshot is the slice of player state chapter requirements are checked against
type Snapshot struct {
	Completed  map[string]bool
	Attributes map[string]int
}

// NewSnapshot builds a Snapshot from a completed-chapter list and attribute map
func NewSnapshot(completed []string, attributes map[string]int) Snapshot {
	set := make(map[string]bool, len(completed))
	for _, id := range completed {
		set[id] = true
	}
	return Snapshot{Completed: set, Attributes: attributes}
}

// Requirement is a parsed precondition gating chapter availability.
// The set of implementations is closed: NewPlayer, StatAtLeast,
// ChaptersCompleted, LegacyChapterToken and Malformed.
type Requirement interface {
	Met(s Snapshot) bool
	String() string
	requirement()
}

// NewPlayer is met when the player's completed set being empty equals Want
type NewPlayer struct {
	Want bool
}

func (r NewPlayer) Met(s Snapshot) bool { return (len(s.Completed) == 0) == r.Want }
func (r NewPlayer) String() string      { return fmt.Sprintf("new_player:%t", r.Want) }
func (NewPlayer) requirement()          {}

// StatAtLeast compares a player attribute against a threshold; a missing attribute counts as 0
type StatAtLeast struct {
	Stat  string
	Value int
}

func (r StatAtLeast) Met(s Snapshot) bool { return s.Attributes[r.Stat] >= r.Value }
func (r StatAtLeast) String() string      { return fmt.Sprintf("stat:%s>=%d", r.Stat, r.Value) }
func (StatAtLeast) requirement()          {}

// ChaptersCompleted requires every listed chapter to be completed
type ChaptersCompleted struct {
	IDs []string
}

func (r ChaptersCompleted) Met(s Snapshot) bool {
	for _, id := range r.IDs {
		if !s.Completed[id] {
			return false
		}
	}
	return true
}
func (r ChaptersCompleted) String() string { return "chapters:" + strings.Join(r.IDs, ",") }
func (ChaptersCompleted) requirement()     {}

// LegacyChapterToken is the old "chapter:<id>" string form
type LegacyChapterToken struct {
	ID string
}

func (r LegacyChapterToken) Met(s Snapshot) bool { return s.Completed[r.ID] }
func (r LegacyChapterToken) String() string      { return "chapter:" + r.ID }
func (LegacyChapterToken) requirement()          {}

// Malformed is requirement content that could not be parsed. It is never met.
type Malformed struct {
	Raw    string
	Reason string
}

func (Malformed) Met(Snapshot) bool { return false }
func (r Malformed) String() string  { return fmt.Sprintf("malformed(%s): %s", r.Reason, r.Raw) }
func (Malformed) requirement()      {}

// ParseRequirements parses every raw requirement entry.
// One structured object may yield several requirements.
func ParseRequirements(raws []json.RawMessage) []Requirement {
	var out []Requirement
	for _, raw := range raws {
		out = append(out, ParseRequirement(raw)...)
	}
	return out
}

// ParseRequirement parses a single entry: either a legacy string or a structured
// object with is_new_player, stats and chapters keys.
func ParseRequirement(raw json.RawMessage) []Requirement {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return []Requirement{Malformed{Raw: "", Reason: "empty"}}
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		// Legacy strings may carry an object serialized inside the string
		if strings.HasPrefix(strings.TrimSpace(s), "{") {
			return parseStructured(json.RawMessage(s))
		}
		return []Requirement{parseLegacy(s)}
	}

	return parseStructured(trimmed)
}

func parseLegacy(s string) Requirement {
	s = strings.TrimSpace(s)
	kind, value, _ := strings.Cut(s, ":")

	switch strings.ToLower(kind) {
	case "chapter":
		if value != "" {
			return LegacyChapterToken{ID: value}
		}
	case "chapters":
		var ids []string
		for id := range strings.SplitSeq(value, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) > 0 {
			return ChaptersCompleted{IDs: ids}
		}
	case "new_player":
		if value == "" {
			return NewPlayer{Want: true}
		}
		if b, err := strconv.ParseBool(value); err == nil {
			return NewPlayer{Want: b}
		}
	case "stat":
		name, n, ok := strings.Cut(value, ":")
		if ok && name != "" {
			if threshold, err := strconv.Atoi(n); err == nil {
				return StatAtLeast{Stat: name, Value: threshold}
			}
		}
	}
	return Malformed{Raw: s, Reason: "unrecognized requirement string"}
}

// structuredRequirement is the object form; pointers distinguish absent from zero
type structuredRequirement struct {
	IsNewPlayer *bool          `json:"is_new_player"`
	Stats       map[string]int `json:"stats"`
	Chapters    []string       `json:"chapters"`
}

func parseStructured(raw json.RawMessage) []Requirement {
	var sr structuredRequirement
	if err := json.Unmarshal(raw, &sr); err != nil {
		return []Requirement{Malformed{Raw: string(raw), Reason: err.Error()}}
	}

	var out []Requirement
	if sr.IsNewPlayer != nil {
		out = append(out, NewPlayer{Want: *sr.IsNewPlayer})
	}
	for _, stat := range sortedKeys(sr.Stats) {
		out = append(out, StatAtLeast{Stat: stat, Value: sr.Stats[stat]})
	}
	if len(sr.Chapters) > 0 {
		out = append(out, ChaptersCompleted{IDs: sr.Chapters})
	}

	if len(out) == 0 {
		return []Requirement{Malformed{Raw: string(raw), Reason: "no recognized requirement keys"}}
	}
	return out
}

// renameRequirement maps chapter references through rename
func renameRequirement(r Requirement, rename func(string) string) Requirement {
	switch req := r.(type) {
	case ChaptersCompleted:
		ids := make([]string, len(req.IDs))
		for i, id := range req.IDs {
			ids[i] = rename(id)
		}
		return ChaptersCompleted{IDs: ids}
	case LegacyChapterToken:
		return LegacyChapterToken{ID: rename(req.ID)}
	default:
		return r
	}
}
