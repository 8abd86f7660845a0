package progress

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

const (
	MinAffinity = -100
	MaxAffinity = 100
)

// Progress is a player's position in the chapter graph and the history that got them there.
// CompletedChapters is append-only.
type Progress struct {
	PlayerID             string               `json:"player_id"`
	CurrentChapterID     string               `json:"current_chapter_id,omitempty"`
	CurrentDialogueIndex int                  `json:"current_dialogue_index"`
	CompletedChapters    []string             `json:"completed_chapters"`
	Choices              map[string]int       `json:"choices"`
	RelationshipDeltas   map[string]int       `json:"relationship_deltas"`
	FactionReputation    map[string]int       `json:"faction_reputation"`
	TriggeredEvents      map[string]time.Time `json:"triggered_events"`
	CompletedEvents      []string             `json:"completed_events,omitempty"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
}

// New returns an empty progress record, in no chapter
func New(playerID string, now time.Time) *Progress {
	return &Progress{
		PlayerID:           playerID,
		CompletedChapters:  []string{},
		Choices:            make(map[string]int),
		RelationshipDeltas: make(map[string]int),
		FactionReputation:  make(map[string]int),
		TriggeredEvents:    make(map[string]time.Time),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// Normalize fills nil maps, for records decoded from older payloads
func (p *Progress) Normalize() {
	if p.CompletedChapters == nil {
		p.CompletedChapters = []string{}
	}
	if p.Choices == nil {
		p.Choices = make(map[string]int)
	}
	if p.RelationshipDeltas == nil {
		p.RelationshipDeltas = make(map[string]int)
	}
	if p.FactionReputation == nil {
		p.FactionReputation = make(map[string]int)
	}
	if p.TriggeredEvents == nil {
		p.TriggeredEvents = make(map[string]time.Time)
	}
}

// ChoiceKey is the key a choice is recorded under
func ChoiceKey(chapterID string, dialogueIndex int) string {
	return fmt.Sprintf("%s_dialogue_%d", chapterID, dialogueIndex)
}

// InChapter reports whether the player is currently inside a chapter
func (p *Progress) InChapter() bool {
	return p.CurrentChapterID != ""
}

func (p *Progress) HasCompleted(chapterID string) bool {
	return slices.Contains(p.CompletedChapters, chapterID)
}

// MarkCompleted appends chapterID to the completed list.
// Returns false if it was already there.
func (p *Progress) MarkCompleted(chapterID string) bool {
	if p.HasCompleted(chapterID) {
		return false
	}
	p.CompletedChapters = append(p.CompletedChapters, chapterID)
	return true
}

// CompletedSet returns the completed chapters as a set
func (p *Progress) CompletedSet() map[string]bool {
	set := make(map[string]bool, len(p.CompletedChapters))
	for _, id := range p.CompletedChapters {
		set[id] = true
	}
	return set
}

// RecordChoice stores the chosen index for a chapter dialogue position
func (p *Progress) RecordChoice(chapterID string, dialogueIndex, choiceIndex int) string {
	key := ChoiceKey(chapterID, dialogueIndex)
	p.Choices[key] = choiceIndex
	return key
}

// AdjustRelationship adds delta to the NPC's running relationship delta, clamped
func (p *Progress) AdjustRelationship(npcID string, delta int) int {
	v := Clamp(p.RelationshipDeltas[npcID]+delta, MinAffinity, MaxAffinity)
	p.RelationshipDeltas[npcID] = v
	return v
}

// AdjustFaction adds delta to the faction's running reputation, clamped
func (p *Progress) AdjustFaction(factionID string, delta int) int {
	v := Clamp(p.FactionReputation[factionID]+delta, MinAffinity, MaxAffinity)
	p.FactionReputation[factionID] = v
	return v
}

// MarkTriggered records an event trigger time; a re-trigger overwrites the time
func (p *Progress) MarkTriggered(eventID string, at time.Time) {
	p.TriggeredEvents[eventID] = at
}

func (p *Progress) HasTriggered(eventID string) bool {
	_, ok := p.TriggeredEvents[eventID]
	return ok
}

func (p *Progress) HasCompletedEvent(eventID string) bool {
	return slices.Contains(p.CompletedEvents, eventID)
}

// MarkEventCompleted returns false if the event's rewards were already granted
func (p *Progress) MarkEventCompleted(eventID string) bool {
	if p.HasCompletedEvent(eventID) {
		return false
	}
	p.CompletedEvents = append(p.CompletedEvents, eventID)
	return true
}

// Clone returns a deep copy, safe to hand out as a snapshot
func (p *Progress) Clone() *Progress {
	if p == nil {
		return nil
	}
	c := *p
	c.CompletedChapters = slices.Clone(p.CompletedChapters)
	c.CompletedEvents = slices.Clone(p.CompletedEvents)
	c.Choices = maps.Clone(p.Choices)
	c.RelationshipDeltas = maps.Clone(p.RelationshipDeltas)
	c.FactionReputation = maps.Clone(p.FactionReputation)
	c.TriggeredEvents = maps.Clone(p.TriggeredEvents)
	c.Normalize()
	return &c
}

// Clamp bounds v to [lo, hi]
func Clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
