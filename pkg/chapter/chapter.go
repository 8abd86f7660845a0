// Package chapter holds the chapter graph: content types, load-time decoding,
// availability checks and structural validation.
package chapter

import (
	"github.com/jwebster45206/narrative-engine/pkg/effect"
)

// Type is the kind of chapter
type Type string

const (
	TypeStory     Type = "story"
	TypeChallenge Type = "challenge"
	TypeBranching Type = "branching"
)

// Known reports whether t is one of the defined chapter types
func (t Type) Known() bool {
	switch t {
	case TypeStory, TypeChallenge, TypeBranching:
		return true
	}
	return false
}

// Chapter is a named unit of story content. Chapters are immutable once loaded.
type Chapter struct {
	ID                 string         `json:"id"`
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	Type               Type           `json:"type"`
	Phase              *int           `json:"phase,omitempty"`
	CompletionExp      int            `json:"completion_exp"`
	CompletionCurrency int            `json:"completion_currency"`
	NextChapterID      string         `json:"next_chapter,omitempty"`
	Scenes             []Scene        `json:"scenes,omitempty"`
	Dialogues          []DialogueNode `json:"dialogues,omitempty"`
	Choices            []Choice       `json:"choices,omitempty"`
	Requirements       []Requirement  `json:"-"`
	RequirementText    []string       `json:"requirements,omitempty"` // String() of each parsed requirement

	Group  string `json:"group,omitempty"`  // sub-tree the chapter came from, empty for the main tree
	Source string `json:"source,omitempty"` // content path it was loaded from
}

// Scene is an addressable presentation context within a chapter
type Scene struct {
	ID   string         `json:"scene_id"`
	Data map[string]any `json:"data,omitempty"`
}

// DialogueNode is an ordered step within a chapter.
// When Choices is non-empty it replaces the chapter-level choices while the node is active.
type DialogueNode struct {
	Index   int            `json:"index"`
	Text    string         `json:"text,omitempty"`
	Speaker string         `json:"speaker,omitempty"`
	Choices []Choice       `json:"choices,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Invalid bool           `json:"invalid,omitempty"`
}

// Choice is a selectable option with optional effects and navigation targets
type Choice struct {
	Text                   string            `json:"text"`
	NextDialogueIndex      *int              `json:"next_dialogue,omitempty"`
	NextChapterID          string            `json:"next_chapter,omitempty"`
	NextSceneID            string            `json:"next_scene,omitempty"`
	CompleteChapter        bool              `json:"complete_chapter,omitempty"`
	Effects                []effect.Effect   `json:"effects,omitempty"`
	ConditionalNextChapter map[string]string `json:"conditional_next_chapter,omitempty"`

	// Invalid marks a choice whose content could not be decoded; it can never be taken
	Invalid bool `json:"invalid,omitempty"`
}

// ActiveChoices returns the choice list in effect at dialogueIndex:
// the node's own choices when it has any, otherwise the chapter-level list.
func (c *Chapter) ActiveChoices(dialogueIndex int) []Choice {
	if dialogueIndex >= 0 && dialogueIndex < len(c.Dialogues) {
		if node := c.Dialogues[dialogueIndex]; len(node.Choices) > 0 {
			return node.Choices
		}
	}
	return c.Choices
}

// SceneIndex returns the position of the scene with the given id, scanning in order
func (c *Chapter) SceneIndex(sceneID string) (int, bool) {
	for i, s := range c.Scenes {
		if s.ID == sceneID {
			return i, true
		}
	}
	return 0, false
}

// HasScene reports whether a scene with sceneID exists in the chapter
func (c *Chapter) HasScene(sceneID string) bool {
	_, ok := c.SceneIndex(sceneID)
	return ok
}

// Available reports whether the chapter can be started given the snapshot:
// not already completed and every requirement met.
func (c *Chapter) Available(s Snapshot) bool {
	if s.Completed[c.ID] {
		return false
	}
	for _, r := range c.Requirements {
		if !r.Met(s) {
			return false
		}
	}
	return true
}
