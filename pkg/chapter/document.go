package chapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/narrative-engine/pkg/effect"
)

var (
	ErrMissingTitle       = errors.New("missing required field: title")
	ErrMissingDescription = errors.New("missing required field: description")
)

// Document is the content shape of one chapter unit
type Document struct {
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Type           string            `json:"type"`
	Phase          *int              `json:"phase"`
	CompletionExp  int               `json:"completion_exp"`
	CompletionTUSD int               `json:"completion_tusd"`
	NextChapter    string            `json:"next_chapter"`
	Choices        []choiceDoc       `json:"choices"`
	Scenes         []sceneDoc        `json:"scenes"`
	Dialogues      []dialogueDoc     `json:"dialogues"`
	Requirements   []json.RawMessage `json:"requirements"`
}

// DecodeDocument decodes a JSON or YAML content unit.
// YAML is converted to JSON first so both formats share one decoding path.
func DecodeDocument(data []byte, ext string) (*Document, error) {
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

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chapter: %w", err)
	}
	return &doc, nil
}

// Check reports missing required fields
func (d *Document) Check() error {
	if strings.TrimSpace(d.Title) == "" {
		return ErrMissingTitle
	}
	if strings.TrimSpace(d.Description) == "" {
		return ErrMissingDescription
	}
	return nil
}

// ToChapter converts the document into a Chapter with the given id.
// Requirements are parsed here, once.
func (d *Document) ToChapter(id string) *Chapter {
	ch := &Chapter{
		ID:                 id,
		Title:              d.Title,
		Description:        d.Description,
		Type:               NormalizeType(d.Type),
		Phase:              d.Phase,
		CompletionExp:      d.CompletionExp,
		CompletionCurrency: d.CompletionTUSD,
		NextChapterID:      strings.TrimSpace(d.NextChapter),
		Requirements:       ParseRequirements(d.Requirements),
	}

	for _, c := range d.Choices {
		ch.Choices = append(ch.Choices, c.Choice)
	}
	for _, s := range d.Scenes {
		ch.Scenes = append(ch.Scenes, s.Scene)
	}
	for i, dn := range d.Dialogues {
		node := dn.DialogueNode
		node.Index = i
		ch.Dialogues = append(ch.Dialogues, node)
	}
	ch.RequirementText = requirementText(ch.Requirements)
	return ch
}

// NormalizeType case-folds a content type name; empty means story
func NormalizeType(s string) Type {
	s = strings.TrimSpace(s)
	if s == "" {
		return TypeStory
	}
	return Type(cases.Fold().String(s))
}

func requirementText(reqs []Requirement) []string {
	if len(reqs) == 0 {
		return nil
	}
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = r.String()
	}
	return out
}

// choiceObject is the object form of a choice
type choiceObject struct {
	Text                   string                `json:"text"`
	NextDialogue           *int                  `json:"next_dialogue"`
	NextChapter            string                `json:"next_chapter"`
	NextScene              string                `json:"next_scene"`
	CompleteChapter        bool                  `json:"complete_chapter"`
	Effects                *effect.ChoiceEffects `json:"effects"`
	ConditionalNextChapter map[string]string     `json:"conditional_next_chapter"`
}

// choiceDoc accepts either a plain string or a choice object.
// A choice whose object form cannot be decoded is kept in place, marked Invalid,
// so the indices of its siblings do not shift.
type choiceDoc struct {
	Choice
}

func (c *choiceDoc) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		if !strings.HasPrefix(strings.TrimSpace(text), "{") {
			c.Text = text
			return nil
		}
		data = []byte(text)
	}

	var obj choiceObject
	if err := json.Unmarshal(data, &obj); err != nil {
		c.Choice = Choice{Invalid: true}
		return nil
	}

	c.Choice = Choice{
		Text:                   obj.Text,
		NextDialogueIndex:      obj.NextDialogue,
		NextChapterID:          strings.TrimSpace(obj.NextChapter),
		NextSceneID:            strings.TrimSpace(obj.NextScene),
		CompleteChapter:        obj.CompleteChapter,
		ConditionalNextChapter: obj.ConditionalNextChapter,
	}
	if obj.Effects != nil {
		c.Effects = obj.Effects.Effects()
	}
	return nil
}

// dialogueDoc accepts either a plain string or a dialogue object
type dialogueDoc struct {
	DialogueNode
}

func (d *dialogueDoc) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		if !strings.HasPrefix(strings.TrimSpace(text), "{") {
			d.Text = text
			return nil
		}
		data = []byte(text)
	}

	var obj struct {
		Text    string      `json:"text"`
		Speaker string      `json:"speaker"`
		Choices []choiceDoc `json:"choices"`
	}
	var rest map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		d.DialogueNode = DialogueNode{Invalid: true}
		return nil
	}
	if err := json.Unmarshal(data, &rest); err != nil {
		d.DialogueNode = DialogueNode{Invalid: true}
		return nil
	}

	d.Text = obj.Text
	d.Speaker = obj.Speaker
	for _, c := range obj.Choices {
		d.Choices = append(d.Choices, c.Choice)
	}
	delete(rest, "text")
	delete(rest, "speaker")
	delete(rest, "choices")
	if len(rest) > 0 {
		d.Data = rest
	}
	return nil
}

// sceneDoc is an object carrying scene_id plus arbitrary presentation data
type sceneDoc struct {
	Scene
}

func (s *sceneDoc) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("scene must be an object: %w", err)
	}

	switch id := m["scene_id"].(type) {
	case string:
		s.ID = id
	case float64:
		s.ID = strconv.FormatFloat(id, 'f', -1, 64)
	}
	delete(m, "scene_id")
	if len(m) > 0 {
		s.Data = m
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
