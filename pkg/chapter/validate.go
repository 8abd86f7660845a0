package chapter

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultEntryPattern matches chapter ids that are expected to have no inbound links
const DefaultEntryPattern = `^(group_.+_)?(intro|prologue|start|chapter_?0*1)$`

// Validator checks a graph for dangling references, missing fields and
// unreachable chapters. Findings are advisory; it never modifies the graph.
type Validator struct {
	entryPoints []*regexp.Regexp
}

// NewValidator compiles the entry-point patterns; with none, DefaultEntryPattern is used
func NewValidator(entryPatterns ...string) (*Validator, error) {
	if len(entryPatterns) == 0 {
		entryPatterns = []string{DefaultEntryPattern}
	}
	v := &Validator{}
	for _, p := range entryPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid entry point pattern %q: %w", p, err)
		}
		v.entryPoints = append(v.entryPoints, re)
	}
	return v, nil
}

// IsEntryPoint reports whether id matches a designated entry-point pattern
func (v *Validator) IsEntryPoint(id string) bool {
	for _, re := range v.entryPoints {
		if re.MatchString(id) {
			return true
		}
	}
	return false
}

// ValidateAll returns every finding for the graph, in chapter id order
func (v *Validator) ValidateAll(g *Graph) []string {
	run := &validation{graph: g}
	referenced := make(map[string]bool)

	for _, ch := range g.Chapters() {
		run.checkFields(ch)

		if ch.NextChapterID != "" {
			if ch.NextChapterID != ch.ID {
				referenced[ch.NextChapterID] = true
			}
			if !g.Has(ch.NextChapterID) {
				run.addError("chapter %s: next_chapter %q does not exist", ch.ID, ch.NextChapterID)
			}
		}

		for i, choice := range ch.Choices {
			run.checkChoice(ch, fmt.Sprintf("choice %d", i), choice, referenced)
		}
		for _, node := range ch.Dialogues {
			if node.Invalid {
				run.addError("chapter %s: dialogue %d is malformed", ch.ID, node.Index)
			}
			for i, choice := range node.Choices {
				run.checkChoice(ch, fmt.Sprintf("dialogue %d choice %d", node.Index, i), choice, referenced)
			}
		}
		for i, scene := range ch.Scenes {
			if scene.ID == "" {
				run.addError("chapter %s: scene %d has no scene_id", ch.ID, i)
			}
		}
		for _, r := range ch.Requirements {
			if m, ok := r.(Malformed); ok {
				run.addError("chapter %s: requirement is malformed (%s): %s", ch.ID, m.Reason, m.Raw)
			}
		}
	}

	for _, id := range g.IDs() {
		if !referenced[id] && !v.IsEntryPoint(id) {
			run.addError("chapter %s is unreachable: no chapter or choice leads to it", id)
		}
	}

	return run.errors
}

type validation struct {
	graph  *Graph
	errors []string
}

func (r *validation) addError(format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func (r *validation) checkFields(ch *Chapter) {
	if strings.TrimSpace(ch.Title) == "" {
		r.addError("chapter %s: missing title", ch.ID)
	}
	if strings.TrimSpace(ch.Description) == "" {
		r.addError("chapter %s: missing description", ch.ID)
	}
	switch {
	case ch.Type == "":
		r.addError("chapter %s: missing type", ch.ID)
	case !ch.Type.Known():
		r.addError("chapter %s: unknown type %q", ch.ID, ch.Type)
	}
}

func (r *validation) checkChoice(ch *Chapter, where string, choice Choice, referenced map[string]bool) {
	if choice.Invalid {
		r.addError("chapter %s: %s is malformed", ch.ID, where)
		return
	}

	if choice.NextChapterID != "" {
		referenced[choice.NextChapterID] = true
		if !r.graph.Has(choice.NextChapterID) {
			r.addError("chapter %s: %s (%q) next_chapter %q does not exist", ch.ID, where, choice.Text, choice.NextChapterID)
		}
	}

	if choice.NextSceneID != "" && !ch.HasScene(choice.NextSceneID) {
		r.addError("chapter %s: %s (%q) next_scene %q does not match any scene", ch.ID, where, choice.Text, choice.NextSceneID)
	}

	if choice.NextDialogueIndex != nil {
		if idx := *choice.NextDialogueIndex; idx < 0 || idx >= len(ch.Dialogues) {
			r.addError("chapter %s: %s (%q) next_dialogue %d out of range [0, %d)", ch.ID, where, choice.Text, idx, len(ch.Dialogues))
		}
	}

	for _, cond := range sortedKeys(choice.ConditionalNextChapter) {
		target := choice.ConditionalNextChapter[cond]
		referenced[target] = true
		if !r.graph.Has(target) {
			r.addError("chapter %s: %s (%q) conditional_next_chapter[%q] target %q does not exist", ch.ID, where, choice.Text, cond, target)
		}
	}
}
