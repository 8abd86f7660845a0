package chapter

import (
	"fmt"
	"slices"
	"sync/atomic"
)

// Graph is an immutable id -> Chapter index built at load time
type Graph struct {
	chapters map[string]*Chapter
	ids      []string
}

// NewGraph indexes chapters by id. Duplicate ids are rejected: the first
// chapter with an id wins and each later one is reported.
func NewGraph(chapters []*Chapter) (*Graph, []LoadError) {
	g := &Graph{chapters: make(map[string]*Chapter, len(chapters))}
	var errs []LoadError

	for _, ch := range chapters {
		if ch == nil {
			continue
		}
		if existing, dup := g.chapters[ch.ID]; dup {
			errs = append(errs, LoadError{
				Path:      ch.Source,
				ChapterID: ch.ID,
				Err:       fmt.Errorf("duplicate chapter id, already loaded from %s", existing.Source),
			})
			continue
		}
		g.chapters[ch.ID] = ch
		g.ids = append(g.ids, ch.ID)
	}
	slices.Sort(g.ids)
	return g, errs
}

// GetChapter returns the chapter with the given id
func (g *Graph) GetChapter(id string) (*Chapter, bool) {
	if g == nil {
		return nil, false
	}
	ch, ok := g.chapters[id]
	return ch, ok
}

// Has reports whether id resolves to a loaded chapter
func (g *Graph) Has(id string) bool {
	_, ok := g.GetChapter(id)
	return ok
}

// IDs returns every chapter id, sorted
func (g *Graph) IDs() []string {
	if g == nil {
		return nil
	}
	return slices.Clone(g.ids)
}

func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.ids)
}

// Chapters returns every chapter in id order
func (g *Graph) Chapters() []*Chapter {
	if g == nil {
		return nil
	}
	out := make([]*Chapter, 0, len(g.ids))
	for _, id := range g.ids {
		out = append(out, g.chapters[id])
	}
	return out
}

// AvailableChapters returns, in id order, the chapters not yet completed whose
// requirements all hold for the snapshot.
func (g *Graph) AvailableChapters(s Snapshot) []string {
	available := []string{}
	for _, ch := range g.Chapters() {
		if ch.Available(s) {
			available = append(available, ch.ID)
		}
	}
	return available
}

// Registry holds the current graph. Readers always see a complete snapshot;
// Swap replaces it in one step.
type Registry struct {
	current atomic.Pointer[Graph]
}

// NewRegistry returns a registry holding g, or an empty graph when g is nil
func NewRegistry(g *Graph) *Registry {
	r := &Registry{}
	if g == nil {
		g, _ = NewGraph(nil)
	}
	r.current.Store(g)
	return r
}

// Current returns the active graph snapshot
func (r *Registry) Current() *Graph {
	return r.current.Load()
}

// Swap installs g and returns the previous graph
func (r *Registry) Swap(g *Graph) *Graph {
	return r.current.Swap(g)
}
