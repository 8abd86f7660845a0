package chapter

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"
)

const (
	// MainTreeDir holds the main chapter tree
	MainTreeDir = "chapters"
	// GroupTreeDir holds one sub-tree per group, groups/<groupId>/...
	GroupTreeDir = "groups"
)

// GroupPrefix is the namespace prefix given to chapter ids from a group sub-tree
func GroupPrefix(groupID string) string {
	return "group_" + groupID + "_"
}

// LoadError describes one content unit that could not be loaded
type LoadError struct {
	Path      string
	ChapterID string
	Err       error
}

func (e LoadError) Error() string {
	if e.ChapterID != "" {
		return fmt.Sprintf("%s (chapter %s): %v", e.Path, e.ChapterID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e LoadError) Unwrap() error {
	return e.Err
}

// Loader builds a Graph from a content tree
type Loader struct {
	logger *slog.Logger
}

func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// LoadDir loads the content tree rooted at dir.
// A missing directory is logged and yields an empty graph.
func (l *Loader) LoadDir(dir string) (*Graph, []LoadError) {
	if _, err := os.Stat(dir); err != nil {
		l.logger.Warn("Content directory not available, starting with no chapters", "dir", dir, "error", err)
		g, _ := NewGraph(nil)
		return g, nil
	}
	return l.Load(os.DirFS(dir))
}

// Load scans the main tree and every group sub-tree of fsys.
// Units that fail to decode or miss required fields are skipped and reported;
// everything else is loaded.
func (l *Loader) Load(fsys fs.FS) (*Graph, []LoadError) {
	chapters, errs := l.loadTree(fsys, MainTreeDir, "")

	entries, err := fs.ReadDir(fsys, GroupTreeDir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		l.logger.Debug("No group chapter trees found", "dir", GroupTreeDir)
	case err != nil:
		errs = append(errs, LoadError{Path: GroupTreeDir, Err: err})
	default:
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			groupChapters, groupErrs := l.loadTree(fsys, path.Join(GroupTreeDir, entry.Name()), entry.Name())
			chapters = append(chapters, groupChapters...)
			errs = append(errs, groupErrs...)
		}
	}

	g, dupErrs := NewGraph(chapters)
	errs = append(errs, dupErrs...)

	for _, e := range errs {
		l.logger.Warn("Skipped chapter content", "path", e.Path, "chapter_id", e.ChapterID, "error", e.Err)
	}
	l.logger.Info("Chapter graph loaded", "chapters", g.Len(), "skipped", len(errs))

	return g, errs
}

func (l *Loader) loadTree(fsys fs.FS, root, group string) ([]*Chapter, []LoadError) {
	if _, err := fs.Stat(fsys, root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if group == "" {
				l.logger.Warn("Main chapter tree not found", "dir", root)
			}
			return nil, nil
		}
		return nil, []LoadError{{Path: root, Err: err}}
	}

	var (
		chapters []*Chapter
		errs     []LoadError
	)

	_ = fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			errs = append(errs, LoadError{Path: p, Err: err})
			return nil
		}
		if d.IsDir() || !IsContentFile(p) {
			return nil
		}

		ext := path.Ext(p)
		id := strings.TrimSuffix(path.Base(p), ext)
		if group != "" {
			id = GroupPrefix(group) + id
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			errs = append(errs, LoadError{Path: p, ChapterID: id, Err: err})
			return nil
		}

		doc, err := DecodeDocument(data, ext)
		if err != nil {
			errs = append(errs, LoadError{Path: p, ChapterID: id, Err: err})
			return nil
		}
		if err := doc.Check(); err != nil {
			errs = append(errs, LoadError{Path: p, ChapterID: id, Err: err})
			return nil
		}

		ch := doc.ToChapter(id)
		ch.Group = group
		ch.Source = p
		chapters = append(chapters, ch)
		return nil
	})

	if group != "" {
		namespaceReferences(chapters, GroupPrefix(group))
	}
	return chapters, errs
}

// IsContentFile reports whether p has a supported content extension
func IsContentFile(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// namespaceReferences rewrites references to sibling chapters of the same
// group into their prefixed ids. References to anything else are left alone.
func namespaceReferences(chapters []*Chapter, prefix string) {
	siblings := make(map[string]bool, len(chapters))
	for _, ch := range chapters {
		siblings[strings.TrimPrefix(ch.ID, prefix)] = true
	}
	rename := func(id string) string {
		if siblings[id] {
			return prefix + id
		}
		return id
	}

	for _, ch := range chapters {
		ch.NextChapterID = rename(ch.NextChapterID)
		renameChoices(ch.Choices, rename)
		for i := range ch.Dialogues {
			renameChoices(ch.Dialogues[i].Choices, rename)
		}
		for i, r := range ch.Requirements {
			ch.Requirements[i] = renameRequirement(r, rename)
		}
		ch.RequirementText = requirementText(ch.Requirements)
	}
}

func renameChoices(choices []Choice, rename func(string) string) {
	for i := range choices {
		choices[i].NextChapterID = rename(choices[i].NextChapterID)
		for cond, target := range choices[i].ConditionalNextChapter {
			choices[i].ConditionalNextChapter[cond] = rename(target)
		}
	}
}
