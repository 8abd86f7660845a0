package content

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/narrative-engine/pkg/chapter"
	"github.com/jwebster45206/narrative-engine/pkg/event"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sink struct{ catalog *event.Catalog }

func (s *sink) SetEvents(c *event.Catalog) { s.catalog = c }

func file(s string) *fstest.MapFile { return &fstest.MapFile{Data: []byte(s)} }

func TestLoad(t *testing.T) {
	fsys := fstest.MapFS{
		"chapters/intro.json":    file(`{"title": "Intro", "description": "d", "next_chapter": "harbor"}`),
		"chapters/harbor.yaml":   file("title: Harbor\ndescription: d\n"),
		"chapters/broken.json":   file(`{"title": "Broken"}`),
		"events/festival.json":   file(`{"type": "seasonal", "start_month": 12, "start_day": 20, "end_month": 1, "end_day": 10}`),
		"events/bad.json":        file(`{nope`),
		"groups/7/intro.json":    file(`{"title": "Group intro", "description": "d"}`),
		"romance.toml":           file(``),
		"chapters/readme.txt":    file(`ignored`),
		"events/nested/rain.yml": file("type: random\ntrigger_chance: 0.5\n"),
	}

	b := Load(fsys, testLogger())
	assert.Equal(t, []string{"group_7_intro", "harbor", "intro"}, b.Graph.IDs())
	assert.Equal(t, 2, b.Events.Len())
	_, ok := b.Events.Get("festival")
	assert.True(t, ok)
	assert.Len(t, b.Skipped, 2)
}

func TestManager_Reload(t *testing.T) {
	fsys := fstest.MapFS{
		"chapters/intro.json": file(`{"title": "Intro", "description": "d", "next_chapter": "missing"}`),
		"events/storm.json":   file(`{"type": "random", "trigger_chance": 0.1}`),
	}
	registry := chapter.NewRegistry(nil)
	validator, err := chapter.NewValidator()
	require.NoError(t, err)
	s := &sink{}

	m := NewManager(fsys, registry, s, nil, validator, testLogger())
	assert.Nil(t, m.Last())

	report := m.Reload()
	assert.Equal(t, 1, report.Chapters)
	assert.Equal(t, 1, report.Events)
	assert.Empty(t, report.Skipped)
	assert.NotEmpty(t, report.Findings, "intro points at a missing chapter")
	assert.Equal(t, report.Findings, m.Validate())
	assert.Same(t, report, m.Last())

	assert.True(t, registry.Current().Has("intro"))
	require.NotNil(t, s.catalog)
	assert.Equal(t, 1, s.catalog.Len())

	// The next reload picks up edits
	fsys["chapters/harbor.json"] = file(`{"title": "Harbor", "description": "d"}`)
	report = m.Reload()
	assert.Equal(t, 2, report.Chapters)
	assert.True(t, registry.Current().Has("harbor"))
}

func TestManager_ReloadKeepsRomanceOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "romance.toml")
	require.NoError(t, os.WriteFile(path, []byte("[npc.3]\nrequired_affinity = 80\n"), 0o644))

	romance, err := event.LoadRomanceConfig(path, testLogger())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("[npc.3\n"), 0o644))
	m := NewManager(fstest.MapFS{}, chapter.NewRegistry(nil), nil, romance, nil, testLogger())
	report := m.Reload()
	assert.NotEmpty(t, report.RomanceError)
	assert.Empty(t, report.Findings)

	route, ok := romance.Route("3")
	require.True(t, ok)
	assert.Equal(t, 80, route.RequiredAffinity)
}
