// Package content loads chapter and event content from a content tree and
// swaps it into a running engine.
package content

import (
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/jwebster45206/narrative-engine/pkg/chapter"
	"github.com/jwebster45206/narrative-engine/pkg/event"
)

// Bundle is one complete load of a content tree
type Bundle struct {
	Graph   *chapter.Graph
	Events  *event.Catalog
	Skipped []string
}

// Load reads chapters and events from fsys. Bad units are skipped and listed.
func Load(fsys fs.FS, logger *slog.Logger) *Bundle {
	graph, chapterErrs := chapter.NewLoader(logger).Load(fsys)
	events, eventErrs := event.Load(fsys, logger)

	b := &Bundle{Graph: graph, Events: events, Skipped: []string{}}
	for _, e := range chapterErrs {
		b.Skipped = append(b.Skipped, e.Error())
	}
	for _, e := range eventErrs {
		b.Skipped = append(b.Skipped, e.Error())
	}
	return b
}

// Report summarizes a reload
type Report struct {
	Chapters     int       `json:"chapters"`
	Events       int       `json:"events"`
	Skipped      []string  `json:"skipped"`
	Findings     []string  `json:"findings"`
	RomanceError string    `json:"romance_error,omitempty"`
	LoadedAt     time.Time `json:"loaded_at"`
}

// EventSink receives each newly loaded event catalog
type EventSink interface {
	SetEvents(c *event.Catalog)
}

// Manager owns the live content of a running engine
type Manager struct {
	fsys      fs.FS
	registry  *chapter.Registry
	events    EventSink
	romance   *event.RomanceConfig
	validator *chapter.Validator
	logger    *slog.Logger

	mu   sync.Mutex // serializes reloads
	last *Report
}

func NewManager(fsys fs.FS, registry *chapter.Registry, events EventSink, romance *event.RomanceConfig, validator *chapter.Validator, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		fsys:      fsys,
		registry:  registry,
		events:    events,
		romance:   romance,
		validator: validator,
		logger:    logger,
	}
}

// Reload loads the content tree and swaps it in. In-flight operations keep
// the graph they started with.
func (m *Manager) Reload() *Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := Load(m.fsys, m.logger)
	m.registry.Swap(b.Graph)
	if m.events != nil {
		m.events.SetEvents(b.Events)
	}

	report := &Report{
		Chapters: b.Graph.Len(),
		Events:   b.Events.Len(),
		Skipped:  b.Skipped,
		Findings: []string{},
		LoadedAt: time.Now(),
	}
	if m.romance != nil {
		if err := m.romance.Reload(); err != nil {
			m.logger.Error("Failed to reload romance config, keeping previous routes", "error", err)
			report.RomanceError = err.Error()
		}
	}
	if m.validator != nil {
		report.Findings = m.validator.ValidateAll(b.Graph)
	}

	m.logger.Info("Content reloaded",
		"chapters", report.Chapters,
		"events", report.Events,
		"skipped", len(report.Skipped),
		"findings", len(report.Findings))
	m.last = report
	return report
}

// Validate runs the validator over the graph currently in use
func (m *Manager) Validate() []string {
	if m.validator == nil {
		return []string{}
	}
	return m.validator.ValidateAll(m.registry.Current())
}

// Last returns the report of the most recent reload, nil before the first
func (m *Manager) Last() *Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}
