package storage

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/jwebster45206/narrative-engine/pkg/consequence"
	"github.com/jwebster45206/narrative-engine/pkg/player"
	"github.com/jwebster45206/narrative-engine/pkg/progress"
)

// MockStorage is an in-memory Storage and consequence Ledger for testing
type MockStorage struct {
	mu            sync.RWMutex
	progress      map[string]*progress.Progress
	players       map[string]*player.Player
	relationships map[string]*player.Relationship
	factions      map[string]map[string]int
	participants  map[string]map[string]bool
	consequences  []*consequence.Consequence
	pingError     error
	saveError     error
	failures      map[string]error
}

// Ensure MockStorage implements Storage and Ledger
var (
	_ Storage            = (*MockStorage)(nil)
	_ consequence.Ledger = (*MockStorage)(nil)
)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		progress:      make(map[string]*progress.Progress),
		players:       make(map[string]*player.Player),
		relationships: make(map[string]*player.Relationship),
		factions:      make(map[string]map[string]int),
		participants:  make(map[string]map[string]bool),
		failures:      make(map[string]error),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError makes every save fail with err; nil restores normal behavior
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// FailOn makes the named write operation (for example "SavePlayer") fail
// with err; nil clears it
func (m *MockStorage) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// writeError must be called with m.mu held
func (m *MockStorage) writeError(op string) error {
	if m.saveError != nil {
		return m.saveError
	}
	return m.failures[op]
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error {
	return nil
}

// Values are cloned on the way in and out so callers never share state with the store

func (m *MockStorage) GetProgress(ctx context.Context, playerID string) (*progress.Progress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.progress[playerID]
	if !ok {
		return nil, nil
	}
	return p.Clone(), nil
}

func (m *MockStorage) SaveProgress(ctx context.Context, p *progress.Progress) error {
	if p == nil {
		return errors.New("progress cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeError("SaveProgress"); err != nil {
		return err
	}
	m.progress[p.PlayerID] = p.Clone()
	return nil
}

func (m *MockStorage) GetPlayer(ctx context.Context, playerID string) (*player.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.players[playerID]
	if !ok {
		return nil, nil
	}
	return p.Clone(), nil
}

func (m *MockStorage) SavePlayer(ctx context.Context, p *player.Player) error {
	if p == nil {
		return errors.New("player cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeError("SavePlayer"); err != nil {
		return err
	}
	m.players[p.ID] = p.Clone()
	return nil
}

func relationshipKey(playerID, npcID string) string {
	return playerID + ":" + npcID
}

func (m *MockStorage) GetRelationship(ctx context.Context, playerID, npcID string) (*player.Relationship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.relationships[relationshipKey(playerID, npcID)]
	if !ok {
		return nil, nil
	}
	return r.Clone(), nil
}

func (m *MockStorage) SaveRelationship(ctx context.Context, r *player.Relationship) error {
	if r == nil {
		return errors.New("relationship cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeError("SaveRelationship"); err != nil {
		return err
	}
	m.relationships[relationshipKey(r.PlayerID, r.NPCID)] = r.Clone()
	return nil
}

func (m *MockStorage) GetFactionStandings(ctx context.Context, playerID string) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := maps.Clone(m.factions[playerID])
	if out == nil {
		out = make(map[string]int)
	}
	return out, nil
}

func (m *MockStorage) SetFactionStanding(ctx context.Context, playerID, factionID string, value int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeError("SetFactionStanding"); err != nil {
		return err
	}
	if m.factions[playerID] == nil {
		m.factions[playerID] = make(map[string]int)
	}
	m.factions[playerID][factionID] = value
	return nil
}

func (m *MockStorage) AddEventParticipant(ctx context.Context, eventID, playerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeError("AddEventParticipant"); err != nil {
		return false, err
	}
	if m.participants[eventID] == nil {
		m.participants[eventID] = make(map[string]bool)
	}
	if m.participants[eventID][playerID] {
		return false, nil
	}
	m.participants[eventID][playerID] = true
	return true, nil
}

func (m *MockStorage) RemoveEventParticipant(ctx context.Context, eventID, playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeError("RemoveEventParticipant"); err != nil {
		return err
	}
	delete(m.participants[eventID], playerID)
	return nil
}

func (m *MockStorage) ListEventParticipants(ctx context.Context, eventID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.participants[eventID])), nil
}

// Consequence ledger operations

func cloneConsequence(c *consequence.Consequence) *consequence.Consequence {
	out := *c
	out.Context = maps.Clone(c.Context)
	out.Effects = slices.Clone(c.Effects)
	out.RelatedChoices = slices.Clone(c.RelatedChoices)
	out.AffectedNPCs = slices.Clone(c.AffectedNPCs)
	out.EthicalReflections = slices.Clone(c.EthicalReflections)
	out.AlternativePaths = slices.Clone(c.AlternativePaths)
	if c.CommunityChoicePercentage != nil {
		pct := *c.CommunityChoicePercentage
		out.CommunityChoicePercentage = &pct
	}
	return &out
}

func (m *MockStorage) InsertConsequence(ctx context.Context, c *consequence.Consequence) error {
	if c == nil {
		return errors.New("consequence cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeError("InsertConsequence"); err != nil {
		return err
	}
	for _, existing := range m.consequences {
		if existing.ID == c.ID {
			return errors.New("duplicate consequence id")
		}
	}
	m.consequences = append(m.consequences, cloneConsequence(c))
	return nil
}

func (m *MockStorage) find(id string) *consequence.Consequence {
	for _, c := range m.consequences {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (m *MockStorage) GetConsequence(ctx context.Context, id string) (*consequence.Consequence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c := m.find(id); c != nil {
		return cloneConsequence(c), nil
	}
	return nil, nil
}

func (m *MockStorage) ListConsequences(ctx context.Context, playerID string) ([]*consequence.Consequence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*consequence.Consequence{}
	for _, c := range m.consequences {
		if c.PlayerID == playerID {
			out = append(out, cloneConsequence(c))
		}
	}
	return out, nil
}

func (m *MockStorage) AppendReflections(ctx context.Context, id string, reflections []string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.find(id)
	if c == nil {
		return false, nil
	}
	c.EthicalReflections = append(c.EthicalReflections, reflections...)
	return true, nil
}

func (m *MockStorage) AppendAlternativePaths(ctx context.Context, id string, paths []string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.find(id)
	if c == nil {
		return false, nil
	}
	c.AlternativePaths = append(c.AlternativePaths, paths...)
	return true, nil
}

func (m *MockStorage) Deactivate(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.find(id)
	if c == nil {
		return false, nil
	}
	c.Active = false
	return true, nil
}

func (m *MockStorage) ChoiceTally(ctx context.Context, chapterID, sceneID, choiceText string) (int, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	latest := make(map[string]string)
	for _, c := range m.consequences {
		if c.ChapterID == chapterID && c.SceneID == sceneID && c.ChoiceText != "" {
			latest[c.PlayerID] = c.ChoiceText
		}
	}
	matching := 0
	for _, text := range latest {
		if text == choiceText {
			matching++
		}
	}
	return matching, len(latest), nil
}
