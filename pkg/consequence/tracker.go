package consequence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMissingPlayer = errors.New("player id is required")
	ErrNotFound      = errors.New("consequence not found")
)

// Decision is everything known about a choice at the moment it is made
type Decision struct {
	PlayerID       string
	ChapterID      string
	SceneID        string
	ChoiceText     string
	Context        map[string]string
	Name           string
	Description    string
	Type           Type
	Effects        []string
	RelatedChoices []string
	AffectedNPCs   []string
}

// Dashboard partitions a player's consequences by type and by active status
type Dashboard struct {
	PlayerID string                  `json:"player_id"`
	Total    int                     `json:"total"`
	ByType   map[Type][]*Consequence `json:"by_type"`
	Active   []*Consequence          `json:"active"`
	Inactive []*Consequence          `json:"inactive"`
}

// Tracker records decisions into a Ledger
type Tracker struct {
	ledger Ledger
	logger *slog.Logger
	now    func() time.Time
}

func NewTracker(ledger Ledger, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{ledger: ledger, logger: logger, now: time.Now}
}

// TrackPlayerDecision creates exactly one new active consequence for d.
// The community percentage is the share of players whose latest choice at the
// same chapter and scene matched, taken before this decision is recorded.
func (t *Tracker) TrackPlayerDecision(ctx context.Context, d Decision) (*Consequence, error) {
	if d.PlayerID == "" {
		return nil, ErrMissingPlayer
	}

	c := &Consequence{
		ID:                 uuid.NewString(),
		PlayerID:           d.PlayerID,
		Name:               d.Name,
		Description:        d.Description,
		Type:               d.Type,
		ChapterID:          d.ChapterID,
		SceneID:            d.SceneID,
		ChoiceText:         d.ChoiceText,
		Context:            d.Context,
		Effects:            nonNil(d.Effects),
		RelatedChoices:     nonNil(d.RelatedChoices),
		AffectedNPCs:       nonNil(d.AffectedNPCs),
		Active:             true,
		CreatedAt:          t.now(),
		EthicalReflections: []string{},
		AlternativePaths:   []string{},
	}
	if !c.Type.Known() {
		c.Type = TypeImmediate
	}
	if c.Name == "" {
		c.Name = defaultName(d)
	}

	if d.ChapterID != "" && d.ChoiceText != "" {
		matching, total, err := t.ledger.ChoiceTally(ctx, d.ChapterID, d.SceneID, d.ChoiceText)
		if err != nil {
			t.logger.Warn("Failed to compute community choice percentage", "chapter_id", d.ChapterID, "scene_id", d.SceneID, "error", err)
		} else if total > 0 {
			pct := float64(matching) / float64(total)
			c.CommunityChoicePercentage = &pct
		}
	}

	if err := t.ledger.InsertConsequence(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to record consequence: %w", err)
	}
	t.logger.Debug("Decision recorded", "consequence_id", c.ID, "player_id", c.PlayerID, "type", c.Type)
	return c, nil
}

func defaultName(d Decision) string {
	if d.ChoiceText != "" {
		return d.ChoiceText
	}
	if d.ChapterID != "" {
		return "Decision in " + d.ChapterID
	}
	return "Decision"
}

// GetDecisionDashboard buckets every consequence the player has
func (t *Tracker) GetDecisionDashboard(ctx context.Context, playerID string) (*Dashboard, error) {
	list, err := t.ledger.ListConsequences(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list consequences: %w", err)
	}

	dash := &Dashboard{
		PlayerID: playerID,
		Total:    len(list),
		ByType:   make(map[Type][]*Consequence, len(Types)),
		Active:   []*Consequence{},
		Inactive: []*Consequence{},
	}
	for _, typ := range Types {
		dash.ByType[typ] = []*Consequence{}
	}
	for _, c := range list {
		dash.ByType[c.Type] = append(dash.ByType[c.Type], c)
		if c.Active {
			dash.Active = append(dash.Active, c)
		} else {
			dash.Inactive = append(dash.Inactive, c)
		}
	}
	return dash, nil
}

// GetCommunityChoicePercentage returns, as a fraction in [0, 1], how many of
// the players with a recorded choice at chapter and scene last chose choiceText.
// It is 0 when nobody has chosen there yet.
func (t *Tracker) GetCommunityChoicePercentage(ctx context.Context, chapterID, sceneID, choiceText string) (float64, error) {
	matching, total, err := t.ledger.ChoiceTally(ctx, chapterID, sceneID, choiceText)
	if err != nil {
		return 0, fmt.Errorf("failed to tally choices: %w", err)
	}
	if total == 0 {
		return 0, nil
	}
	return float64(matching) / float64(total), nil
}

// AddEthicalReflections appends reflections to an existing consequence
func (t *Tracker) AddEthicalReflections(ctx context.Context, id string, reflections ...string) error {
	return t.appendList(ctx, id, reflections, t.ledger.AppendReflections)
}

// AddAlternativePaths appends alternative paths to an existing consequence
func (t *Tracker) AddAlternativePaths(ctx context.Context, id string, paths ...string) error {
	return t.appendList(ctx, id, paths, t.ledger.AppendAlternativePaths)
}

func (t *Tracker) appendList(ctx context.Context, id string, items []string, appendFn func(context.Context, string, []string) (bool, error)) error {
	items = slices.DeleteFunc(slices.Clone(items), func(s string) bool { return s == "" })
	if len(items) == 0 {
		_, err := t.get(ctx, id)
		return err
	}
	found, err := appendFn(ctx, id, items)
	if err != nil {
		return fmt.Errorf("failed to update consequence: %w", err)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// DeactivateConsequence marks a consequence inactive. The record is kept.
func (t *Tracker) DeactivateConsequence(ctx context.Context, id string) error {
	found, err := t.ledger.Deactivate(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate consequence: %w", err)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	t.logger.Debug("Consequence deactivated", "consequence_id", id)
	return nil
}

// GetConsequence returns one consequence by id
func (t *Tracker) GetConsequence(ctx context.Context, id string) (*Consequence, error) {
	return t.get(ctx, id)
}

func (t *Tracker) get(ctx context.Context, id string) (*Consequence, error) {
	c, err := t.ledger.GetConsequence(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load consequence: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}
