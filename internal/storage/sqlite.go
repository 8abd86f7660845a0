package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jwebster45206/narrative-engine/pkg/consequence"
)

const (
	noteReflection  = "reflection"
	noteAlternative = "alternative"
)

// SQLiteLedger keeps the consequence history in a SQLite database.
// Consequence rows are only ever inserted or have active cleared; reflections
// and alternative paths are rows of their own.
type SQLiteLedger struct {
	db *sql.DB
}

// Ensure SQLiteLedger implements the consequence Ledger
var _ consequence.Ledger = (*SQLiteLedger)(nil)

// OpenSQLiteLedger opens (creating if needed) the ledger at path
func OpenSQLiteLedger(path string) (*SQLiteLedger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}
	// One writer keeps appends ordered
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging ledger database: %w", err)
	}

	l := &SQLiteLedger{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating ledger database: %w", err)
	}
	return l, nil
}

func (l *SQLiteLedger) migrate() error {
	_, err := l.db.Exec(ledgerSchema)
	return err
}

func (l *SQLiteLedger) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS consequences (
    seq             INTEGER PRIMARY KEY AUTOINCREMENT,
    id              TEXT NOT NULL UNIQUE,
    player_id       TEXT NOT NULL,
    name            TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    type            TEXT NOT NULL,
    chapter_id      TEXT NOT NULL DEFAULT '',
    scene_id        TEXT NOT NULL DEFAULT '',
    choice_text     TEXT NOT NULL DEFAULT '',
    context         TEXT NOT NULL DEFAULT '{}',
    effects         TEXT NOT NULL DEFAULT '[]',
    related_choices TEXT NOT NULL DEFAULT '[]',
    affected_npcs   TEXT NOT NULL DEFAULT '[]',
    active          INTEGER NOT NULL DEFAULT 1,
    community_pct   REAL,
    created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_consequences_player ON consequences(player_id, seq);
CREATE INDEX IF NOT EXISTS idx_consequences_choice ON consequences(chapter_id, scene_id, player_id, seq);

CREATE TABLE IF NOT EXISTS consequence_notes (
    seq            INTEGER PRIMARY KEY AUTOINCREMENT,
    consequence_id TEXT NOT NULL REFERENCES consequences(id),
    kind           TEXT NOT NULL,
    body           TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_consequence_notes ON consequence_notes(consequence_id, seq);
`

func (l *SQLiteLedger) InsertConsequence(ctx context.Context, c *consequence.Consequence) error {
	jsonCols := make([]string, 4)
	for i, v := range []any{orEmptyMap(c.Context), orEmpty(c.Effects), orEmpty(c.RelatedChoices), orEmpty(c.AffectedNPCs)} {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding consequence: %w", err)
		}
		jsonCols[i] = string(b)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning insert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO consequences (id, player_id, name, description, type, chapter_id, scene_id, choice_text,
			context, effects, related_choices, affected_npcs, active, community_pct, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.PlayerID, c.Name, c.Description, string(c.Type), c.ChapterID, c.SceneID, c.ChoiceText,
		jsonCols[0], jsonCols[1], jsonCols[2], jsonCols[3], c.Active, c.CommunityChoicePercentage, c.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("inserting consequence: %w", err)
	}
	if err := insertNotes(ctx, tx, c.ID, noteReflection, c.EthicalReflections); err != nil {
		return err
	}
	if err := insertNotes(ctx, tx, c.ID, noteAlternative, c.AlternativePaths); err != nil {
		return err
	}
	return tx.Commit()
}

func insertNotes(ctx context.Context, tx *sql.Tx, id, kind string, bodies []string) error {
	for _, body := range bodies {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO consequence_notes (consequence_id, kind, body) VALUES (?, ?, ?)`, id, kind, body); err != nil {
			return fmt.Errorf("inserting %s: %w", kind, err)
		}
	}
	return nil
}

const selectConsequence = `
	SELECT id, player_id, name, description, type, chapter_id, scene_id, choice_text,
		context, effects, related_choices, affected_npcs, active, community_pct, created_at
	FROM consequences`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConsequence(row rowScanner) (*consequence.Consequence, error) {
	var (
		c                                   consequence.Consequence
		typ                                 string
		ctxJSON, effects, related, affected string
		pct                                 sql.NullFloat64
		created                             int64
	)
	if err := row.Scan(&c.ID, &c.PlayerID, &c.Name, &c.Description, &typ, &c.ChapterID, &c.SceneID, &c.ChoiceText,
		&ctxJSON, &effects, &related, &affected, &c.Active, &pct, &created); err != nil {
		return nil, err
	}
	c.Type = consequence.Type(typ)
	c.CreatedAt = time.Unix(0, created).UTC()
	if pct.Valid {
		v := pct.Float64
		c.CommunityChoicePercentage = &v
	}
	for _, col := range []struct {
		raw string
		dst any
	}{
		{ctxJSON, &c.Context},
		{effects, &c.Effects},
		{related, &c.RelatedChoices},
		{affected, &c.AffectedNPCs},
	} {
		if err := json.Unmarshal([]byte(col.raw), col.dst); err != nil {
			return nil, fmt.Errorf("decoding consequence %s: %w", c.ID, err)
		}
	}
	if len(c.Context) == 0 {
		c.Context = nil
	}
	c.EthicalReflections = []string{}
	c.AlternativePaths = []string{}
	return &c, nil
}

// loadNotes fills reflections and alternative paths for the given consequences
func (l *SQLiteLedger) loadNotes(ctx context.Context, byID map[string]*consequence.Consequence, where string, args ...any) error {
	rows, err := l.db.QueryContext(ctx, `
		SELECT n.consequence_id, n.kind, n.body FROM consequence_notes n
		JOIN consequences c ON c.id = n.consequence_id
		WHERE `+where+` ORDER BY n.seq`, args...)
	if err != nil {
		return fmt.Errorf("querying consequence notes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, kind, body string
		if err := rows.Scan(&id, &kind, &body); err != nil {
			return fmt.Errorf("scanning consequence note: %w", err)
		}
		c, ok := byID[id]
		if !ok {
			continue
		}
		switch kind {
		case noteReflection:
			c.EthicalReflections = append(c.EthicalReflections, body)
		case noteAlternative:
			c.AlternativePaths = append(c.AlternativePaths, body)
		}
	}
	return rows.Err()
}

func (l *SQLiteLedger) GetConsequence(ctx context.Context, id string) (*consequence.Consequence, error) {
	c, err := scanConsequence(l.db.QueryRowContext(ctx, selectConsequence+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading consequence: %w", err)
	}
	if err := l.loadNotes(ctx, map[string]*consequence.Consequence{id: c}, "c.id = ?", id); err != nil {
		return nil, err
	}
	return c, nil
}

func (l *SQLiteLedger) ListConsequences(ctx context.Context, playerID string) ([]*consequence.Consequence, error) {
	rows, err := l.db.QueryContext(ctx, selectConsequence+` WHERE player_id = ? ORDER BY seq`, playerID)
	if err != nil {
		return nil, fmt.Errorf("listing consequences: %w", err)
	}

	out := []*consequence.Consequence{}
	byID := make(map[string]*consequence.Consequence)
	for rows.Next() {
		c, err := scanConsequence(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning consequence: %w", err)
		}
		out = append(out, c)
		byID[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("listing consequences: %w", err)
	}
	rows.Close()

	if len(out) > 0 {
		if err := l.loadNotes(ctx, byID, "c.player_id = ?", playerID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (l *SQLiteLedger) exists(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM consequences WHERE id = ?`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("checking consequence: %w", err)
	}
	return n > 0, nil
}

func (l *SQLiteLedger) appendNotes(ctx context.Context, id, kind string, bodies []string) (bool, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning append: %w", err)
	}
	defer tx.Rollback()

	found, err := l.exists(ctx, tx, id)
	if err != nil || !found {
		return false, err
	}
	if err := insertNotes(ctx, tx, id, kind, bodies); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

func (l *SQLiteLedger) AppendReflections(ctx context.Context, id string, reflections []string) (bool, error) {
	return l.appendNotes(ctx, id, noteReflection, reflections)
}

func (l *SQLiteLedger) AppendAlternativePaths(ctx context.Context, id string, paths []string) (bool, error) {
	return l.appendNotes(ctx, id, noteAlternative, paths)
}

func (l *SQLiteLedger) Deactivate(ctx context.Context, id string) (bool, error) {
	res, err := l.db.ExecContext(ctx, `UPDATE consequences SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deactivating consequence: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deactivating consequence: %w", err)
	}
	return n > 0, nil
}

// ChoiceTally counts each player's most recent choice at chapter and scene
func (l *SQLiteLedger) ChoiceTally(ctx context.Context, chapterID, sceneID, choiceText string) (int, int, error) {
	var matching, total int
	err := l.db.QueryRowContext(ctx, `
		WITH latest AS (
			SELECT choice_text,
				ROW_NUMBER() OVER (PARTITION BY player_id ORDER BY seq DESC) AS rn
			FROM consequences
			WHERE chapter_id = ? AND scene_id = ? AND choice_text <> ''
		)
		SELECT COALESCE(SUM(CASE WHEN choice_text = ? THEN 1 ELSE 0 END), 0), COUNT(*)
		FROM latest WHERE rn = 1`,
		chapterID, sceneID, choiceText).Scan(&matching, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("tallying choices: %w", err)
	}
	return matching, total, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orEmptyMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
