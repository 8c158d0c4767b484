package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"fleet_console/internal/domain"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS player_journal (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	cursor INTEGER NOT NULL DEFAULT 0,
	stage_id TEXT NOT NULL DEFAULT '',
	agent TEXT NOT NULL DEFAULT '',
	payload TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_player_journal_run ON player_journal(run_id, id);
`

// Store is an append-only journal of player transitions. Nothing is read back
// into a player; it only feeds the monitor and the API.
type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set sqlite pragma %q: %w", stmt, err)
		}
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, ev domain.PlayerEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal player event: %w", err)
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO player_journal(run_id, kind, cursor, stage_id, agent, payload, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)`,
		ev.RunID, string(ev.Kind), ev.Cursor, ev.StageID, ev.Agent, string(payload), at.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}
	return nil
}

// ListRun returns a run's entries, newest first.
func (s *Store) ListRun(ctx context.Context, runID string, limit int) ([]domain.JournalEntry, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, run_id, kind, cursor, stage_id, agent, payload, created_at
		FROM player_journal
		WHERE run_id = ?
		ORDER BY id DESC
		LIMIT ?`,
		runID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	defer rows.Close()

	result := make([]domain.JournalEntry, 0, limit)
	for rows.Next() {
		var item domain.JournalEntry
		var kind, payload string
		var createdAt int64
		if err := rows.Scan(&item.ID, &item.RunID, &kind, &item.Cursor, &item.StageID, &item.Agent, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		item.Kind = domain.PlayerEventKind(kind)
		item.Payload = []byte(payload)
		item.CreatedAt = time.UnixMilli(createdAt).UTC()
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return result, nil
}

// ListRuns summarises recorded runs, most recently updated first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT run_id, COUNT(*), MAX(cursor),
			SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END),
			MIN(created_at), MAX(created_at), MAX(id) AS last_id
		FROM player_journal
		GROUP BY run_id
		ORDER BY last_id DESC
		LIMIT ?`,
		string(domain.PlayerEventCompleted), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var result []domain.RunSummary
	for rows.Next() {
		var item domain.RunSummary
		var completed int
		var started, updated, lastID int64
		if err := rows.Scan(&item.RunID, &item.Events, &item.MaxCursor, &completed, &started, &updated, &lastID); err != nil {
			return nil, fmt.Errorf("scan run summary: %w", err)
		}
		item.Completed = completed > 0
		item.StartedAt = time.UnixMilli(started).UTC()
		item.UpdatedAt = time.UnixMilli(updated).UTC()
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return result, nil
}

func (s *Store) CountRun(ctx context.Context, runID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM player_journal WHERE run_id = ?`, runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count journal: %w", err)
	}
	return n, nil
}
