// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package journal keeps a durable history of search sessions in SQLite.
// Unlike checkpoints, journal rows are never used to resume work; they are
// the long-term record of what ran, when, and how each engine fared.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/websearch-pro/pkg/types"
)

const dbFile = "journal.db"

// Journal wraps the journal SQLite database.
type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal database under cfg.Dir.
func Open(cfg types.JournalConfig) (*Journal, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening journal database: %w", err)
	}

	j := &Journal{db: db}
	if err := j.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating journal schema: %w", err)
	}
	return j, nil
}

// Close releases the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			status TEXT NOT NULL,
			stopped_reason TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			elapsed_ms INTEGER NOT NULL,
			candidate_count INTEGER NOT NULL,
			ranked_count INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS engine_runs (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			tier TEXT NOT NULL,
			tier_index INTEGER NOT NULL,
			engine TEXT NOT NULL,
			engine_index INTEGER NOT NULL,
			state TEXT NOT NULL,
			started_at TEXT,
			finished_at TEXT,
			result_count INTEGER NOT NULL,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_engine_runs_session ON engine_runs(session_id)`,
	}
	for _, stmt := range statements {
		if _, err := j.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record upserts a session and rewrites its engine runs. Recording the same
// session after a resume replaces the earlier rows.
func (j *Journal) Record(ctx context.Context, sess types.SearchSession) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, query, status, stopped_reason, created_at, updated_at, elapsed_ms, candidate_count, ranked_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			stopped_reason = excluded.stopped_reason,
			updated_at = excluded.updated_at,
			elapsed_ms = excluded.elapsed_ms,
			candidate_count = excluded.candidate_count,
			ranked_count = excluded.ranked_count`,
		sess.ID, sess.Query.Original, string(sess.Status), sess.StoppedReason,
		sess.CreatedAt.UTC().Format(time.RFC3339), sess.UpdatedAt.UTC().Format(time.RFC3339),
		sess.Elapsed.Milliseconds(), len(sess.Candidates), len(sess.Ranked))
	if err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM engine_runs WHERE session_id = ?`, sess.ID); err != nil {
		return fmt.Errorf("clearing engine runs: %w", err)
	}

	for _, task := range sess.Tasks {
		started, finished := "", ""
		if !task.StartedAt.IsZero() {
			started = task.StartedAt.UTC().Format(time.RFC3339)
		}
		if !task.FinishedAt.IsZero() {
			finished = task.FinishedAt.UTC().Format(time.RFC3339)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO engine_runs (session_id, tier, tier_index, engine, engine_index, state, started_at, finished_at, result_count, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sess.ID, task.Tier, task.TierIndex, task.Engine, task.EngineIndex,
			string(task.State), started, finished, task.ResultCount, task.Error)
		if err != nil {
			return fmt.Errorf("inserting engine run: %w", err)
		}
	}

	return tx.Commit()
}

// Entry is one row of session history.
type Entry struct {
	ID             string
	Query          string
	Status         types.SessionStatus
	StoppedReason  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Elapsed        time.Duration
	CandidateCount int
	RankedCount    int
}

// History returns recorded sessions, newest first. limit <= 0 means all.
func (j *Journal) History(ctx context.Context, limit int) ([]Entry, error) {
	q := `SELECT id, query, status, stopped_reason, created_at, updated_at, elapsed_ms, candidate_count, ranked_count
		FROM sessions ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var status, created, updated string
		var elapsedMs int64
		if err := rows.Scan(&e.ID, &e.Query, &status, &e.StoppedReason, &created, &updated, &elapsedMs, &e.CandidateCount, &e.RankedCount); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		e.Status = types.SessionStatus(status)
		e.CreatedAt, _ = time.Parse(time.RFC3339, created)
		e.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
		e.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Runs returns the recorded engine runs for one session, in plan order.
func (j *Journal) Runs(ctx context.Context, sessionID string) ([]types.EngineTask, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT tier, tier_index, engine, engine_index, state, started_at, finished_at, result_count, error
		FROM engine_runs WHERE session_id = ?
		ORDER BY tier_index, engine_index`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying engine runs: %w", err)
	}
	defer rows.Close()

	var tasks []types.EngineTask
	for rows.Next() {
		var t types.EngineTask
		var state, started, finished string
		if err := rows.Scan(&t.Tier, &t.TierIndex, &t.Engine, &t.EngineIndex, &state, &started, &finished, &t.ResultCount, &t.Error); err != nil {
			return nil, fmt.Errorf("scanning engine run row: %w", err)
		}
		t.State = types.TaskState(state)
		if started != "" {
			t.StartedAt, _ = time.Parse(time.RFC3339, started)
		}
		if finished != "" {
			t.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Delete removes a session and its engine runs. Idempotent.
func (j *Journal) Delete(ctx context.Context, sessionID string) error {
	if _, err := j.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
