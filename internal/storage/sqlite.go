package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/examforge/internal/usage"
)

// SQLiteLedger implements Ledger using SQLite.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteLedger(dbPath string) (*SQLiteLedger, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteLedger{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		input TEXT,
		model TEXT,
		dry_run INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'running'
	);

	CREATE TABLE IF NOT EXISTS generation_calls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		request_id TEXT,
		question_number INTEGER NOT NULL,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		success INTEGER NOT NULL,
		error TEXT,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_calls_run_id ON generation_calls(run_id);
	CREATE INDEX IF NOT EXISTS idx_calls_question ON generation_calls(question_number);
	`
	_, err := db.Exec(schema)
	return err
}

// StartRun inserts a run in the running state.
func (s *SQLiteLedger) StartRun(ctx context.Context, run Run) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, input, model, dry_run) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt, run.Input, run.Model, run.DryRun,
	)
	return err
}

// FinishRun stamps the run with its final status.
func (s *SQLiteLedger) FinishRun(ctx context.Context, runID string, status string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ? WHERE id = ?`,
		time.Now(), status, runID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}

// RecordCall inserts one generation attempt.
func (s *SQLiteLedger) RecordCall(ctx context.Context, runID string, c usage.Call) error {
	if c.At.IsZero() {
		c.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generation_calls
		 (run_id, request_id, question_number, input_tokens, output_tokens, success, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, c.RequestID, c.QuestionNumber, c.InputTokens, c.OutputTokens, c.Success, c.Err, c.At,
	)
	return err
}

const totalsQuery = `
	SELECT COUNT(*),
	       COALESCE(SUM(success), 0),
	       COALESCE(SUM(input_tokens), 0),
	       COALESCE(SUM(output_tokens), 0)
	FROM generation_calls`

// RunTotals returns the call totals for one run.
func (s *SQLiteLedger) RunTotals(ctx context.Context, runID string) (Totals, error) {
	t := Totals{Runs: 1}
	err := s.db.QueryRowContext(ctx, totalsQuery+` WHERE run_id = ?`, runID).
		Scan(&t.Calls, &t.Successes, &t.InputTokens, &t.OutputTokens)
	if err != nil {
		return Totals{}, err
	}
	t.Failures = t.Calls - t.Successes
	return t, nil
}

// AllTimeTotals returns the call totals across every run.
func (s *SQLiteLedger) AllTimeTotals(ctx context.Context) (Totals, error) {
	var t Totals
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&t.Runs); err != nil {
		return Totals{}, err
	}
	err := s.db.QueryRowContext(ctx, totalsQuery).
		Scan(&t.Calls, &t.Successes, &t.InputTokens, &t.OutputTokens)
	if err != nil {
		return Totals{}, err
	}
	t.Failures = t.Calls - t.Successes
	return t, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *SQLiteLedger) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, input, model, dry_run, status
		 FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var finished sql.NullTime
		var input, model sql.NullString
		if err := rows.Scan(&r.ID, &r.StartedAt, &finished, &input, &model, &r.DryRun, &r.Status); err != nil {
			return nil, err
		}
		r.Input, r.Model = input.String, model.String
		if finished.Valid {
			r.FinishedAt = &finished.Time
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteLedger) Close() error {
	return s.db.Close()
}
