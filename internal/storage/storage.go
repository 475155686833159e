// Package storage persists run and generation-call history.
package storage

import (
	"context"
	"time"

	"github.com/hyperjump/examforge/internal/usage"
)

// Run describes one invocation of the pipeline.
type Run struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Input     string    `json:"input"`
	Model     string    `json:"model"`
	DryRun    bool      `json:"dry_run"`
}

// Totals aggregates recorded generation calls.
type Totals struct {
	Runs         int64 `json:"runs"`
	Calls        int64 `json:"calls"`
	Successes    int64 `json:"successes"`
	Failures     int64 `json:"failures"`
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Ledger stores runs and their generation calls.
type Ledger interface {
	usage.Ledger

	StartRun(ctx context.Context, run Run) error
	FinishRun(ctx context.Context, runID string, status string) error
	RunTotals(ctx context.Context, runID string) (Totals, error)
	AllTimeTotals(ctx context.Context) (Totals, error)
	RecentRuns(ctx context.Context, limit int) ([]RunRecord, error)

	Close() error
}

// RunRecord is a stored run with its outcome.
type RunRecord struct {
	Run
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     string     `json:"status"`
}
