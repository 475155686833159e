package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/examforge/internal/usage"
)

func TestSQLiteLedger_Runs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "usage.db")
	ledger, err := NewSQLiteLedger(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ledger.Close()
	ctx := context.Background()

	first := Run{ID: "run-1", StartedAt: time.Now().Add(-time.Hour), Input: "paper.pdf", Model: "m"}
	second := Run{ID: "run-2", StartedAt: time.Now(), Input: "paper.pdf", Model: "m"}
	for _, r := range []Run{first, second} {
		if err := ledger.StartRun(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	calls := []struct {
		run string
		c   usage.Call
	}{
		{"run-1", usage.Call{QuestionNumber: 1, RequestID: "a", InputTokens: 100, OutputTokens: 50, Success: true}},
		{"run-1", usage.Call{QuestionNumber: 2, RequestID: "b", Success: false, Err: "http 529"}},
		{"run-2", usage.Call{QuestionNumber: 2, RequestID: "c", InputTokens: 10, OutputTokens: 5, Success: true}},
	}
	for _, tc := range calls {
		if err := ledger.RecordCall(ctx, tc.run, tc.c); err != nil {
			t.Fatal(err)
		}
	}

	got, err := ledger.RunTotals(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	want := Totals{Runs: 1, Calls: 2, Successes: 1, Failures: 1, InputTokens: 100, OutputTokens: 50}
	if got != want {
		t.Errorf("RunTotals = %+v, want %+v", got, want)
	}

	all, err := ledger.AllTimeTotals(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want = Totals{Runs: 2, Calls: 3, Successes: 2, Failures: 1, InputTokens: 110, OutputTokens: 55}
	if all != want {
		t.Errorf("AllTimeTotals = %+v, want %+v", all, want)
	}

	if err := ledger.FinishRun(ctx, "run-1", "completed"); err != nil {
		t.Fatal(err)
	}
	if err := ledger.FinishRun(ctx, "missing", "completed"); err == nil {
		t.Error("expected error finishing unknown run")
	}

	runs, err := ledger.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("RecentRuns returned %d runs", len(runs))
	}
	if runs[0].ID != "run-2" || runs[0].Status != "running" || runs[0].FinishedAt != nil {
		t.Errorf("newest run = %+v", runs[0])
	}
	if runs[1].Status != "completed" || runs[1].FinishedAt == nil {
		t.Errorf("finished run = %+v", runs[1])
	}
}

func TestSQLiteLedger_EmptyTotals(t *testing.T) {
	ledger, err := NewSQLiteLedger(filepath.Join(t.TempDir(), "usage.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer ledger.Close()

	all, err := ledger.AllTimeTotals(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if all != (Totals{}) {
		t.Errorf("AllTimeTotals = %+v, want zero", all)
	}
}

func TestSQLiteLedger_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.db")
	ledger, err := NewSQLiteLedger(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := ledger.StartRun(ctx, Run{ID: "r"}); err != nil {
		t.Fatal(err)
	}
	if err := ledger.RecordCall(ctx, "r", usage.Call{QuestionNumber: 1, Success: true}); err != nil {
		t.Fatal(err)
	}
	ledger.Close()

	ledger, err = NewSQLiteLedger(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ledger.Close()
	all, err := ledger.AllTimeTotals(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if all.Runs != 1 || all.Calls != 1 {
		t.Errorf("after reopen = %+v", all)
	}
}

var _ Ledger = (*SQLiteLedger)(nil)
