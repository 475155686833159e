// Package cli renders run summaries and status reports for the examforge CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/hyperjump/examforge/internal/merge"
	"github.com/hyperjump/examforge/internal/models"
	"github.com/hyperjump/examforge/internal/pipeline"
	"github.com/hyperjump/examforge/internal/storage"
	"github.com/hyperjump/examforge/internal/usage"
)

// OutputFormat selects how reports are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat accepts "text" or "json".
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

// RunReport is everything printed at the end of a run.
type RunReport struct {
	Run         *pipeline.Summary `json:"run"`
	Usage       usage.Stats       `json:"usage"`
	Merge       *merge.Report     `json:"merge,omitempty"`
	DatasetPath string            `json:"dataset_path,omitempty"`
}

// WriteSummary writes the run report to w in the given format.
func WriteSummary(w io.Writer, r RunReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, r)
	}
	s := r.Run
	if s == nil {
		s = &pipeline.Summary{}
	}
	title := "Run summary"
	switch {
	case s.DryRun:
		title = "Dry run summary"
	case s.Interrupted:
		title = "Run summary (interrupted)"
	}
	fmt.Fprintf(w, "\n%s\n%s\n", title, strings.Repeat("=", len(title)))
	if s.RunID != "" {
		fmt.Fprintf(w, "Run ID:             %s\n", s.RunID)
	}
	fmt.Fprintf(w, "Records:            %d\n", s.Records)
	if s.DryRun {
		fmt.Fprintf(w, "Would generate:     %d\n", s.WouldGenerate)
	} else {
		fmt.Fprintf(w, "Generated:          %d\n", s.Generated)
	}
	fmt.Fprintf(w, "Failed:             %d\n", s.Failed)
	fmt.Fprintf(w, "Skipped (done):     %d\n", s.SkippedProcessed)
	fmt.Fprintf(w, "Skipped (invalid):  %d\n", s.SkippedInvalid)
	fmt.Fprintf(w, "Skipped (no key):   %d\n", s.SkippedNoAnswer)
	fmt.Fprintf(w, "Incomplete:         %d (dropped %d)\n", s.Incomplete, s.Dropped)
	fmt.Fprintf(w, "Answer overrides:   %d\n", s.Overrides)
	fmt.Fprintf(w, "Batches committed:  %d\n", s.Batches)
	fmt.Fprintf(w, "Duration:           %s\n", s.Duration.Round(time.Millisecond))

	if rules := s.Validation.Rules(); len(rules) > 0 {
		fmt.Fprintln(w, "\nValidation failures by rule:")
		for _, rule := range rules {
			fmt.Fprintf(w, "  %-24s %d\n", rule, s.Validation.ByRule[rule])
		}
	}

	u := r.Usage
	fmt.Fprintln(w, "\nUsage")
	fmt.Fprintf(w, "  Calls:            %d (%.1f%% success)\n", u.Calls, u.SuccessRate()*100)
	fmt.Fprintf(w, "  Input tokens:     %d\n", u.InputTokens)
	fmt.Fprintf(w, "  Output tokens:    %d\n", u.OutputTokens)
	fmt.Fprintf(w, "  Estimated cost:   $%.4f\n", u.Cost)
	for _, th := range u.Warnings {
		fmt.Fprintf(w, "  WARNING: cost passed $%.2f\n", th)
	}

	if r.Merge != nil {
		fmt.Fprintf(w, "\nDataset: %d questions from %d batches (%d duplicates dropped)\n",
			r.Merge.Questions, r.Merge.Batches, r.Merge.Duplicates)
		if r.DatasetPath != "" {
			fmt.Fprintf(w, "Written to %s\n", r.DatasetPath)
		}
		if r.Merge.SchemaErr != nil {
			fmt.Fprintf(w, "Schema check failed: %s\n", TruncateWords(r.Merge.SchemaErr.Error(), 40))
		}
	}
	return nil
}

// StatusReport describes an output directory without running anything.
type StatusReport struct {
	OutputDir string                     `json:"output_dir"`
	Progress  *models.ProcessingProgress `json:"progress"`
	Resumable bool                       `json:"resumable"`
	Batches   []int                      `json:"batches"`
	Failures  []models.FailureRecord     `json:"failures"`
	AllTime   *storage.Totals            `json:"all_time,omitempty"`
	Cost      float64                    `json:"all_time_cost"`
	Recent    []storage.RunRecord        `json:"recent_runs,omitempty"`
	DiskUsage storage.DiskUsage          `json:"disk_usage"`
}

// WriteStatus writes a status report to w in the given format.
func WriteStatus(w io.Writer, r StatusReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, r)
	}
	fmt.Fprintf(w, "Output directory: %s\n", r.OutputDir)
	if r.Progress != nil && r.Resumable {
		fmt.Fprintf(w, "Progress:         batch %d committed, next record index %d, %d questions processed\n",
			r.Progress.LastCompletedBatch, r.Progress.NextQuestionIndex, len(r.Progress.ProcessedIDs))
	} else {
		fmt.Fprintln(w, "Progress:         no checkpoint")
	}
	fmt.Fprintf(w, "Batches:          %d\n", len(r.Batches))
	fmt.Fprintf(w, "Failures:         %d\n", len(r.Failures))
	for _, f := range lastFailures(r.Failures, 5) {
		fmt.Fprintf(w, "  Q%-4d %s\n", f.QuestionNumber, Truncate(f.Reason, 100))
	}
	if r.AllTime != nil {
		fmt.Fprintf(w, "Runs:             %d\n", r.AllTime.Runs)
		fmt.Fprintf(w, "Generation calls: %d (%d failed)\n", r.AllTime.Calls, r.AllTime.Failures)
		fmt.Fprintf(w, "Tokens:           %d in / %d out\n", r.AllTime.InputTokens, r.AllTime.OutputTokens)
		fmt.Fprintf(w, "All-time cost:    $%.4f\n", r.Cost)
	}
	for _, run := range r.Recent {
		status := run.Status
		if status == "" {
			status = "running"
		}
		fmt.Fprintf(w, "  %s  %s  %-11s %s\n", run.StartedAt.Format(time.RFC3339), run.ID, status, run.Input)
	}
	fmt.Fprintf(w, "Disk usage:       %s (batches %s, logs %s, ledger %s, dataset %s)\n",
		FormatBytes(r.DiskUsage.Total), FormatBytes(r.DiskUsage.Batches), FormatBytes(r.DiskUsage.Logs),
		FormatBytes(r.DiskUsage.Ledger), FormatBytes(r.DiskUsage.Dataset))
	return nil
}

func lastFailures(fs []models.FailureRecord, n int) []models.FailureRecord {
	out := append([]models.FailureRecord{}, fs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
