package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/hyperjump/examforge/internal/checkpoint"
	"github.com/hyperjump/examforge/internal/config"
	"github.com/hyperjump/examforge/internal/generation"
	"github.com/hyperjump/examforge/internal/merge"
	"github.com/hyperjump/examforge/internal/models"
	"github.com/hyperjump/examforge/internal/qid"
	"github.com/hyperjump/examforge/internal/retry"
	"github.com/hyperjump/examforge/internal/validator"
)

var testExam = config.ExamConfig{Year: 2024, ExamType: "NEET", PaperCode: "2024-PHY", Subject: "Physics", SubjectCode: "phy"}

type fakeGenerator struct {
	ids        qid.Builder
	fail       map[int]bool
	incomplete map[int]bool
	calls      []int
	after      func(number int)
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		ids:        qid.NewBuilder(testExam.ExamType, testExam.Year, testExam.SubjectCode),
		fail:       map[int]bool{},
		incomplete: map[int]bool{},
	}
}

func (g *fakeGenerator) ID(n int) string { return g.ids.ID(n) }

func (g *fakeGenerator) Generate(ctx context.Context, b models.RawQuestionBlock) (*models.StructuredQuestion, generation.Outcome, error) {
	g.calls = append(g.calls, b.Number)
	if g.after != nil {
		defer g.after(b.Number)
	}
	if g.fail[b.Number] {
		return nil, generation.Outcome{Attempts: 5}, &retry.ExhaustedError{Attempts: 5, Err: errors.New("http 500: upstream")}
	}
	q := &models.StructuredQuestion{
		ID:             g.ID(b.Number),
		QuestionNumber: b.Number,
		ExamInfo:       models.ExamInfo{Year: 2024, ExamType: "NEET", PaperCode: "2024-PHY"},
		Title:          fmt.Sprintf("Incline question %d", b.Number),
		QuestionText:   b.QuestionText,
		CorrectOption:  b.Answer,
		Classification: models.Classification{
			Subject: "Physics", Chapter: "Laws of Motion", Topic: "Inclined planes",
			ConceptTags: []string{"Newton's second law", "components of gravity"},
		},
		StepByStep: []models.Step{
			{Title: "Resolve forces", Content: "Take the component of gravity along the incline."},
			{Title: "Apply F = ma", Content: "Divide by the mass."},
		},
	}
	for _, id := range models.OptionIDs {
		q.Options = append(q.Options, models.Option{ID: id, Text: b.Options[id], IsCorrect: id == b.Answer})
	}
	if g.incomplete[b.Number] {
		q.StepByStep = q.StepByStep[:1]
	}
	return q, generation.Outcome{Attempts: 1}, nil
}

func block(n int) models.RawQuestionBlock {
	return models.RawQuestionBlock{
		Number:       n,
		QuestionText: fmt.Sprintf("A block of mass %d kg slides down a frictionless incline; what is its acceleration?", n),
		Options:      map[models.OptionID]string{"A": "g", "B": "g sin θ", "C": "g cos θ", "D": "zero"},
		Answer:       models.OptionB,
	}
}

func blocks(n int) []models.RawQuestionBlock {
	out := make([]models.RawQuestionBlock, n)
	for i := range out {
		out[i] = block(i + 1)
	}
	return out
}

func testLayout(t *testing.T) config.Layout {
	t.Helper()
	cfg := &config.Config{OutputDir: t.TempDir()}
	cfg.OutputPath = filepath.Join(cfg.OutputDir, "dataset.json")
	return cfg.Layout()
}

func newOrchestrator(gen Generator, l config.Layout, opts Options) *Orchestrator {
	v := validator.New(config.MustCompileDefaults(), config.ValidationConfig{})
	return New(gen, v, l, opts, nil)
}

func loadProgress(t *testing.T, l config.Layout) *models.ProcessingProgress {
	t.Helper()
	p, found, err := checkpoint.NewProgressStore(l.ProgressFile).Load()
	if err != nil || !found {
		t.Fatalf("progress: found=%v err=%v", found, err)
	}
	return p
}

func TestRunBatchWithOneFailure(t *testing.T) {
	l := testLayout(t)
	gen := newFakeGenerator()
	gen.fail[5] = true

	sum, err := newOrchestrator(gen, l, Options{BatchSize: 10, Resume: true}).Run(context.Background(), blocks(10))
	if err != nil {
		t.Fatal(err)
	}
	if sum.Generated != 9 || sum.Failed != 1 || sum.Batches != 1 {
		t.Errorf("summary = %+v", sum)
	}

	qs, err := checkpoint.NewBatchStore(l.BatchesDir).Read(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != 9 {
		t.Fatalf("batch has %d records, want 9", len(qs))
	}
	for _, q := range qs {
		if q.QuestionNumber == 5 {
			t.Error("failed record present in batch")
		}
	}

	failures, err := checkpoint.NewFailureLog(l.FailureLog).Read()
	if err != nil {
		t.Fatal(err)
	}
	if len(failures) != 1 || failures[0].QuestionNumber != 5 || !strings.HasPrefix(failures[0].Reason, "generation failed:") {
		t.Errorf("failures = %+v", failures)
	}

	p := loadProgress(t, l)
	if p.NextQuestionIndex != 10 || p.LastCompletedBatch != 0 || len(p.ProcessedIDs) != 9 {
		t.Errorf("progress = %+v", p)
	}
	if p.Processed(gen.ID(5)) {
		t.Error("failed record marked processed")
	}
}

func mergedIDs(t *testing.T, l config.Layout) []string {
	t.Helper()
	m, err := merge.New(l.BatchesDir, testExam, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	ds, _, err := m.Merge()
	if err != nil {
		t.Fatal(err)
	}
	ids := make([]string, 0, len(ds.Questions))
	for _, q := range ds.Questions {
		ids = append(ids, q.ID)
	}
	sort.Strings(ids)
	return ids
}

func TestResumeIdempotence(t *testing.T) {
	records := blocks(25)

	full := testLayout(t)
	if _, err := newOrchestrator(newFakeGenerator(), full, Options{BatchSize: 10, Resume: true}).Run(context.Background(), records); err != nil {
		t.Fatal(err)
	}

	for _, stopAfter := range []int{10, 12, 25} {
		t.Run(fmt.Sprintf("interrupt after %d", stopAfter), func(t *testing.T) {
			l := testLayout(t)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			gen := newFakeGenerator()
			gen.after = func(n int) {
				if n == stopAfter {
					cancel()
				}
			}
			sum, err := newOrchestrator(gen, l, Options{BatchSize: 10, Resume: true}).Run(ctx, records)
			if stopAfter < len(records) {
				if !errors.Is(err, ErrInterrupted) || !sum.Interrupted {
					t.Fatalf("err = %v interrupted = %v", err, sum.Interrupted)
				}
				if p := loadProgress(t, l); p.NextQuestionIndex != stopAfter {
					t.Errorf("next index after interrupt = %d, want %d", p.NextQuestionIndex, stopAfter)
				}
			} else if err != nil {
				t.Fatal(err)
			}

			resumed := newFakeGenerator()
			sum, err = newOrchestrator(resumed, l, Options{BatchSize: 10, Resume: true}).Run(context.Background(), records)
			if err != nil {
				t.Fatal(err)
			}
			if len(resumed.calls) != len(records)-stopAfter {
				t.Errorf("resumed run generated %d records, want %d", len(resumed.calls), len(records)-stopAfter)
			}
			if stopAfter < len(records) && !sum.Resumed {
				t.Error("second run did not resume")
			}

			got, want := mergedIDs(t, l), mergedIDs(t, full)
			if strings.Join(got, ",") != strings.Join(want, ",") {
				t.Errorf("merged ids differ:\n got %v\nwant %v", got, want)
			}
		})
	}
}

func TestRunSkips(t *testing.T) {
	l := testLayout(t)
	noAnswer := block(2)
	noAnswer.Answer = ""
	instructions := block(3)
	instructions.QuestionText = "Read the following instructions carefully before you begin the test"
	records := []models.RawQuestionBlock{block(1), noAnswer, instructions, block(1), block(4)}

	gen := newFakeGenerator()
	sum, err := newOrchestrator(gen, l, Options{BatchSize: 10, Resume: true}).Run(context.Background(), records)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Generated != 2 || sum.SkippedNoAnswer != 1 || sum.SkippedInvalid != 1 || sum.SkippedProcessed != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if len(gen.calls) != 2 {
		t.Errorf("generated %v", gen.calls)
	}

	failures, _ := checkpoint.NewFailureLog(l.FailureLog).Read()
	if len(failures) != 2 {
		t.Fatalf("failures = %+v", failures)
	}
	if failures[0].Reason != "no answer key in source" {
		t.Errorf("reason = %q", failures[0].Reason)
	}
	if !strings.HasPrefix(failures[1].Reason, "invalid question content:") {
		t.Errorf("reason = %q", failures[1].Reason)
	}

	// A second run over the same records does nothing new.
	gen2 := newFakeGenerator()
	sum, err = newOrchestrator(gen2, l, Options{BatchSize: 10, Resume: true}).Run(context.Background(), records)
	if err != nil {
		t.Fatal(err)
	}
	if len(gen2.calls) != 0 || sum.Batches != 0 {
		t.Errorf("rerun generated %v, batches %d", gen2.calls, sum.Batches)
	}
}

func TestRunNoResumeReprocessesIDs(t *testing.T) {
	l := testLayout(t)
	if _, err := newOrchestrator(newFakeGenerator(), l, Options{BatchSize: 5, Resume: true}).Run(context.Background(), blocks(3)); err != nil {
		t.Fatal(err)
	}
	gen := newFakeGenerator()
	if _, err := newOrchestrator(gen, l, Options{BatchSize: 5, Resume: false}).Run(context.Background(), blocks(3)); err != nil {
		t.Fatal(err)
	}
	if len(gen.calls) != 3 {
		t.Errorf("calls = %v", gen.calls)
	}
	// Batch 0 existed without matching progress, so it was moved aside.
	matches, _ := filepath.Glob(filepath.Join(l.BatchesDir, "batch_0000.json.orphan-*"))
	if len(matches) != 1 {
		t.Errorf("orphans = %v", matches)
	}
	if ids := mergedIDs(t, l); len(ids) != 3 {
		t.Errorf("merged = %v", ids)
	}
}

func TestRunDryRun(t *testing.T) {
	l := testLayout(t)
	noAnswer := block(3)
	noAnswer.Answer = ""
	records := append(blocks(2), noAnswer)

	gen := newFakeGenerator()
	sum, err := newOrchestrator(gen, l, Options{BatchSize: 2, Resume: true, DryRun: true}).Run(context.Background(), records)
	if err != nil {
		t.Fatal(err)
	}
	if len(gen.calls) != 0 {
		t.Error("dry run called the generator")
	}
	if sum.WouldGenerate != 2 || sum.SkippedNoAnswer != 1 || sum.Batches != 2 || !sum.DryRun {
		t.Errorf("summary = %+v", sum)
	}
	if sum.Progress.NextQuestionIndex != 3 || len(sum.Progress.ProcessedIDs) != 2 {
		t.Errorf("in-memory progress = %+v", sum.Progress)
	}
	entries, _ := os.ReadDir(l.BatchesDir)
	if len(entries) != 0 {
		t.Errorf("dry run wrote batches: %v", entries)
	}
	for _, p := range []string{l.ProgressFile, l.FailureLog} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("dry run wrote %s", p)
		}
	}
}

func TestRunIncomplete(t *testing.T) {
	for _, strict := range []bool{false, true} {
		t.Run(fmt.Sprintf("strict=%v", strict), func(t *testing.T) {
			l := testLayout(t)
			gen := newFakeGenerator()
			gen.incomplete[2] = true
			sum, err := newOrchestrator(gen, l, Options{BatchSize: 10, Strict: strict}).Run(context.Background(), blocks(3))
			if err != nil {
				t.Fatal(err)
			}
			if sum.Incomplete != 1 || sum.Validation.ByRule[validator.RuleSteps] != 1 {
				t.Errorf("summary = %+v", sum)
			}
			qs, _ := checkpoint.NewBatchStore(l.BatchesDir).Read(0)
			want := 3
			if strict {
				want = 2
			}
			if len(qs) != want {
				t.Errorf("batch has %d records, want %d", len(qs), want)
			}
			failures, _ := checkpoint.NewFailureLog(l.FailureLog).Read()
			if len(failures) != 1 || !strings.HasPrefix(failures[0].Reason, "incomplete: steps") {
				t.Errorf("failures = %+v", failures)
			}
		})
	}
}

func TestRunCorruptProgress(t *testing.T) {
	l := testLayout(t)
	if err := os.WriteFile(l.ProgressFile, []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	gen := newFakeGenerator()
	if _, err := newOrchestrator(gen, l, Options{Resume: true}).Run(context.Background(), blocks(1)); err == nil {
		t.Fatal("expected error for corrupt progress")
	}
	if len(gen.calls) != 0 {
		t.Error("generator called despite corrupt progress")
	}
}

func TestRunPersistenceFailure(t *testing.T) {
	l := testLayout(t)
	// A regular file where the batches directory should be.
	if err := os.WriteFile(l.BatchesDir, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := newOrchestrator(newFakeGenerator(), l, Options{BatchSize: 2}).Run(context.Background(), blocks(4))
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}
	if _, statErr := os.Stat(l.ProgressFile); !os.IsNotExist(statErr) {
		t.Error("progress written although the batch was not")
	}
}

func TestRunCancelledBeforeStart(t *testing.T) {
	l := testLayout(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum, err := newOrchestrator(newFakeGenerator(), l, Options{}).Run(ctx, blocks(3))
	if !errors.Is(err, ErrInterrupted) || !sum.Interrupted {
		t.Fatalf("err = %v", err)
	}
	if _, statErr := os.Stat(l.ProgressFile); !os.IsNotExist(statErr) {
		t.Error("nothing attempted, nothing should be committed")
	}
}

func TestRunFailureLogWrittenOnCommit(t *testing.T) {
	l := testLayout(t)
	if err := os.WriteFile(l.BatchesDir, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	gen := newFakeGenerator()
	gen.fail[1] = true
	_, err := newOrchestrator(gen, l, Options{BatchSize: 2, Resume: true}).Run(context.Background(), blocks(2))
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}
	if failures, _ := checkpoint.NewFailureLog(l.FailureLog).Read(); len(failures) != 0 {
		t.Fatalf("failures of an uncommitted batch were logged: %+v", failures)
	}

	if err := os.Remove(l.BatchesDir); err != nil {
		t.Fatal(err)
	}
	if _, err := newOrchestrator(gen, l, Options{BatchSize: 2, Resume: true}).Run(context.Background(), blocks(2)); err != nil {
		t.Fatal(err)
	}
	failures, err := checkpoint.NewFailureLog(l.FailureLog).Read()
	if err != nil {
		t.Fatal(err)
	}
	if len(failures) != 1 || failures[0].QuestionNumber != 1 {
		t.Errorf("failures = %+v", failures)
	}
}
