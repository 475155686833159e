// Package pipeline drives generation over parsed records in checkpointed batches.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/examforge/internal/checkpoint"
	"github.com/hyperjump/examforge/internal/config"
	"github.com/hyperjump/examforge/internal/generation"
	"github.com/hyperjump/examforge/internal/models"
	"github.com/hyperjump/examforge/internal/validator"
)

var (
	// ErrPersistence halts a run when a batch, the progress file or the failure log
	// cannot be written.
	ErrPersistence = errors.New("persistence failure")
	// ErrInterrupted is returned after a cancelled run has committed its partial batch.
	ErrInterrupted = errors.New("run interrupted")
)

// Generator produces structured records. *generation.Generator implements it.
type Generator interface {
	ID(number int) string
	Generate(ctx context.Context, block models.RawQuestionBlock) (*models.StructuredQuestion, generation.Outcome, error)
}

// Options control a run.
type Options struct {
	BatchSize int
	Resume    bool
	DryRun    bool
	// Strict drops records that fail the completeness check instead of keeping them.
	Strict bool
}

// Summary reports what a run did. It is filled even when Run returns an error.
type Summary struct {
	RunID            string                     `json:"run_id,omitempty"`
	Records          int                        `json:"records"`
	Generated        int                        `json:"generated"`
	Failed           int                        `json:"failed"`
	SkippedInvalid   int                        `json:"skipped_invalid"`
	SkippedProcessed int                        `json:"skipped_processed"`
	SkippedNoAnswer  int                        `json:"skipped_no_answer"`
	Incomplete       int                        `json:"incomplete"`
	Dropped          int                        `json:"dropped"`
	Overrides        int                        `json:"overrides"`
	Batches          int                        `json:"batches"`
	WouldGenerate    int                        `json:"would_generate"`
	Interrupted      bool                       `json:"interrupted"`
	DryRun           bool                       `json:"dry_run"`
	Resumed          bool                       `json:"resumed"`
	Progress         *models.ProcessingProgress `json:"progress"`
	Validation       validator.Summary          `json:"validation"`
	Duration         time.Duration              `json:"duration"`
}

// Orchestrator runs records through a Generator batch by batch. It is the only writer
// of the progress file and the batch files.
type Orchestrator struct {
	gen       Generator
	validator *validator.Validator
	progress  *checkpoint.ProgressStore
	batches   *checkpoint.BatchStore
	failures  *checkpoint.FailureLog
	opts      Options
	logger    *zap.Logger
	now       func() time.Time
}

// New returns an orchestrator persisting into layout.
func New(gen Generator, v *validator.Validator, layout config.Layout, opts Options, logger *zap.Logger) *Orchestrator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		gen:       gen,
		validator: v,
		progress:  checkpoint.NewProgressStore(layout.ProgressFile),
		batches:   checkpoint.NewBatchStore(layout.BatchesDir),
		failures:  checkpoint.NewFailureLog(layout.FailureLog),
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// batchState is the uncommitted work of the current batch.
type batchState struct {
	number   int
	results  []models.StructuredQuestion
	ids      []string
	seen     map[string]struct{}
	failures []models.FailureRecord
}

// Run processes records starting from the stored progress. It returns ErrInterrupted
// when ctx is cancelled; the records attempted so far are committed first.
func (o *Orchestrator) Run(ctx context.Context, records []models.RawQuestionBlock) (*Summary, error) {
	start := o.now()
	sum := &Summary{Records: len(records), DryRun: o.opts.DryRun}
	defer func() { sum.Duration = o.now().Sub(start) }()

	prog := models.NewProgress()
	if o.opts.Resume {
		p, found, err := o.progress.Load()
		if err != nil {
			return sum, err
		}
		if found {
			prog = p
			sum.Resumed = true
			o.logger.Info("resuming",
				zap.Int("last_completed_batch", p.LastCompletedBatch),
				zap.Int("next_question_index", p.NextQuestionIndex),
				zap.Int("processed", len(p.ProcessedIDs)))
		}
	}
	sum.Progress = prog

	for prog.NextQuestionIndex < len(records) {
		if ctx.Err() != nil {
			sum.Interrupted = true
			return sum, ErrInterrupted
		}
		from := prog.NextQuestionIndex
		to := min(from+o.opts.BatchSize, len(records))
		b := &batchState{number: prog.LastCompletedBatch + 1, seen: make(map[string]struct{})}
		o.logger.Info("batch started", zap.Int("batch", b.number), zap.Int("from", from), zap.Int("to", to))

		i := from
		for ; i < to; i++ {
			if ctx.Err() != nil {
				sum.Interrupted = true
				break
			}
			o.process(ctx, records[i], prog, b, sum)
		}
		if i == from {
			return sum, ErrInterrupted
		}
		if err := o.commit(b, i, prog); err != nil {
			return sum, err
		}
		sum.Batches++
		o.logger.Info("batch committed",
			zap.Int("batch", b.number),
			zap.Int("records", len(b.results)),
			zap.Int("next_question_index", i),
			zap.Bool("dry_run", o.opts.DryRun))
		if sum.Interrupted {
			return sum, ErrInterrupted
		}
	}
	return sum, nil
}

// process handles one record.
func (o *Orchestrator) process(ctx context.Context, rec models.RawQuestionBlock, prog *models.ProcessingProgress, b *batchState, sum *Summary) {
	id := o.gen.ID(rec.Number)
	log := o.logger.With(zap.Int("question", rec.Number), zap.String("id", id))
	if _, dup := b.seen[id]; dup || prog.Processed(id) {
		sum.SkippedProcessed++
		log.Debug("already processed")
		return
	}
	if v := o.validator.IsQuestion(rec.QuestionText); !v.OK {
		sum.SkippedInvalid++
		log.Warn("skipping non-question content", zap.Strings("reasons", v.Reasons))
		o.fail(b, rec.Number, "invalid question content: "+strings.Join(v.Reasons, "; "))
		return
	}
	if !rec.HasAnswer() {
		sum.SkippedNoAnswer++
		log.Warn("skipping question without answer key")
		o.fail(b, rec.Number, generation.ErrNoGroundTruth.Error())
		return
	}
	if o.opts.DryRun {
		sum.WouldGenerate++
		b.add(id, nil)
		return
	}

	q, out, err := o.gen.Generate(ctx, rec)
	if err != nil {
		sum.Failed++
		log.Error("generation failed", zap.Int("attempts", out.Attempts), zap.Error(err))
		o.fail(b, rec.Number, "generation failed: "+err.Error())
		return
	}
	if out.Overridden() {
		sum.Overrides++
	}
	res := o.validator.ValidateCompleteness(q)
	sum.Validation.Add(res)
	if !res.Valid {
		sum.Incomplete++
		log.Warn("incomplete record", zap.Strings("violations", res.Violations), zap.Bool("dropped", o.opts.Strict))
		o.fail(b, rec.Number, "incomplete: "+strings.Join(res.Violations, "; "))
		if o.opts.Strict {
			sum.Dropped++
			return
		}
	}
	sum.Generated++
	b.add(id, q)
	log.Info("record generated", zap.Int("attempts", out.Attempts), zap.Bool("override", out.Overridden()))
}

func (b *batchState) add(id string, q *models.StructuredQuestion) {
	b.seen[id] = struct{}{}
	b.ids = append(b.ids, id)
	if q != nil {
		b.results = append(b.results, *q)
	}
}

func (o *Orchestrator) fail(b *batchState, number int, reason string) {
	if o.opts.DryRun {
		return
	}
	b.failures = append(b.failures, models.FailureRecord{QuestionNumber: number, Timestamp: o.now(), Reason: reason})
}

// commit writes the batch file, then the progress file, then the batch's failure
// lines. prog changes only after the batch and progress writes succeed. A crash before
// the failure lines are appended loses them rather than logging them twice on resume.
func (o *Orchestrator) commit(b *batchState, next int, prog *models.ProcessingProgress) error {
	updated := prog.Clone()
	updated.LastCompletedBatch = b.number
	updated.NextQuestionIndex = next
	for _, id := range b.ids {
		updated.MarkProcessed(id)
	}
	if o.opts.DryRun {
		*prog = *updated
		return nil
	}

	if o.batches.Exists(b.number) {
		moved, err := o.batches.Quarantine(b.number, o.now())
		if err != nil {
			return fmt.Errorf("%w: quarantine orphan batch %d: %v", ErrPersistence, b.number, err)
		}
		o.logger.Warn("orphan batch file from an interrupted commit moved aside",
			zap.Int("batch", b.number), zap.String("path", moved))
	}
	if err := o.batches.Write(b.number, b.results); err != nil {
		return fmt.Errorf("%w: write batch %d: %v", ErrPersistence, b.number, err)
	}
	if err := o.progress.Save(updated); err != nil {
		return fmt.Errorf("%w: save progress after batch %d: %v", ErrPersistence, b.number, err)
	}
	*prog = *updated
	for _, f := range b.failures {
		if err := o.failures.Append(f); err != nil {
			return fmt.Errorf("%w: append failure log: %v", ErrPersistence, err)
		}
	}
	return nil
}
