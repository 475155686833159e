// Package generation turns a parsed question into a structured record through an
// external text-generation service.
package generation

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/examforge/internal/config"
	"github.com/hyperjump/examforge/internal/jsonx"
	"github.com/hyperjump/examforge/internal/llm"
	"github.com/hyperjump/examforge/internal/models"
	"github.com/hyperjump/examforge/internal/qid"
	"github.com/hyperjump/examforge/internal/retry"
	"github.com/hyperjump/examforge/internal/usage"
)

// ErrNoGroundTruth is returned for blocks without an answer key entry.
var ErrNoGroundTruth = errors.New("no answer key in source")

// Outcome reports how a record was produced.
type Outcome struct {
	Attempts  int
	RequestID string
	Override  *Override
}

// Overridden reports whether the generated answer had to be corrected.
func (o Outcome) Overridden() bool { return o.Override != nil }

// Settings are the generation parameters of a run.
type Settings struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Policy      retry.Policy
	Exam        config.ExamConfig
}

// SettingsFrom derives Settings from a loaded config.
func SettingsFrom(cfg *config.Config) Settings {
	g := cfg.Generation
	return Settings{
		Model:       g.Model,
		Temperature: g.Temperature,
		MaxTokens:   g.MaxTokens,
		Policy: retry.Policy{
			MaxAttempts: g.MaxRetries,
			Delay:       g.ErrorDelay,
			Pause:       g.RateLimitDelay,
		},
		Exam: cfg.Exam,
	}
}

type nopRecorder struct{}

func (nopRecorder) Record(usage.Call) {}

// Generator produces one StructuredQuestion per call.
type Generator struct {
	client    llm.Completer
	settings  Settings
	ids       qid.Builder
	recorder  usage.Recorder
	logger    *zap.Logger
	retryOpts []retry.Option
}

// Option configures a Generator.
type Option func(*Generator)

// WithRecorder receives every attempt.
func WithRecorder(r usage.Recorder) Option {
	return func(g *Generator) {
		if r != nil {
			g.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithRetryOptions passes extra options to retry.Do.
func WithRetryOptions(opts ...retry.Option) Option {
	return func(g *Generator) { g.retryOpts = append(g.retryOpts, opts...) }
}

// New returns a generator calling client.
func New(client llm.Completer, s Settings, opts ...Option) *Generator {
	g := &Generator{
		client:   client,
		settings: s,
		ids:      qid.NewBuilder(s.Exam.ExamType, s.Exam.Year, s.Exam.SubjectCode),
		recorder: nopRecorder{},
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// ID returns the record id of question number n.
func (g *Generator) ID(n int) string { return g.ids.ID(n) }

// Generate structures block. The call and its retries run detached from ctx
// cancellation so a paid request is never abandoned mid-flight.
func (g *Generator) Generate(ctx context.Context, block models.RawQuestionBlock) (*models.StructuredQuestion, Outcome, error) {
	var out Outcome
	if !block.HasAnswer() {
		return nil, out, ErrNoGroundTruth
	}
	id := g.ids.ID(block.Number)
	req := llm.Request{
		Model:       g.settings.Model,
		System:      SystemPrompt(g.settings.Exam),
		Prompt:      UserPrompt(block, id, g.settings.Exam),
		Temperature: g.settings.Temperature,
		MaxTokens:   g.settings.MaxTokens,
	}
	log := g.logger.With(zap.Int("question", block.Number))

	var result *models.StructuredQuestion
	op := func(ctx context.Context, attempt int) error {
		out.Attempts = attempt
		log.Info("generation attempt", zap.Int("attempt", attempt), zap.Int("max", g.settings.Policy.MaxAttempts))
		call := usage.Call{QuestionNumber: block.Number}
		comp, err := g.client.Complete(ctx, req)
		if err != nil {
			call.Err = err.Error()
			g.recorder.Record(call)
			return err
		}
		call.RequestID = comp.RequestID
		call.InputTokens = comp.InputTokens
		call.OutputTokens = comp.OutputTokens
		log.Info("tokens", zap.Int("input", comp.InputTokens), zap.Int("output", comp.OutputTokens))

		var q models.StructuredQuestion
		if err := jsonx.Decode(comp.Text, &q); err != nil {
			call.Err = err.Error()
			g.recorder.Record(call)
			return fmt.Errorf("parse response: %w", err)
		}
		call.Success = true
		g.recorder.Record(call)
		out.RequestID = comp.RequestID
		result = &q
		return nil
	}
	onFailure := retry.OnFailure(func(attempt int, err error) {
		log.Warn("generation attempt failed", zap.Int("attempt", attempt), zap.Error(err))
	})
	opts := append([]retry.Option{onFailure}, g.retryOpts...)
	if err := retry.Do(context.WithoutCancel(ctx), g.settings.Policy, op, opts...); err != nil {
		return nil, out, err
	}

	exam := models.ExamInfo{Year: g.settings.Exam.Year, ExamType: g.settings.Exam.ExamType, PaperCode: g.settings.Exam.PaperCode}
	if ov := EnforceAnswer(result, block, id, exam, g.settings.Exam.Subject); ov != nil {
		out.Override = ov
		log.Error("generated answer disagreed with answer key; forcing key",
			zap.String("generated", string(ov.Generated)),
			zap.String("answer_key", string(ov.Truth)),
			zap.Bool("flags_fixed", ov.FlagsFixed))
	}
	return result, out, nil
}
