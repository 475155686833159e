// Package usage accounts for generation calls, token counts and estimated cost.
package usage

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Call is one generation attempt.
type Call struct {
	QuestionNumber int
	RequestID      string
	InputTokens    int
	OutputTokens   int
	Success        bool
	Err            string
	At             time.Time
}

// Recorder receives every generation attempt.
type Recorder interface {
	Record(c Call)
}

// Ledger persists calls beyond the lifetime of a run.
type Ledger interface {
	RecordCall(ctx context.Context, runID string, c Call) error
}

// Pricing is the cost in dollars per million tokens.
type Pricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// Cost returns the dollar estimate for the given token counts.
func (p Pricing) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1e6*p.InputPerMillion + float64(outputTokens)/1e6*p.OutputPerMillion
}

// Stats is a snapshot of a Tracker.
type Stats struct {
	Calls        int     `json:"calls"`
	Successes    int     `json:"successes"`
	Failures     int     `json:"failures"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Cost         float64 `json:"estimated_cost"`
	// Warnings lists the cost thresholds crossed so far.
	Warnings []float64 `json:"cost_warnings,omitempty"`
}

// SuccessRate returns successes/calls, or 0 when no call was made.
func (s Stats) SuccessRate() float64 {
	if s.Calls == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Calls)
}

// Tracker is a Recorder that keeps running totals. It is safe for concurrent use.
type Tracker struct {
	mu         sync.Mutex
	stats      Stats
	pricing    Pricing
	thresholds []float64
	ledger     Ledger
	runID      string
	logger     *zap.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLedger persists every call under runID.
func WithLedger(l Ledger, runID string) Option {
	return func(t *Tracker) {
		t.ledger = l
		t.runID = runID
	}
}

// WithLogger sets the logger used for cost warnings and ledger errors.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewTracker returns a tracker that warns once per threshold crossed.
func NewTracker(p Pricing, thresholds []float64, opts ...Option) *Tracker {
	ts := slices.Clone(thresholds)
	slices.Sort(ts)
	t := &Tracker{pricing: p, thresholds: ts, logger: zap.NewNop()}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Record adds c to the totals. Ledger failures are logged and otherwise ignored.
func (t *Tracker) Record(c Call) {
	if c.At.IsZero() {
		c.At = time.Now()
	}
	t.mu.Lock()
	t.stats.Calls++
	if c.Success {
		t.stats.Successes++
	} else {
		t.stats.Failures++
	}
	t.stats.InputTokens += c.InputTokens
	t.stats.OutputTokens += c.OutputTokens
	t.stats.Cost = t.pricing.Cost(t.stats.InputTokens, t.stats.OutputTokens)
	var crossed []float64
	for _, th := range t.thresholds[len(t.stats.Warnings):] {
		if t.stats.Cost < th {
			break
		}
		crossed = append(crossed, th)
	}
	t.stats.Warnings = append(t.stats.Warnings, crossed...)
	cost := t.stats.Cost
	t.mu.Unlock()

	for _, th := range crossed {
		t.logger.Warn("estimated cost crossed threshold",
			zap.Float64("threshold", th), zap.Float64("estimated_cost", cost))
	}
	if t.ledger != nil {
		if err := t.ledger.RecordCall(context.Background(), t.runID, c); err != nil {
			t.logger.Warn("usage ledger write failed", zap.Int("question", c.QuestionNumber), zap.Error(err))
		}
	}
}

// Stats returns a copy of the current totals.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stats
	s.Warnings = slices.Clone(t.stats.Warnings)
	return s
}
