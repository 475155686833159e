// Package retry runs an operation under a bounded retry policy.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy bounds how an operation is retried.
//
// Delay follows a failed attempt when another attempt remains. Pause follows every
// attempt, successful or not, and is used to respect endpoint quotas.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Pause       time.Duration
}

// ExhaustedError is returned when every attempt failed.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d attempts failed: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Option configures Do.
type Option func(*runner)

// WithSleeper replaces the real timer, mainly for tests.
func WithSleeper(s Sleeper) Option {
	return func(r *runner) { r.sleep = s }
}

// OnFailure is called after each failed attempt, before any delay.
func OnFailure(fn func(attempt int, err error)) Option {
	return func(r *runner) { r.onFailure = fn }
}

type runner struct {
	sleep     Sleeper
	onFailure func(int, error)
}

// Do calls op until it succeeds or p.MaxAttempts attempts have failed. Attempts are
// numbered from 1. A cancelled ctx stops further attempts; the error then wraps ctx.Err().
func Do(ctx context.Context, p Policy, op func(ctx context.Context, attempt int) error, opts ...Option) error {
	r := runner{sleep: Sleep}
	for _, o := range opts {
		o(&r)
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		last = op(ctx, attempt)
		if last == nil {
			_ = r.pause(ctx, p.Pause)
			return nil
		}
		if r.onFailure != nil {
			r.onFailure(attempt, last)
		}
		wait := p.Pause
		if attempt < attempts {
			wait += p.Delay
		}
		if err := r.pause(ctx, wait); err != nil && attempt < attempts {
			return fmt.Errorf("retry interrupted after attempt %d: %w", attempt, err)
		}
	}
	return &ExhaustedError{Attempts: attempts, Err: last}
}

func (r *runner) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	return r.sleep(ctx, d)
}

// Sleep waits for d unless ctx is done first.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
