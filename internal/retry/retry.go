// Package retry wraps a single provider invocation with bounded
// exponential-backoff retry for transient failures.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/carwise/gearbox/internal/capability"
)

const (
	// DefaultBaseDelay is the initial backoff delay.
	DefaultBaseDelay = 200 * time.Millisecond

	// DefaultMaxRetries bounds the retries after the first attempt. It is
	// independent of, and nested inside, the refinement attempt count.
	DefaultMaxRetries = 3
)

// AttemptFunc is one underlying provider call.
type AttemptFunc func(ctx context.Context) (*capability.Outcome, error)

// Executor retries transient provider failures with exponential backoff and
// jitter. Jitter avoids synchronized retry storms when many conversations
// hit the same failing upstream at once.
type Executor struct {
	BaseDelay  time.Duration
	MaxRetries int

	// sleep and jitter are overridable in tests.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(max time.Duration) time.Duration
}

// NewExecutor creates an executor. Non-positive arguments fall back to the
// defaults.
func NewExecutor(baseDelay time.Duration, maxRetries int) *Executor {
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Executor{
		BaseDelay:  baseDelay,
		MaxRetries: maxRetries,
		sleep:      sleepCtx,
		jitter: func(max time.Duration) time.Duration {
			if max <= 0 {
				return 0
			}
			return time.Duration(rand.Int63n(int64(max)))
		},
	}
}

// Execute runs fn, retrying transient failures up to MaxRetries times with
// delay baseDelay * 2^attempt + jitter(0, baseDelay). Permanent failures
// return immediately. If retries exhaust, the last outcome is returned with
// its transient error kind preserved so the caller can tell "gave up after
// retries" from "provider said no".
func (e *Executor) Execute(ctx context.Context, fn AttemptFunc) *capability.Outcome {
	var last *capability.Outcome

	for attempt := 0; attempt <= e.MaxRetries; attempt++ {
		out, err := fn(ctx)
		last = Normalize(out, err)

		if last.ErrorKind != capability.ErrorTransient {
			return last
		}
		if attempt == e.MaxRetries {
			return last
		}

		delay := e.BaseDelay<<uint(attempt) + e.jitter(e.BaseDelay)
		if err := e.sleep(ctx, delay); err != nil {
			// Cancelled mid-backoff: hand back the last transient outcome,
			// the caller checks ctx before acting on it.
			return last
		}
	}
	return last
}

// Normalize folds a provider's (outcome, error) pair into a single outcome.
// A Go error without classification, including a per-attempt timeout, counts
// as transient; a provider that knows better sets ErrorKind itself.
func Normalize(out *capability.Outcome, err error) *capability.Outcome {
	if err != nil {
		kind := capability.ErrorTransient
		if out != nil && out.ErrorKind == capability.ErrorPermanent {
			kind = capability.ErrorPermanent
		}
		return capability.ErrorOutcome(kind, err.Error())
	}
	if out == nil {
		return capability.ErrorOutcome(capability.ErrorTransient, "provider returned no outcome")
	}
	if out.Failed() {
		// Enforce the outcome invariant for failures.
		return capability.ErrorOutcome(out.ErrorKind, out.Error)
	}
	if out.Source == "" {
		out.Source = capability.SourceLive
	}
	return out
}

var errSleepCancelled = errors.New("backoff interrupted")

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return errSleepCancelled
	case <-timer.C:
		return nil
	}
}
