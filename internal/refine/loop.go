// Package refine orchestrates repeated invocations of a single capability,
// feeding provider hints back into the arguments until the confidence
// threshold is met or the attempt budget runs out.
package refine

import (
	"context"
	"fmt"

	"github.com/carwise/gearbox/internal/capability"
	"github.com/carwise/gearbox/internal/retry"
)

// Result is the final product of one refinement session. It exists only for
// the duration of a single façade call and is never persisted.
type Result struct {
	// Outcome is the accepted or best-scoring outcome.
	Outcome *capability.Outcome

	// Attempts holds every attempt's outcome in invocation order.
	Attempts []*capability.Outcome

	// Exhausted is true when the attempt budget ran out (or no usable hints
	// remained) without any outcome reaching the threshold.
	Exhausted bool

	// Refinements counts the hint-driven re-invocations that occurred.
	Refinements int

	// RemainingHints are hints from the chosen outcome that were never
	// applied, surfaced so the caller can decide to ask the user instead.
	RemainingHints []capability.Hint

	// FinalArgs are the arguments used on the last invocation.
	FinalArgs capability.Args
}

// Loop drives the confidence-gated retry-and-refine pattern. It holds no
// state across calls.
type Loop struct {
	exec *retry.Executor
}

// New creates a refinement loop backed by the given retry executor.
func New(exec *retry.Executor) *Loop {
	return &Loop{exec: exec}
}

// Run invokes the capability until an outcome meets the confidence
// threshold, attempts exhaust, or a permanent error occurs. A provider
// scoring exactly the threshold is accepted without further refinement.
func (l *Loop) Run(ctx context.Context, d *capability.Descriptor, args capability.Args) *Result {
	res := &Result{FinalArgs: args.Clone()}
	threshold := d.Threshold()
	maxAttempts := d.MaxAttempts()
	tried := make(map[string]bool)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if ctx.Err() != nil {
			break
		}

		out := l.exec.Execute(ctx, invokeAttempt(d, res.FinalArgs))
		res.Attempts = append(res.Attempts, out)

		if out.ErrorKind == capability.ErrorPermanent {
			// Provider said no; refinement cannot help.
			res.Outcome = out
			res.Exhausted = true
			return res
		}
		if out.Failed() {
			// Transient failure that survived the retry budget. No score
			// and no hints to refine with.
			break
		}

		if out.Confidence >= threshold {
			res.Outcome = out
			return res
		}

		hint, ok := nextHint(out.Hints, tried)
		if !ok || attempt == maxAttempts-1 {
			out.NeedsRefinement = false
			break
		}
		out.NeedsRefinement = true

		tried[hintSignature(hint)] = true
		res.FinalArgs = res.FinalArgs.Clone()
		res.FinalArgs[hint.Field] = hint.Value
		res.Refinements++
	}

	res.Outcome = bestAttempt(res.Attempts)
	res.Exhausted = true
	if res.Outcome != nil {
		res.RemainingHints = untriedHints(res.Outcome.Hints, tried)
	}
	return res
}

// invokeAttempt wraps one provider invocation with the capability's
// per-attempt timeout. Exceeding the timeout surfaces as a transient error
// through retry.Normalize.
func invokeAttempt(d *capability.Descriptor, args capability.Args) retry.AttemptFunc {
	return func(ctx context.Context) (*capability.Outcome, error) {
		if d.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.AttemptTimeout)
			defer cancel()
		}
		out, err := d.Invoke(ctx, args)
		if err == nil && ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("attempt timed out after %s", d.AttemptTimeout)
		}
		return out, err
	}
}

// nextHint returns the first hint, in provider order, not yet tried during
// this session.
func nextHint(hints []capability.Hint, tried map[string]bool) (capability.Hint, bool) {
	for _, h := range hints {
		if !tried[hintSignature(h)] {
			return h, true
		}
	}
	return capability.Hint{}, false
}

func untriedHints(hints []capability.Hint, tried map[string]bool) []capability.Hint {
	var out []capability.Hint
	for _, h := range hints {
		if !tried[hintSignature(h)] {
			out = append(out, h)
		}
	}
	return out
}

func hintSignature(h capability.Hint) string {
	return fmt.Sprintf("%s=%v", h.Field, h.Value)
}

// bestAttempt picks the highest-confidence non-failed outcome. Equal scores
// go to the most recent attempt, since later attempts carry more refined
// arguments. If every attempt failed, the last failure is returned.
func bestAttempt(attempts []*capability.Outcome) *capability.Outcome {
	var best *capability.Outcome
	for _, a := range attempts {
		if a.Failed() {
			continue
		}
		if best == nil || a.Confidence >= best.Confidence {
			best = a
		}
	}
	if best == nil && len(attempts) > 0 {
		best = attempts[len(attempts)-1]
	}
	return best
}
