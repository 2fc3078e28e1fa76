package refine

import (
	"context"
	"testing"
	"time"

	"github.com/carwise/gearbox/internal/capability"
	"github.com/carwise/gearbox/internal/retry"
)

func newTestLoop(t *testing.T) *Loop {
	t.Helper()
	return New(retry.NewExecutor(time.Millisecond, 2))
}

func descriptor(invoke capability.InvokeFunc) *capability.Descriptor {
	return &capability.Descriptor{
		Name:           "symptom.analyze",
		Classification: capability.ClassDiagnostic,
		Invoke:         invoke,
	}
}

func TestAcceptedFirstAttempt(t *testing.T) {
	loop := newTestLoop(t)
	calls := 0

	res := loop.Run(context.Background(), descriptor(func(ctx context.Context, args capability.Args) (*capability.Outcome, error) {
		calls++
		return &capability.Outcome{Confidence: 95}, nil
	}), capability.Args{"symptom": "grinding"})

	if res.Exhausted {
		t.Error("Exhausted = true for accepted outcome")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if res.Refinements != 0 {
		t.Errorf("Refinements = %d, want 0", res.Refinements)
	}
}

func TestThresholdExactlyMetAccepted(t *testing.T) {
	loop := newTestLoop(t)
	calls := 0

	res := loop.Run(context.Background(), descriptor(func(ctx context.Context, args capability.Args) (*capability.Outcome, error) {
		calls++
		return &capability.Outcome{
			Confidence: capability.DefaultConfidenceThreshold,
			Hints:      []capability.Hint{{Field: "timing", Value: "cold start"}},
		}, nil
	}), nil)

	if calls != 1 {
		t.Errorf("calls = %d, want 1: exact threshold must be accepted without refinement", calls)
	}
	if res.Exhausted {
		t.Error("Exhausted = true, want accepted")
	}
}

func TestHintDrivenRefinement(t *testing.T) {
	loop := newTestLoop(t)
	var seenArgs []capability.Args

	// First call scores 45 with a hint; the refined call scores 92.
	res := loop.Run(context.Background(), descriptor(func(ctx context.Context, args capability.Args) (*capability.Outcome, error) {
		seenArgs = append(seenArgs, args.Clone())
		if _, ok := args["symptom_timing"]; !ok {
			return &capability.Outcome{
				Confidence: 45,
				Hints:      []capability.Hint{{Field: "symptom_timing", Value: "while braking", Reason: "add timing of symptom"}},
			}, nil
		}
		return &capability.Outcome{Confidence: 92, Payload: map[string]any{"likely_cause": "brake pad wear"}}, nil
	}), capability.Args{"symptom": "grinding noise"})

	if res.Exhausted {
		t.Fatal("Exhausted = true, want refined acceptance")
	}
	if res.Outcome.Confidence != 92 {
		t.Errorf("Confidence = %d, want the refined 92, not the initial 45", res.Outcome.Confidence)
	}
	if res.Refinements != 1 {
		t.Errorf("Refinements = %d, want 1", res.Refinements)
	}
	if len(seenArgs) != 2 {
		t.Fatalf("invocations = %d, want 2", len(seenArgs))
	}
	if seenArgs[1]["symptom_timing"] != "while braking" {
		t.Errorf("refined args missing hint value: %v", seenArgs[1])
	}
	if seenArgs[1]["symptom"] != "grinding noise" {
		t.Error("refinement dropped original arguments")
	}
}

func TestExhaustedReturnsBestAttempt(t *testing.T) {
	loop := newTestLoop(t)
	confidences := []int{40, 70, 55}
	calls := 0

	res := loop.Run(context.Background(), descriptor(func(ctx context.Context, args capability.Args) (*capability.Outcome, error) {
		c := confidences[calls]
		calls++
		return &capability.Outcome{
			Confidence: c,
			Payload:    map[string]any{"attempt": c},
			Hints:      []capability.Hint{{Field: "detail", Value: calls}},
		}, nil
	}), nil)

	if !res.Exhausted {
		t.Fatal("Exhausted = false, want true")
	}
	if calls != capability.DefaultMaxRefinementAttempts {
		t.Errorf("calls = %d, want %d", calls, capability.DefaultMaxRefinementAttempts)
	}
	if res.Outcome.Confidence != 70 {
		t.Errorf("best outcome confidence = %d, want 70", res.Outcome.Confidence)
	}
}

func TestEqualScoresMostRecentWins(t *testing.T) {
	loop := newTestLoop(t)
	calls := 0

	res := loop.Run(context.Background(), descriptor(func(ctx context.Context, args capability.Args) (*capability.Outcome, error) {
		calls++
		return &capability.Outcome{
			Confidence: 60,
			Payload:    map[string]any{"attempt": calls},
			Hints:      []capability.Hint{{Field: "detail", Value: calls}},
		}, nil
	}), nil)

	if !res.Exhausted {
		t.Fatal("Exhausted = false, want true")
	}
	if got := res.Outcome.Payload["attempt"]; got != capability.DefaultMaxRefinementAttempts {
		t.Errorf("winning attempt = %v, want the most recent (%d)", got, capability.DefaultMaxRefinementAttempts)
	}
}

func TestPermanentErrorShortCircuits(t *testing.T) {
	loop := newTestLoop(t)
	calls := 0

	res := loop.Run(context.Background(), descriptor(func(ctx context.Context, args capability.Args) (*capability.Outcome, error) {
		calls++
		return capability.ErrorOutcome(capability.ErrorPermanent, "model year not supported"), nil
	}), nil)

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if !res.Exhausted {
		t.Error("Exhausted = false, want true for permanent error")
	}
	if res.Outcome.ErrorKind != capability.ErrorPermanent {
		t.Errorf("ErrorKind = %q, want permanent", res.Outcome.ErrorKind)
	}
}

func TestAlreadyTriedHintSkipped(t *testing.T) {
	loop := newTestLoop(t)
	calls := 0

	// The provider keeps suggesting the same hint plus a second one; the
	// duplicate must be skipped in favor of the next untried hint.
	res := loop.Run(context.Background(), descriptor(func(ctx context.Context, args capability.Args) (*capability.Outcome, error) {
		calls++
		return &capability.Outcome{
			Confidence: 50,
			Hints: []capability.Hint{
				{Field: "timing", Value: "cold start"},
				{Field: "mileage", Value: "over 100k"},
			},
		}, nil
	}), nil)

	if !res.Exhausted {
		t.Fatal("Exhausted = false, want true")
	}
	if res.Refinements != 2 {
		t.Errorf("Refinements = %d, want 2 distinct hints applied", res.Refinements)
	}
	if res.FinalArgs["timing"] != "cold start" || res.FinalArgs["mileage"] != "over 100k" {
		t.Errorf("FinalArgs = %v, want both hints merged", res.FinalArgs)
	}
}

func TestNoHintsStopsEarly(t *testing.T) {
	loop := newTestLoop(t)
	calls := 0

	res := loop.Run(context.Background(), descriptor(func(ctx context.Context, args capability.Args) (*capability.Outcome, error) {
		calls++
		return &capability.Outcome{Confidence: 30}, nil
	}), nil)

	if calls != 1 {
		t.Errorf("calls = %d, want 1 when no hints are offered", calls)
	}
	if !res.Exhausted {
		t.Error("Exhausted = false, want true")
	}
}

func TestTransientExhaustionSurfaces(t *testing.T) {
	loop := newTestLoop(t)

	res := loop.Run(context.Background(), descriptor(func(ctx context.Context, args capability.Args) (*capability.Outcome, error) {
		return capability.ErrorOutcome(capability.ErrorTransient, "upstream unreachable"), nil
	}), nil)

	if !res.Exhausted {
		t.Fatal("Exhausted = false, want true")
	}
	if res.Outcome.ErrorKind != capability.ErrorTransient {
		t.Errorf("ErrorKind = %q, want transient preserved", res.Outcome.ErrorKind)
	}
}

func TestTerminationWithinAttemptBudget(t *testing.T) {
	loop := newTestLoop(t)
	calls := 0

	d := descriptor(func(ctx context.Context, args capability.Args) (*capability.Outcome, error) {
		calls++
		// Adversarial provider: always low confidence, always a fresh hint.
		return &capability.Outcome{
			Confidence: 10,
			Hints:      []capability.Hint{{Field: "probe", Value: calls}},
		}, nil
	})
	d.MaxRefinementAttempts = 7

	loop.Run(context.Background(), d, nil)

	if calls != 7 {
		t.Errorf("calls = %d, want exactly the attempt budget (7)", calls)
	}
}

func TestCancelledBeforeNextAttempt(t *testing.T) {
	loop := newTestLoop(t)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	res := loop.Run(ctx, descriptor(func(ctx context.Context, args capability.Args) (*capability.Outcome, error) {
		calls++
		cancel()
		return &capability.Outcome{
			Confidence: 40,
			Hints:      []capability.Hint{{Field: "detail", Value: "more"}},
		}, nil
	}), nil)

	if calls != 1 {
		t.Errorf("calls = %d, want 1: cancellation must abort before a new attempt", calls)
	}
	if !res.Exhausted {
		t.Error("Exhausted = false, want true")
	}
}
