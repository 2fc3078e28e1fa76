package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/carwise/gearbox/internal/cache"
	"github.com/carwise/gearbox/internal/capability"
	"github.com/carwise/gearbox/internal/refine"
	"github.com/carwise/gearbox/internal/retry"
	"github.com/carwise/gearbox/internal/session"
)

func newTestOrchestrator(t *testing.T, descs ...*capability.Descriptor) *Orchestrator {
	t.Helper()
	reg := capability.NewRegistry()
	for _, d := range descs {
		if err := reg.Register(d); err != nil {
			t.Fatalf("Register %s: %v", d.Name, err)
		}
	}
	loop := refine.New(retry.NewExecutor(time.Millisecond, 3))
	return New(reg, cache.NewStore(nil), loop, session.NewMemoryStore())
}

func TestUnknownCapability(t *testing.T) {
	o := newTestOrchestrator(t)

	_, err := o.Invoke(context.Background(), "conv-1", "nope", nil)
	if !errors.Is(err, capability.ErrUnknownCapability) {
		t.Errorf("Invoke unknown = %v, want ErrUnknownCapability", err)
	}
}

func TestCacheHitSkipsProvider(t *testing.T) {
	calls := 0
	d := &capability.Descriptor{
		Name:           "vehicle.specs",
		Classification: capability.ClassSpecification,
		Cacheable:      true,
		Invoke: func(ctx context.Context, args capability.Args) (*capability.Outcome, error) {
			calls++
			return &capability.Outcome{
				Payload:    map[string]any{"engine": "2.5L flat-4"},
				Confidence: 100,
			}, nil
		},
	}
	o := newTestOrchestrator(t, d)
	ctx := context.Background()
	args := capability.Args{"make": "Subaru", "model": "Outback", "year": 2021}

	first, err := o.Invoke(ctx, "conv-1", "vehicle.specs", args)
	if err != nil {
		t.Fatalf("first Invoke: %v", err)
	}
	if first.Source != capability.SourceLive {
		t.Errorf("first Source = %q, want live", first.Source)
	}

	second, err := o.Invoke(ctx, "conv-1", "vehicle.specs", args)
	if err != nil {
		t.Fatalf("second Invoke: %v", err)
	}
	if calls != 1 {
		t.Errorf("provider calls = %d, want 1: second call must hit the cache", calls)
	}
	if second.Source != capability.SourceCache {
		t.Errorf("second Source = %q, want cache", second.Source)
	}
	if second.Payload["engine"] != first.Payload["engine"] {
		t.Error("cached payload differs from the original")
	}

	// Different arguments miss the cache.
	if _, err := o.Invoke(ctx, "conv-1", "vehicle.specs", capability.Args{"make": "Honda"}); err != nil {
		t.Fatalf("third Invoke: %v", err)
	}
	if calls != 2 {
		t.Errorf("provider calls = %d, want 2 after different args", calls)
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	calls := 0
	d := &capability.Descriptor{
		Name:           "parts.price",
		Classification: capability.ClassPricing,
		Cacheable:      true,
		Invoke: func(ctx context.Context, args capability.Args) (*capability.Outcome, error) {
			calls++
			return &capability.Outcome{Payload: map[string]any{"price": 120 + calls}, Confidence: 95}, nil
		},
	}
	o := newTestOrchestrator(t, d)
	ctx := context.Background()
	args := capability.Args{"part": "brake pads"}

	o.Invoke(ctx, "conv-1", "parts.price", args)
	o.Invalidate("parts.price", args)
	o.Invoke(ctx, "conv-1", "parts.price", args)

	if calls != 2 {
		t.Errorf("provider calls = %d, want 2 after invalidation", calls)
	}
}

// Scenario: a diagnosis establishes brake pad wear at 92, then a pricing
// call for brake pads carries that cause forward and nothing else.
func TestDiagnosisThenPricing(t *testing.T) {
	diag := &capability.Descriptor{
		Name:           "symptom.analyze",
		Classification: capability.ClassDiagnostic,
		Invoke: func(ctx context.Context, args capability.Args) (*capability.Outcome, error) {
			return &capability.Outcome{
				Payload:    map[string]any{"likely_cause": "brake pad wear", "topic": "brakes"},
				Confidence: 92,
			}, nil
		},
	}
	price := &capability.Descriptor{
		Name:           "parts.price",
		Classification: capability.ClassPricing,
		Invoke: func(ctx context.Context, args capability.Args) (*capability.Outcome, error) {
			return &capability.Outcome{
				Payload:    map[string]any{"part": "brake pads", "price_low": 120, "price_high": 280},
				Confidence: 95,
			}, nil
		},
	}
	o := newTestOrchestrator(t, diag, price)
	ctx := context.Background()

	res, err := o.Invoke(ctx, "conv-1", "symptom.analyze", capability.Args{"symptom": "grinding noise while braking"})
	if err != nil {
		t.Fatalf("diagnose: %v", err)
	}
	if len(res.NewFacts) != 1 {
		t.Fatalf("NewFacts = %d, want 1", len(res.NewFacts))
	}

	res, err = o.Invoke(ctx, "conv-1", "parts.price", capability.Args{"part": "brake pads"})
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if len(res.RelatedFacts) != 1 || res.RelatedFacts[0].Value != "brake pad wear" {
		t.Errorf("RelatedFacts = %+v, want exactly the established brake cause", res.RelatedFacts)
	}
}

// Scenario: first attempt scores 45 with a hint, the refined attempt scores
// 92; the façade returns the refined result and reports one refinement.
func TestRefinementReported(t *testing.T) {
	d := &capability.Descriptor{
		Name:           "symptom.analyze",
		Classification: capability.ClassDiagnostic,
		Invoke: func(ctx context.Context, args capability.Args) (*capability.Outcome, error) {
			if _, ok := args["symptom_timing"]; !ok {
				return &capability.Outcome{
					Confidence: 45,
					Hints:      []capability.Hint{{Field: "symptom_timing", Value: "while braking", Reason: "add timing of symptom"}},
				}, nil
			}
			return &capability.Outcome{
				Payload:    map[string]any{"likely_cause": "brake pad wear", "topic": "brakes"},
				Confidence: 92,
			}, nil
		},
	}
	o := newTestOrchestrator(t, d)

	res, err := o.Invoke(context.Background(), "conv-1", "symptom.analyze", capability.Args{"symptom": "grinding"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if res.Confidence != 92 {
		t.Errorf("Confidence = %d, want the refined 92", res.Confidence)
	}
	if res.Refinements != 1 {
		t.Errorf("Refinements = %d, want 1", res.Refinements)
	}
	if res.Exhausted {
		t.Error("Exhausted = true for an accepted refinement")
	}
}

// Scenario: three transient failures then success within one refinement
// attempt's retry budget; the façade returns the live result.
func TestTransientRecoveryWithinRetryBudget(t *testing.T) {
	calls := 0
	d := &capability.Descriptor{
		Name:           "parts.price",
		Classification: capability.ClassPricing,
		Invoke: func(ctx context.Context, args capability.Args) (*capability.Outcome, error) {
			calls++
			if calls <= 3 {
				return capability.ErrorOutcome(capability.ErrorTransient, "pricing upstream 503"), nil
			}
			return &capability.Outcome{Payload: map[string]any{"price_low": 120}, Confidence: 95}, nil
		},
	}
	o := newTestOrchestrator(t, d)

	res, err := o.Invoke(context.Background(), "conv-1", "parts.price", capability.Args{"part": "brake pads"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if res.ErrorKind != capability.ErrorNone {
		t.Fatalf("ErrorKind = %q, want recovery", res.ErrorKind)
	}
	if res.Source != capability.SourceLive {
		t.Errorf("Source = %q, want live", res.Source)
	}
	if calls != 4 {
		t.Errorf("underlying calls = %d, want 4", calls)
	}
}

// Scenario: every refinement attempt stays below threshold; the façade
// returns exhausted with the best attempt's payload, never an error.
func TestExhaustionIsDataNotError(t *testing.T) {
	confidences := []int{40, 70, 55}
	calls := 0
	d := &capability.Descriptor{
		Name:           "symptom.analyze",
		Classification: capability.ClassDiagnostic,
		Invoke: func(ctx context.Context, args capability.Args) (*capability.Outcome, error) {
			c := confidences[calls%len(confidences)]
			calls++
			return &capability.Outcome{
				Payload:    map[string]any{"guess": c},
				Confidence: c,
				Hints:      []capability.Hint{{Field: "round", Value: calls}},
			}, nil
		},
	}
	o := newTestOrchestrator(t, d)

	res, err := o.Invoke(context.Background(), "conv-1", "symptom.analyze", nil)
	if err != nil {
		t.Fatalf("Invoke returned error for exhaustion: %v", err)
	}
	if !res.Exhausted {
		t.Fatal("Exhausted = false, want true")
	}
	if res.Confidence != 70 {
		t.Errorf("Confidence = %d, want the best attempt (70)", res.Confidence)
	}
}

func TestPermanentFailureIsDataNotError(t *testing.T) {
	d := &capability.Descriptor{
		Name:           "vehicle.specs",
		Classification: capability.ClassSpecification,
		Cacheable:      true,
		Invoke: func(ctx context.Context, args capability.Args) (*capability.Outcome, error) {
			return capability.ErrorOutcome(capability.ErrorPermanent, "VIN not in registry"), nil
		},
	}
	o := newTestOrchestrator(t, d)

	res, err := o.Invoke(context.Background(), "conv-1", "vehicle.specs", capability.Args{"vin": "X"})
	if err != nil {
		t.Fatalf("Invoke returned error for permanent provider failure: %v", err)
	}
	if res.ErrorKind != capability.ErrorPermanent {
		t.Errorf("ErrorKind = %q, want permanent", res.ErrorKind)
	}

	// Failed outcomes are never cached.
	res2, err := o.Invoke(context.Background(), "conv-1", "vehicle.specs", capability.Args{"vin": "X"})
	if err != nil {
		t.Fatalf("second Invoke: %v", err)
	}
	if res2.Source == capability.SourceCache {
		t.Error("failed outcome was served from cache")
	}
}

func TestCancelledCallDoesNotWriteCache(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	d := &capability.Descriptor{
		Name:           "symptom.analyze",
		Classification: capability.ClassDiagnostic,
		Cacheable:      true,
		Invoke: func(ctx context.Context, args capability.Args) (*capability.Outcome, error) {
			calls++
			cancel()
			return &capability.Outcome{Payload: map[string]any{"x": 1}, Confidence: 99}, nil
		},
	}
	o := newTestOrchestrator(t, d)

	o.Invoke(ctx, "conv-1", "symptom.analyze", capability.Args{"symptom": "stall"})

	// A fresh call must re-invoke: the cancelled call never wrote the cache.
	o.Invoke(context.Background(), "conv-2", "symptom.analyze", capability.Args{"symptom": "stall"})
	if calls != 2 {
		t.Errorf("provider calls = %d, want 2: cancelled call must not populate the cache", calls)
	}
}

func TestConcurrentConversationsIndependent(t *testing.T) {
	d := &capability.Descriptor{
		Name:           "symptom.analyze",
		Classification: capability.ClassDiagnostic,
		Invoke: func(ctx context.Context, args capability.Args) (*capability.Outcome, error) {
			return &capability.Outcome{
				Payload:    map[string]any{"likely_cause": args["symptom"].(string) + " cause", "topic": "misc"},
				Confidence: 95,
			}, nil
		},
	}
	o := newTestOrchestrator(t, d)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 8; i++ {
		conv := string(rune('a' + i))
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func(conv, sym string) {
				defer wg.Done()
				_, err := o.Invoke(context.Background(), conv, "symptom.analyze", capability.Args{"symptom": sym})
				if err != nil {
					errs <- err
				}
			}(conv, conv+"-symptom")
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Invoke: %v", err)
	}

	sc, err := o.Sessions().Load(context.Background(), "a")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(sc.Facts) != 1 {
		t.Errorf("conversation a Facts = %d, want 1 deduplicated fact", len(sc.Facts))
	}
}
