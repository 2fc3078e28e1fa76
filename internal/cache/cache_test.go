package cache

import (
	"testing"
	"time"

	"github.com/carwise/gearbox/internal/capability"
)

func testOutcome(confidence int) *capability.Outcome {
	return &capability.Outcome{
		Payload:    map[string]any{"likely_cause": "brake pad wear"},
		Confidence: confidence,
		Source:     capability.SourceLive,
	}
}

func TestPutAndGet(t *testing.T) {
	store := NewStore(nil)
	key := Key("symptom.analyze", capability.Args{"symptom": "grinding noise"})

	store.Put(key, testOutcome(92), capability.ClassDiagnostic)

	entry, ok := store.Get(key)
	if !ok {
		t.Fatal("Get returned miss, want hit")
	}
	if entry.Value.Confidence != 92 {
		t.Errorf("Confidence = %d, want 92", entry.Value.Confidence)
	}
	if entry.TTL != time.Hour {
		t.Errorf("TTL = %v, want 1h for diagnostic", entry.TTL)
	}
}

func TestKeyDeterministic(t *testing.T) {
	a := Key("parts.price", capability.Args{"part": "brake pads", "region": "us-east"})
	b := Key("parts.price", capability.Args{"region": "us-east", "part": "brake pads"})
	if a != b {
		t.Errorf("keys differ for identical args: %s vs %s", a, b)
	}

	c := Key("parts.price", capability.Args{"part": "alternator", "region": "us-east"})
	if a == c {
		t.Error("keys identical for different args")
	}

	d := Key("vehicle.specs", capability.Args{"part": "brake pads", "region": "us-east"})
	if a == d {
		t.Error("keys identical for different capabilities")
	}
}

func TestKeyUnmarshalableArgsStayDistinct(t *testing.T) {
	// Channels defeat json.Marshal; the key must still tell the sets apart.
	a := capability.Args{"stream": make(chan int)}
	b := capability.Args{"stream": make(chan int)}

	if Key("parts.price", a) == Key("parts.price", b) {
		t.Error("distinct unmarshalable args collapsed to one key")
	}
	if Key("parts.price", a) != Key("parts.price", a) {
		t.Error("key unstable for the same unmarshalable args")
	}
	if Key("parts.price", a) == Key("parts.price", nil) {
		t.Error("unmarshalable args hashed as if absent")
	}
}

func TestExpiryEvictsLazily(t *testing.T) {
	store := NewStore(nil)
	now := time.Now()
	store.now = func() time.Time { return now }

	key := Key("parts.price", capability.Args{"part": "brake pads"})
	store.Put(key, testOutcome(95), capability.ClassPricing)

	// Just inside the 15 minute pricing window.
	now = now.Add(14 * time.Minute)
	if _, ok := store.Get(key); !ok {
		t.Fatal("entry expired before its TTL")
	}

	// Past the window: miss, and the entry is gone.
	now = now.Add(2 * time.Minute)
	if _, ok := store.Get(key); ok {
		t.Fatal("expired entry returned as hit")
	}
	if store.Len() != 0 {
		t.Errorf("Len = %d after lazy eviction, want 0", store.Len())
	}
}

func TestPerClassificationTTL(t *testing.T) {
	store := NewStore(nil)

	tests := []struct {
		class capability.Classification
		want  time.Duration
	}{
		{capability.ClassDiagnostic, time.Hour},
		{capability.ClassPricing, 15 * time.Minute},
		{capability.ClassSpecification, 24 * time.Hour},
		{capability.ClassProcedure, 4 * time.Hour},
	}
	for _, tt := range tests {
		key := Key(string(tt.class), nil)
		store.Put(key, testOutcome(90), tt.class)
		entry, ok := store.Get(key)
		if !ok {
			t.Fatalf("%s: miss after Put", tt.class)
		}
		if entry.TTL != tt.want {
			t.Errorf("%s: TTL = %v, want %v", tt.class, entry.TTL, tt.want)
		}
	}
}

func TestCustomPolicy(t *testing.T) {
	store := NewStore(TTLPolicy{capability.ClassPricing: time.Minute})

	priced := Key("a", nil)
	store.Put(priced, testOutcome(90), capability.ClassPricing)
	entry, ok := store.Get(priced)
	if !ok || entry.TTL != time.Minute {
		t.Errorf("pricing entry TTL = %v ok=%v, want 1m hit", entry.TTL, ok)
	}

	// Classifications missing from the policy are never stored.
	unpriced := Key("b", nil)
	store.Put(unpriced, testOutcome(90), capability.ClassDiagnostic)
	if _, ok := store.Get(unpriced); ok {
		t.Error("entry stored for classification absent from policy")
	}
}

func TestInvalidate(t *testing.T) {
	store := NewStore(nil)
	key := Key("vehicle.specs", capability.Args{"vin": "1HGCM82633A004352"})

	store.Put(key, testOutcome(100), capability.ClassSpecification)
	store.Invalidate(key)

	if _, ok := store.Get(key); ok {
		t.Error("Get returned hit after Invalidate")
	}
}

func TestLastWriteWins(t *testing.T) {
	store := NewStore(nil)
	key := Key("symptom.analyze", nil)

	store.Put(key, testOutcome(50), capability.ClassDiagnostic)
	store.Put(key, testOutcome(95), capability.ClassDiagnostic)

	entry, ok := store.Get(key)
	if !ok {
		t.Fatal("miss after double Put")
	}
	if entry.Value.Confidence != 95 {
		t.Errorf("Confidence = %d, want the later write (95)", entry.Value.Confidence)
	}
}
