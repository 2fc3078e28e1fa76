// Package cache holds provider outcomes keyed by capability and arguments,
// with a freshness window derived from the capability's data classification.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/carwise/gearbox/internal/capability"
)

// TTLPolicy maps a data classification to how long its outcomes stay fresh.
type TTLPolicy map[capability.Classification]time.Duration

// DefaultTTLPolicy returns the stock freshness windows.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		capability.ClassDiagnostic:    time.Hour,
		capability.ClassPricing:       15 * time.Minute,
		capability.ClassSpecification: 24 * time.Hour,
		capability.ClassProcedure:     4 * time.Hour,
	}
}

// Entry is a cached outcome with its insertion time and freshness window.
type Entry struct {
	Value      *capability.Outcome
	InsertedAt time.Time
	TTL        time.Duration
}

// Store is an in-memory outcome cache. Expired entries are evicted lazily
// on lookup; there is no background sweeper.
type Store struct {
	mu     sync.Mutex
	policy TTLPolicy
	items  map[string]Entry

	now func() time.Time // overridable in tests
}

// NewStore creates a cache store with the given TTL policy. A nil policy
// falls back to DefaultTTLPolicy.
func NewStore(policy TTLPolicy) *Store {
	if policy == nil {
		policy = DefaultTTLPolicy()
	}
	return &Store{
		policy: policy,
		items:  make(map[string]Entry),
		now:    time.Now,
	}
}

// Key computes the deterministic cache key for a capability call.
// encoding/json writes map keys in sorted order, so identical argument
// sets hash identically regardless of insertion order.
func Key(capabilityName string, args capability.Args) string {
	h := sha256.New()
	h.Write([]byte(capabilityName))
	h.Write([]byte{0})
	if encoded, err := json.Marshal(args); err == nil {
		h.Write(encoded)
	} else {
		// In-process callers may pass arguments JSON cannot encode; hash
		// the Go representation so distinct argument sets stay distinct.
		fmt.Fprintf(h, "%#v", args)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached entry for key, or ok=false on miss. An entry whose
// age exceeds its TTL is removed and reported as a miss.
func (s *Store) Get(key string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.items[key]
	if !ok {
		return Entry{}, false
	}
	if s.now().Sub(entry.InsertedAt) > entry.TTL {
		delete(s.items, key)
		return Entry{}, false
	}
	return entry, true
}

// Put stores an outcome under key with the TTL for its classification.
// Classifications absent from the policy are not cached at all.
func (s *Store) Put(key string, out *capability.Outcome, class capability.Classification) {
	ttl, ok := s.policy[class]
	if !ok || ttl <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = Entry{Value: out, InsertedAt: s.now(), TTL: ttl}
}

// Invalidate removes an entry immediately, forcing the next call to
// re-invoke the provider.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

// Len reports the number of stored entries, including any not yet lazily
// evicted.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
