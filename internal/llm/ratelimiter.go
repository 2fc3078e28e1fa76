package llm

import (
	"context"
	"sync"
	"time"
)

// RateLimitedProvider caps throughput to a backend at a fixed number of
// requests per minute. Capacity accrues continuously, so a burst after
// idle time drains at most one minute's worth of requests.
type RateLimitedProvider struct {
	inner Provider
	rpm   int

	mu      sync.Mutex
	credit  float64   // fractional request slots available
	accrued time.Time // when credit was last brought up to date
}

// NewRateLimitedProvider wraps a provider with a requests-per-minute cap.
// A non-positive rpm returns the provider unwrapped.
func NewRateLimitedProvider(inner Provider, rpm int) Provider {
	if rpm <= 0 {
		return inner
	}
	return &RateLimitedProvider{
		inner:   inner,
		rpm:     rpm,
		credit:  float64(rpm),
		accrued: time.Now(),
	}
}

func (r *RateLimitedProvider) Name() string {
	return r.inner.Name()
}

// Complete blocks until a request slot is available, then delegates.
func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	for {
		wait := r.take()
		if wait == 0 {
			return r.inner.Complete(ctx, req)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// take consumes one request slot, or reports how long until the next slot
// accrues.
func (r *RateLimitedProvider) take() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.credit += now.Sub(r.accrued).Minutes() * float64(r.rpm)
	if limit := float64(r.rpm); r.credit > limit {
		r.credit = limit
	}
	r.accrued = now

	if r.credit >= 1 {
		r.credit--
		return 0
	}
	deficit := 1 - r.credit
	return time.Duration(deficit / float64(r.rpm) * float64(time.Minute))
}
