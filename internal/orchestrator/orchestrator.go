// Package orchestrator is the single entry point the external reasoning
// policy calls: invoke capability X with arguments Y for conversation Z.
package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/carwise/gearbox/internal/cache"
	"github.com/carwise/gearbox/internal/capability"
	"github.com/carwise/gearbox/internal/refine"
	"github.com/carwise/gearbox/internal/session"
	"github.com/carwise/gearbox/internal/synth"
)

// Orchestrator wires the registry, cache, refinement loop, session store,
// and synthesizer behind one Invoke call. Distinct calls run fully in
// parallel; they interact only through the shared cache and the session
// context of their conversation.
type Orchestrator struct {
	registry *capability.Registry
	cache    *cache.Store
	loop     *refine.Loop
	sessions session.Store
	synth    *synth.Synthesizer

	// locks serializes session mutation per conversation; a global lock
	// would stall unrelated conversations.
	locks sync.Map // conversationID -> *sync.Mutex
}

// New creates an orchestrator.
func New(registry *capability.Registry, cacheStore *cache.Store, loop *refine.Loop, sessions session.Store) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		cache:    cacheStore,
		loop:     loop,
		sessions: sessions,
		synth:    synth.New(),
	}
}

// Invoke executes a capability for a conversation. The only Go error it
// returns for provider trouble is none at all: degraded outcomes (exhausted,
// transient or permanent failures) come back as data so the reasoning policy
// can inspect them and decide to ask the user instead. Unknown capabilities
// and session persistence failures are real errors.
func (o *Orchestrator) Invoke(ctx context.Context, conversationID, capabilityName string, args capability.Args) (*synth.Result, error) {
	d, err := o.registry.Lookup(capabilityName)
	if err != nil {
		return nil, err
	}

	key := cache.Key(capabilityName, args)
	rr := o.fromCache(d, key, args)
	if rr == nil {
		rr = o.loop.Run(ctx, d, args)
		if o.shouldCache(ctx, d, rr) {
			o.cache.Put(key, rr.Outcome, d.Classification)
		}
	}

	mu := o.lockFor(conversationID)
	mu.Lock()
	defer mu.Unlock()

	sc, err := o.sessions.Load(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("loading session context: %w", err)
	}

	res := o.synth.Synthesize(d, args, rr, sc)

	if err := o.sessions.Save(ctx, sc); err != nil {
		return nil, fmt.Errorf("saving session context: %w", err)
	}
	return res, nil
}

// fromCache returns a refinement result built from a fresh cache entry, or
// nil on miss. A cached outcome below the capability's threshold was stored
// by an exhausted session and keeps that flag.
func (o *Orchestrator) fromCache(d *capability.Descriptor, key string, args capability.Args) *refine.Result {
	if !d.Cacheable {
		return nil
	}
	entry, ok := o.cache.Get(key)
	if !ok || entry.Value == nil {
		return nil
	}

	out := *entry.Value
	out.Source = capability.SourceCache
	return &refine.Result{
		Outcome:   &out,
		Exhausted: out.Confidence < d.Threshold(),
		FinalArgs: args.Clone(),
	}
}

// shouldCache admits only completed, non-failed outcomes. A cancelled call
// never writes its would-be result.
func (o *Orchestrator) shouldCache(ctx context.Context, d *capability.Descriptor, rr *refine.Result) bool {
	if !d.Cacheable || ctx.Err() != nil {
		return false
	}
	return rr.Outcome != nil && !rr.Outcome.Failed()
}

// Invalidate evicts the cached outcome for a capability call, forcing the
// next invocation to go live. Used when an external signal, such as a
// confirmed user correction, invalidates prior data.
func (o *Orchestrator) Invalidate(capabilityName string, args capability.Args) {
	o.cache.Invalidate(cache.Key(capabilityName, args))
}

// Registry exposes the capability registry for listing.
func (o *Orchestrator) Registry() *capability.Registry { return o.registry }

// Sessions exposes the session store for read-side interfaces.
func (o *Orchestrator) Sessions() session.Store { return o.sessions }

func (o *Orchestrator) lockFor(conversationID string) *sync.Mutex {
	mu, _ := o.locks.LoadOrStore(conversationID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
