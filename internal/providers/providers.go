// Package providers bundles the reference capability providers that ship
// with the daemon: symptom analysis, parts pricing, vehicle specifications
// and repair procedure lookup. External providers register through the
// same Descriptor surface.
package providers

import (
	"fmt"

	"github.com/carwise/gearbox/internal/capability"
	"github.com/carwise/gearbox/internal/config"
	"github.com/carwise/gearbox/internal/kb"
	"github.com/carwise/gearbox/internal/llm"
)

// Options carries the optional backends the bundled providers can use.
type Options struct {
	// Procedures backs procedure.lookup. When nil the capability reports a
	// permanent failure instead of guessing.
	Procedures *kb.Store

	// LLM, when set, replaces the rules-based symptom analyzer with a
	// model-backed one.
	LLM llm.Provider
}

// Register adds the bundled providers to the registry, with per-capability
// config overrides applied.
func Register(reg *capability.Registry, cfg *config.Config, opts Options) error {
	descriptors := []*capability.Descriptor{
		symptomDescriptor(opts.LLM),
		pricingDescriptor(),
		specsDescriptor(),
		procedureDescriptor(opts.Procedures),
	}

	for _, d := range descriptors {
		cfg.Apply(d)
		if err := reg.Register(d); err != nil {
			return fmt.Errorf("registering %s: %w", d.Name, err)
		}
	}
	return nil
}
