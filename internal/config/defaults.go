package config

import (
	"time"

	"github.com/carwise/gearbox/internal/cache"
	"github.com/carwise/gearbox/internal/capability"
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir:        ".gearbox",
		ProceduresFile: "procedures.yml",
		Server: ServerConfig{
			Port: 8090,
		},
		Retry: RetryConfig{
			BaseDelayMS: 200,
			MaxRetries:  3,
		},
		CacheTTL: CacheTTLConfig{
			DiagnosticMinutes:    60,
			PricingMinutes:       15,
			SpecificationMinutes: 24 * 60,
			ProcedureMinutes:     4 * 60,
		},
		Capabilities: map[string]CapabilityConfig{},
		LLM: LLMConfig{
			Enabled:        false,
			Model:          "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
			RPM:            60,
		},
	}
}

// TTLPolicy converts the configured minutes into a cache TTL policy.
func (c *Config) TTLPolicy() cache.TTLPolicy {
	policy := cache.TTLPolicy{}
	set := func(class capability.Classification, minutes int) {
		if minutes > 0 {
			policy[class] = time.Duration(minutes) * time.Minute
		}
	}
	set(capability.ClassDiagnostic, c.CacheTTL.DiagnosticMinutes)
	set(capability.ClassPricing, c.CacheTTL.PricingMinutes)
	set(capability.ClassSpecification, c.CacheTTL.SpecificationMinutes)
	set(capability.ClassProcedure, c.CacheTTL.ProcedureMinutes)
	return policy
}

// Apply overlays the per-capability overrides onto a registered descriptor.
func (c *Config) Apply(d *capability.Descriptor) {
	override, ok := c.Capabilities[d.Name]
	if !ok {
		return
	}
	if override.ConfidenceThreshold > 0 {
		d.ConfidenceThreshold = override.ConfidenceThreshold
	}
	if override.MaxRefinementAttempts > 0 {
		d.MaxRefinementAttempts = override.MaxRefinementAttempts
	}
	if override.AttemptTimeoutMS > 0 {
		d.AttemptTimeout = time.Duration(override.AttemptTimeoutMS) * time.Millisecond
	}
}

// BaseDelay returns the retry base delay as a duration.
func (c *Config) BaseDelay() time.Duration {
	return time.Duration(c.Retry.BaseDelayMS) * time.Millisecond
}
