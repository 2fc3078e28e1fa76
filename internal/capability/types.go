package capability

import (
	"context"
	"time"
)

// Classification identifies the kind of data a capability returns.
// It drives the cache freshness policy.
type Classification string

const (
	ClassDiagnostic    Classification = "diagnostic"
	ClassPricing       Classification = "pricing"
	ClassSpecification Classification = "specification"
	ClassProcedure     Classification = "procedure"
)

// ErrorKind classifies a failed provider invocation.
type ErrorKind string

const (
	ErrorNone      ErrorKind = ""
	ErrorTransient ErrorKind = "transient"
	ErrorPermanent ErrorKind = "permanent"
)

// Source records whether an outcome came from a live invocation or the cache.
type Source string

const (
	SourceLive  Source = "live"
	SourceCache Source = "cache"
)

// Args are the structured arguments passed to a provider invocation.
type Args map[string]any

// Clone returns a shallow copy of the arguments.
func (a Args) Clone() Args {
	out := make(Args, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Hint is a provider-suggested argument adjustment intended to raise
// confidence on a subsequent invocation.
type Hint struct {
	Field  string `json:"field"`
	Value  any    `json:"value"`
	Reason string `json:"reason,omitempty"`
}

// Outcome is the unprocessed result of a single provider invocation.
// When ErrorKind is set, Payload is nil and Confidence is zero.
type Outcome struct {
	Payload    map[string]any `json:"payload,omitempty"`
	Confidence int            `json:"confidence"`
	Hints      []Hint         `json:"hints,omitempty"`
	ErrorKind  ErrorKind      `json:"error_kind,omitempty"`
	Error      string         `json:"error,omitempty"`
	Source     Source         `json:"source"`

	// NeedsRefinement is set by the refinement loop when the outcome scored
	// below threshold while attempts remained.
	NeedsRefinement bool `json:"needs_refinement,omitempty"`
}

// Failed reports whether the outcome represents a provider failure.
func (o *Outcome) Failed() bool {
	return o != nil && o.ErrorKind != ErrorNone
}

// ErrorOutcome builds a failure outcome of the given kind.
func ErrorOutcome(kind ErrorKind, msg string) *Outcome {
	return &Outcome{ErrorKind: kind, Error: msg, Source: SourceLive}
}

// ExtractedFact is a conversation-scoped datum a capability outcome
// establishes, such as a likely cause or a confirmed vehicle identity.
type ExtractedFact struct {
	Type       string   `json:"type"`  // e.g. "likely_cause", "vehicle_identity"
	Topic      string   `json:"topic"` // e.g. the part or system the fact concerns
	Value      string   `json:"value"`
	Confidence int      `json:"confidence"`
	RulesOut   []string `json:"rules_out,omitempty"` // values this fact contradicts
}

// InvokeFunc is one provider invocation. Providers that can classify their
// own failures should return an outcome with ErrorKind set; a non-nil error
// is treated as a transient failure.
type InvokeFunc func(ctx context.Context, args Args) (*Outcome, error)

// ExtractFactsFunc pulls newly established facts out of an outcome.
type ExtractFactsFunc func(args Args, out *Outcome) []ExtractedFact

// TopicsFunc names the topics a call is about, used to filter which
// previously established facts are carried into the synthesized result.
type TopicsFunc func(args Args, out *Outcome) []string

const (
	// DefaultConfidenceThreshold is the confidence a capability outcome
	// must reach to be accepted without further refinement.
	DefaultConfidenceThreshold = 90

	// DefaultMaxRefinementAttempts bounds provider invocations per call.
	DefaultMaxRefinementAttempts = 3
)

// Descriptor describes a registered capability provider. Descriptors are
// registered once at startup and treated as immutable afterwards.
type Descriptor struct {
	Name                  string
	Classification        Classification
	Invoke                InvokeFunc
	ConfidenceThreshold   int           // 0 means DefaultConfidenceThreshold
	MaxRefinementAttempts int           // 0 means DefaultMaxRefinementAttempts
	Cacheable             bool
	AttemptTimeout        time.Duration // per invocation attempt; 0 disables

	// ExtractFacts and RelevantTopics are pluggable per-capability policy.
	// Either may be nil, in which case the synthesizer falls back to
	// payload-derived defaults.
	ExtractFacts   ExtractFactsFunc
	RelevantTopics TopicsFunc
}

// Threshold returns the effective confidence threshold.
func (d *Descriptor) Threshold() int {
	if d.ConfidenceThreshold <= 0 {
		return DefaultConfidenceThreshold
	}
	return d.ConfidenceThreshold
}

// MaxAttempts returns the effective refinement attempt bound.
func (d *Descriptor) MaxAttempts() int {
	if d.MaxRefinementAttempts <= 0 {
		return DefaultMaxRefinementAttempts
	}
	return d.MaxRefinementAttempts
}

// validClassifications is the set of recognized classification values.
var validClassifications = map[Classification]bool{
	ClassDiagnostic:    true,
	ClassPricing:       true,
	ClassSpecification: true,
	ClassProcedure:     true,
}
