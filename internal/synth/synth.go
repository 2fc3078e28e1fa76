// Package synth combines a capability outcome with the conversation's
// established facts into the result handed back to the reasoning policy.
package synth

import (
	"strings"

	"github.com/carwise/gearbox/internal/capability"
	"github.com/carwise/gearbox/internal/refine"
	"github.com/carwise/gearbox/internal/session"
)

// Result is the final product of a façade call: structured data plus the
// confidence and refinement metadata the external policy needs to decide
// whether to accept it or ask the user a clarifying question.
type Result struct {
	Capability     string               `json:"capability"`
	ConversationID string               `json:"conversation_id"`
	Payload        map[string]any       `json:"payload,omitempty"`
	Confidence     int                  `json:"confidence"`
	Source         capability.Source    `json:"source"`
	Exhausted      bool                 `json:"exhausted"`
	ErrorKind      capability.ErrorKind `json:"error_kind,omitempty"`
	Error          string               `json:"error,omitempty"`
	Refinements    int                  `json:"refinements"`
	RemainingHints []capability.Hint    `json:"remaining_hints,omitempty"`

	// NewFacts are facts this call established; RuledOut lists values this
	// call excluded; RelatedFacts are previously established facts topically
	// relevant to this call, carried forward so the policy never has to
	// fall back to an unfiltered list of every cause ever discussed.
	NewFacts     []session.Fact `json:"new_facts,omitempty"`
	RuledOut     []string       `json:"ruled_out,omitempty"`
	RelatedFacts []session.Fact `json:"related_facts,omitempty"`
}

// Synthesizer applies fact extraction and topical filtering. It holds no
// per-call state.
type Synthesizer struct{}

// New creates a synthesizer.
func New() *Synthesizer {
	return &Synthesizer{}
}

// Synthesize folds the refinement result into the conversation context and
// builds the response. It mutates sc: new facts are appended and
// contradicted facts are ruled out. The caller owns persistence.
func (s *Synthesizer) Synthesize(d *capability.Descriptor, args capability.Args, rr *refine.Result, sc *session.Context) *Result {
	res := &Result{
		Capability:     d.Name,
		ConversationID: sc.ConversationID,
		Exhausted:      rr.Exhausted,
		Refinements:    rr.Refinements,
		RemainingHints: rr.RemainingHints,
	}

	out := rr.Outcome
	if out == nil {
		// Nothing usable came back (cancelled before the first attempt).
		res.ErrorKind = capability.ErrorTransient
		res.Error = "no provider outcome"
		return res
	}

	res.Payload = out.Payload
	res.Confidence = out.Confidence
	res.Source = out.Source
	res.ErrorKind = out.ErrorKind
	res.Error = out.Error

	threshold := d.Threshold()

	if !out.Failed() {
		for _, ef := range extractFacts(d, rr.FinalArgs, out) {
			if ef.Confidence == 0 {
				ef.Confidence = out.Confidence
			}

			for _, contradicted := range ef.RulesOut {
				res.RuledOut = append(res.RuledOut, s.ruleOut(sc, ef, contradicted)...)
			}

			if ef.Confidence < threshold {
				continue
			}
			if hasActiveFact(sc, ef) {
				continue
			}
			fact := sc.Append(session.Fact{
				Type:       ef.Type,
				Topic:      ef.Topic,
				Value:      ef.Value,
				Confidence: ef.Confidence,
			})
			res.NewFacts = append(res.NewFacts, fact)
		}
	}

	res.RelatedFacts = relevantFacts(d, args, out, sc, res.NewFacts)
	return res
}

// ruleOut excludes previously established facts contradicted at
// equal-or-higher confidence and returns the values actually ruled out.
func (s *Synthesizer) ruleOut(sc *session.Context, ef capability.ExtractedFact, contradicted string) []string {
	var ruled []string
	for _, f := range sc.Active() {
		if f.Type != ef.Type || !strings.EqualFold(f.Value, contradicted) {
			continue
		}
		if ef.Confidence >= f.Confidence {
			sc.RuleOut(f.Type, f.Value, ef.Value)
			ruled = append(ruled, f.Value)
		}
	}
	return ruled
}

func hasActiveFact(sc *session.Context, ef capability.ExtractedFact) bool {
	for _, f := range sc.Active() {
		if f.Type == ef.Type && strings.EqualFold(f.Value, ef.Value) && f.Confidence >= ef.Confidence {
			return true
		}
	}
	return false
}

// extractFacts runs the capability's extraction hook, falling back to the
// well-known payload fields bundled providers emit.
func extractFacts(d *capability.Descriptor, args capability.Args, out *capability.Outcome) []capability.ExtractedFact {
	if d.ExtractFacts != nil {
		return d.ExtractFacts(args, out)
	}
	return DefaultExtractFacts(args, out)
}

// DefaultExtractFacts reads the conventional payload fields: "likely_cause"
// becomes a likely_cause fact, "rules_out" lists contradicted causes, and
// "vehicle" establishes the vehicle identity.
func DefaultExtractFacts(args capability.Args, out *capability.Outcome) []capability.ExtractedFact {
	var facts []capability.ExtractedFact

	if cause, ok := out.Payload["likely_cause"].(string); ok && cause != "" {
		ef := capability.ExtractedFact{
			Type:       "likely_cause",
			Topic:      stringField(out.Payload, "topic"),
			Value:      cause,
			Confidence: out.Confidence,
		}
		if excluded, ok := out.Payload["rules_out"].([]string); ok {
			ef.RulesOut = excluded
		} else if raw, ok := out.Payload["rules_out"].([]any); ok {
			for _, v := range raw {
				if s, ok := v.(string); ok {
					ef.RulesOut = append(ef.RulesOut, s)
				}
			}
		}
		facts = append(facts, ef)
	}

	if vehicle, ok := out.Payload["vehicle"].(string); ok && vehicle != "" {
		facts = append(facts, capability.ExtractedFact{
			Type:       "vehicle_identity",
			Topic:      "vehicle",
			Value:      vehicle,
			Confidence: out.Confidence,
		})
	}

	return facts
}

// relevantFacts filters the established facts down to those topically
// related to this call, excluding facts the call itself just added.
func relevantFacts(d *capability.Descriptor, args capability.Args, out *capability.Outcome, sc *session.Context, added []session.Fact) []session.Fact {
	topics := callTopics(d, args, out)
	if len(topics) == 0 {
		return nil
	}

	justAdded := make(map[string]bool, len(added))
	for _, f := range added {
		justAdded[f.ID] = true
	}

	var related []session.Fact
	for _, f := range sc.Active() {
		if justAdded[f.ID] {
			continue
		}
		if factMatchesTopics(f, topics) {
			related = append(related, f)
		}
	}
	return related
}

func callTopics(d *capability.Descriptor, args capability.Args, out *capability.Outcome) []string {
	if d.RelevantTopics != nil {
		return d.RelevantTopics(args, out)
	}

	var topics []string
	for _, v := range args {
		if s, ok := v.(string); ok && s != "" {
			topics = append(topics, s)
		}
	}
	if out != nil {
		for _, field := range []string{"topic", "part", "component", "likely_cause"} {
			if s := stringField(out.Payload, field); s != "" {
				topics = append(topics, s)
			}
		}
	}
	return topics
}

func factMatchesTopics(f session.Fact, topics []string) bool {
	for _, topic := range topics {
		if wordsRelated(topic, f.Topic) || wordsRelated(topic, f.Value) {
			return true
		}
	}
	return false
}

// wordsRelated reports whether two phrases share a word stem of at least
// four characters, so "brake pads" relates to "brakes" but not to "engine".
func wordsRelated(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	for _, wa := range strings.Fields(strings.ToLower(a)) {
		for _, wb := range strings.Fields(strings.ToLower(b)) {
			if len(wa) >= 4 && strings.HasPrefix(wb, wa) {
				return true
			}
			if len(wb) >= 4 && strings.HasPrefix(wa, wb) {
				return true
			}
		}
	}
	return false
}

func stringField(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	s, _ := payload[key].(string)
	return s
}
