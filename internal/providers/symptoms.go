package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/carwise/gearbox/internal/capability"
	"github.com/carwise/gearbox/internal/llm"
)

// symptomRule maps symptom keywords to a likely cause. Matching is
// keyword-count based; the rule with the most hits wins.
type symptomRule struct {
	keywords   []string
	system     string
	cause      string
	confidence int
	rulesOut   []string
}

// The confidence listed is for a call that already focuses on the right
// system. Without a focus_area argument the analyzer discounts its score
// and suggests one, so the refinement loop can narrow the diagnosis.
var symptomRules = []symptomRule{
	{
		keywords:   []string{"squeal", "squeak", "brake", "braking"},
		system:     "brakes",
		cause:      "brake pad wear",
		confidence: 92,
		rulesOut:   []string{"wheel bearing failure"},
	},
	{
		keywords:   []string{"grinding", "brake", "metal"},
		system:     "brakes",
		cause:      "worn pads contacting rotor",
		confidence: 90,
		rulesOut:   []string{"brake pad wear"},
	},
	{
		keywords:   []string{"knock", "knocking", "tapping", "engine"},
		system:     "engine",
		cause:      "low oil pressure or rod knock",
		confidence: 85,
		rulesOut:   nil,
	},
	{
		keywords:   []string{"stall", "stalling", "idle", "rough"},
		system:     "engine",
		cause:      "dirty idle air control valve",
		confidence: 82,
		rulesOut:   nil,
	},
	{
		keywords:   []string{"whine", "whining", "steering", "turn"},
		system:     "steering",
		cause:      "low power steering fluid",
		confidence: 88,
		rulesOut:   []string{"worn serpentine belt"},
	},
	{
		keywords:   []string{"click", "clicking", "start", "crank"},
		system:     "electrical",
		cause:      "weak battery or corroded terminals",
		confidence: 91,
		rulesOut:   []string{"starter motor failure"},
	},
	{
		keywords:   []string{"shudder", "slip", "slipping", "shift", "gear"},
		system:     "transmission",
		cause:      "degraded transmission fluid",
		confidence: 84,
		rulesOut:   nil,
	},
	{
		keywords:   []string{"pull", "pulls", "pulling", "vibration", "wheel"},
		system:     "suspension",
		cause:      "uneven tire wear or misalignment",
		confidence: 86,
		rulesOut:   nil,
	},
}

// focusDiscount is subtracted from a rule's confidence when the call did
// not name a focus area, keeping first-pass scores below the default
// acceptance threshold so a refinement hint gets a chance to apply.
const focusDiscount = 25

func symptomDescriptor(provider llm.Provider) *capability.Descriptor {
	invoke := analyzeSymptom
	if provider != nil {
		invoke = llmSymptomInvoke(provider)
	}

	return &capability.Descriptor{
		Name:           "symptom.analyze",
		Classification: capability.ClassDiagnostic,
		Invoke:         invoke,
		Cacheable:      true,
		ExtractFacts:   extractDiagnosisFacts,
		RelevantTopics: symptomTopics,
	}
}

func analyzeSymptom(_ context.Context, args capability.Args) (*capability.Outcome, error) {
	symptom, _ := args["symptom"].(string)
	if strings.TrimSpace(symptom) == "" {
		return capability.ErrorOutcome(capability.ErrorPermanent, "symptom is required"), nil
	}

	rule, hits := matchRule(symptom)
	if hits == 0 {
		return &capability.Outcome{
			Payload: map[string]any{
				"topic":        "general",
				"likely_cause": "undetermined",
				"note":         "symptom did not match any known pattern",
			},
			Confidence: 30,
			Source:     capability.SourceLive,
		}, nil
	}

	confidence := rule.confidence
	var hints []capability.Hint

	focus, _ := args["focus_area"].(string)
	if focus != rule.system {
		confidence -= focusDiscount
		hints = append(hints, capability.Hint{
			Field:  "focus_area",
			Value:  rule.system,
			Reason: fmt.Sprintf("symptom pattern points at the %s system", rule.system),
		})
	}

	payload := map[string]any{
		"topic":        rule.system,
		"likely_cause": rule.cause,
		"confidence":   confidence,
	}
	if len(rule.rulesOut) > 0 {
		out := make([]string, len(rule.rulesOut))
		copy(out, rule.rulesOut)
		payload["rules_out"] = out
	}

	return &capability.Outcome{
		Payload:    payload,
		Confidence: confidence,
		Hints:      hints,
		Source:     capability.SourceLive,
	}, nil
}

func matchRule(symptom string) (symptomRule, int) {
	text := strings.ToLower(symptom)

	var best symptomRule
	bestHits := 0
	for _, rule := range symptomRules {
		hits := 0
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = rule, hits
		}
	}
	return best, bestHits
}

func extractDiagnosisFacts(_ capability.Args, out *capability.Outcome) []capability.ExtractedFact {
	if out == nil || out.Failed() {
		return nil
	}
	cause, _ := out.Payload["likely_cause"].(string)
	if cause == "" || cause == "undetermined" {
		return nil
	}
	topic, _ := out.Payload["topic"].(string)

	fact := capability.ExtractedFact{
		Type:       "likely_cause",
		Topic:      topic,
		Value:      cause,
		Confidence: out.Confidence,
	}
	switch ro := out.Payload["rules_out"].(type) {
	case []string:
		fact.RulesOut = ro
	case []any:
		for _, v := range ro {
			if s, ok := v.(string); ok {
				fact.RulesOut = append(fact.RulesOut, s)
			}
		}
	}
	return []capability.ExtractedFact{fact}
}

func symptomTopics(args capability.Args, out *capability.Outcome) []string {
	topics := []string{}
	if s, ok := args["symptom"].(string); ok {
		topics = append(topics, s)
	}
	if out != nil && !out.Failed() {
		if t, ok := out.Payload["topic"].(string); ok {
			topics = append(topics, t)
		}
		if c, ok := out.Payload["likely_cause"].(string); ok {
			topics = append(topics, c)
		}
	}
	return topics
}
