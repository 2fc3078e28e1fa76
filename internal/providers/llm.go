package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/carwise/gearbox/internal/capability"
	"github.com/carwise/gearbox/internal/llm"
)

const symptomSystemPrompt = `You are an automotive diagnostic engine.
Given a symptom description and optional vehicle details, respond with a
single JSON object:
{
  "likely_cause": "<most probable cause, short phrase>",
  "topic": "<affected system: brakes, engine, transmission, electrical, steering, suspension>",
  "confidence": <integer 0-100>,
  "rules_out": ["<causes this diagnosis contradicts>"],
  "missing": "<one argument that would sharpen the diagnosis, or empty>",
  "missing_value": "<suggested value for that argument, or empty>"
}
Be conservative: report low confidence when the symptom is ambiguous.`

// llmSymptomInvoke builds an InvokeFunc backed by a completion model.
// Malformed model output is reported as a transient failure so the retry
// executor can take another pass at it.
func llmSymptomInvoke(provider llm.Provider) capability.InvokeFunc {
	return func(ctx context.Context, args capability.Args) (*capability.Outcome, error) {
		symptom, _ := args["symptom"].(string)
		if strings.TrimSpace(symptom) == "" {
			return capability.ErrorOutcome(capability.ErrorPermanent, "symptom is required"), nil
		}

		resp, err := provider.Complete(ctx, llm.CompletionRequest{
			System:      symptomSystemPrompt,
			Prompt:      buildSymptomPrompt(symptom, args),
			Temperature: 0.2,
			JSONMode:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("symptom completion: %w", err)
		}

		var parsed struct {
			LikelyCause  string   `json:"likely_cause"`
			Topic        string   `json:"topic"`
			Confidence   int      `json:"confidence"`
			RulesOut     []string `json:"rules_out"`
			Missing      string   `json:"missing"`
			MissingValue string   `json:"missing_value"`
		}
		if err := json.Unmarshal([]byte(resp.Content), &parsed); err != nil {
			return nil, fmt.Errorf("parsing model response: %w", err)
		}
		if parsed.Confidence < 0 {
			parsed.Confidence = 0
		} else if parsed.Confidence > 100 {
			parsed.Confidence = 100
		}

		payload := map[string]any{
			"likely_cause": parsed.LikelyCause,
			"topic":        parsed.Topic,
			"confidence":   parsed.Confidence,
		}
		if len(parsed.RulesOut) > 0 {
			payload["rules_out"] = parsed.RulesOut
		}

		var hints []capability.Hint
		if parsed.Missing != "" {
			if _, present := args[parsed.Missing]; !present {
				hints = append(hints, capability.Hint{
					Field:  parsed.Missing,
					Value:  parsed.MissingValue,
					Reason: "model requested this detail",
				})
			}
		}

		return &capability.Outcome{
			Payload:    payload,
			Confidence: parsed.Confidence,
			Hints:      hints,
			Source:     capability.SourceLive,
		}, nil
	}
}

func buildSymptomPrompt(symptom string, args capability.Args) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Symptom: %s\n", symptom)
	for _, key := range []string{"make", "model", "year", "mileage", "focus_area"} {
		if v, ok := args[key]; ok {
			fmt.Fprintf(&b, "%s: %v\n", key, v)
		}
	}
	return b.String()
}
