package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/carwise/gearbox/internal/capability"
	"github.com/carwise/gearbox/internal/kb"
)

func procedureDescriptor(store *kb.Store) *capability.Descriptor {
	return &capability.Descriptor{
		Name:           "procedure.lookup",
		Classification: capability.ClassProcedure,
		Invoke:         lookupProcedure(store),
		Cacheable:      true,
	}
}

func lookupProcedure(store *kb.Store) capability.InvokeFunc {
	return func(ctx context.Context, args capability.Args) (*capability.Outcome, error) {
		if store == nil {
			return capability.ErrorOutcome(capability.ErrorPermanent,
				"procedure knowledge base not loaded"), nil
		}

		query := buildProcedureQuery(args)
		if query == "" {
			return capability.ErrorOutcome(capability.ErrorPermanent,
				"query or part is required"), nil
		}

		matches, err := store.Search(ctx, query, 3, procedureFilter(args))
		if err != nil {
			return nil, fmt.Errorf("procedure search: %w", err)
		}
		if len(matches) == 0 {
			return &capability.Outcome{
				Payload: map[string]any{
					"query": query,
					"note":  "no matching procedures",
				},
				Confidence: 10,
				Source:     capability.SourceLive,
			}, nil
		}

		procs := make([]map[string]any, len(matches))
		for i, m := range matches {
			procs[i] = map[string]any{
				"id":               m.Procedure.ID,
				"title":            m.Procedure.Title,
				"system":           m.Procedure.System,
				"summary":          m.Procedure.Summary,
				"steps":            m.Procedure.Steps,
				"tools":            m.Procedure.Tools,
				"duration_minutes": m.Procedure.DurationMinutes,
				"difficulty":       m.Procedure.Difficulty,
				"similarity":       m.Similarity,
			}
		}

		return &capability.Outcome{
			Payload: map[string]any{
				"query":      query,
				"topic":      matches[0].Procedure.System,
				"procedures": procs,
			},
			Confidence: similarityConfidence(matches[0].Similarity),
			Source:     capability.SourceLive,
		}, nil
	}
}

func buildProcedureQuery(args capability.Args) string {
	if q, ok := args["query"].(string); ok && strings.TrimSpace(q) != "" {
		return q
	}
	var parts []string
	for _, key := range []string{"part", "system", "symptom"} {
		if v, ok := args[key].(string); ok && v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

func procedureFilter(args capability.Args) *kb.Filter {
	var f kb.Filter
	set := false
	if mk, ok := args["make"].(string); ok && mk != "" {
		f.Make = &mk
		set = true
	}
	if model, ok := args["model"].(string); ok && model != "" {
		f.Model = &model
		set = true
	}
	if !set {
		return nil
	}
	return &f
}

// similarityConfidence maps cosine similarity onto the 0-100 confidence
// scale. Vector similarity above 0.7 is a strong match for this corpus.
func similarityConfidence(sim float32) int {
	conf := int(sim * 130)
	if conf > 98 {
		conf = 98
	}
	if conf < 0 {
		conf = 0
	}
	return conf
}
