package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/carwise/gearbox/internal/capability"
)

// vehicleSpec holds the reference specifications for a make/model.
type vehicleSpec struct {
	engine            string
	oilCapacityLiters float64
	oilGrade          string
	brakePadMinMM     float64
	tirePressurePSI   int
	batteryGroup      string
}

var vehicleSpecs = map[string]vehicleSpec{
	"toyota/camry":    {"2.5L I4", 4.8, "0W-20", 1.0, 35, "24F"},
	"toyota/corolla":  {"2.0L I4", 4.4, "0W-16", 1.0, 33, "35"},
	"honda/civic":     {"1.5L I4 turbo", 3.5, "0W-20", 1.6, 32, "51R"},
	"honda/accord":    {"1.5L I4 turbo", 3.7, "0W-20", 1.6, 32, "47"},
	"ford/f-150":      {"3.5L V6", 5.9, "5W-30", 3.0, 36, "65"},
	"ford/focus":      {"2.0L I4", 4.1, "5W-20", 1.5, 34, "96R"},
	"chevrolet/cruze": {"1.4L I4 turbo", 4.0, "5W-30", 2.0, 35, "47"},
	"bmw/3 series":    {"2.0L I4 turbo", 5.2, "0W-30", 3.0, 35, "94R"},
	"volkswagen/golf": {"1.4L I4 turbo", 4.0, "0W-20", 2.0, 33, "47"},
	"nissan/altima":   {"2.5L I4", 5.1, "0W-20", 1.0, 33, "35"},
}

func specsDescriptor() *capability.Descriptor {
	return &capability.Descriptor{
		Name:           "vehicle.specs",
		Classification: capability.ClassSpecification,
		Invoke:         lookupSpecs,
		Cacheable:      true,
		ExtractFacts:   extractVehicleFacts,
	}
}

func lookupSpecs(_ context.Context, args capability.Args) (*capability.Outcome, error) {
	mk, _ := args["make"].(string)
	model, _ := args["model"].(string)
	mk = strings.ToLower(strings.TrimSpace(mk))
	model = strings.ToLower(strings.TrimSpace(model))
	if mk == "" || model == "" {
		return capability.ErrorOutcome(capability.ErrorPermanent, "make and model are required"), nil
	}

	spec, ok := vehicleSpecs[mk+"/"+model]
	if !ok {
		// Not a retryable condition: the catalog simply has no entry.
		return capability.ErrorOutcome(capability.ErrorPermanent,
			fmt.Sprintf("no specifications for %s %s", mk, model)), nil
	}

	return &capability.Outcome{
		Payload: map[string]any{
			"vehicle":             fmt.Sprintf("%s %s", mk, model),
			"engine":              spec.engine,
			"oil_capacity_liters": spec.oilCapacityLiters,
			"oil_grade":           spec.oilGrade,
			"brake_pad_min_mm":    spec.brakePadMinMM,
			"tire_pressure_psi":   spec.tirePressurePSI,
			"battery_group":       spec.batteryGroup,
		},
		Confidence: 98,
		Source:     capability.SourceLive,
	}, nil
}

func extractVehicleFacts(args capability.Args, out *capability.Outcome) []capability.ExtractedFact {
	if out == nil || out.Failed() {
		return nil
	}
	vehicle, _ := out.Payload["vehicle"].(string)
	if vehicle == "" {
		return nil
	}
	return []capability.ExtractedFact{{
		Type:       "vehicle_identity",
		Topic:      "vehicle",
		Value:      vehicle,
		Confidence: out.Confidence,
	}}
}
