package providers

import (
	"context"
	"strings"

	"github.com/carwise/gearbox/internal/capability"
)

// priceRange is a parts price band in a reference region (US, USD).
type priceRange struct {
	low, high float64
}

var partPrices = map[string]priceRange{
	"brake pads":          {35, 150},
	"brake rotor":         {40, 220},
	"oil filter":          {5, 25},
	"air filter":          {10, 40},
	"alternator":          {180, 450},
	"battery":             {90, 250},
	"serpentine belt":     {20, 75},
	"spark plugs":         {6, 30},
	"water pump":          {60, 300},
	"timing belt":         {30, 120},
	"shock absorber":      {50, 280},
	"radiator":            {120, 400},
	"fuel pump":           {100, 350},
	"starter motor":       {110, 320},
	"catalytic converter": {300, 1600},
}

var regionMultipliers = map[string]struct {
	factor   float64
	currency string
}{
	"us": {1.0, "USD"},
	"eu": {1.18, "EUR"},
	"uk": {1.12, "GBP"},
	"ca": {1.25, "CAD"},
}

func pricingDescriptor() *capability.Descriptor {
	return &capability.Descriptor{
		Name:           "parts.price",
		Classification: capability.ClassPricing,
		Invoke:         priceParts,
		Cacheable:      true,
	}
}

func priceParts(_ context.Context, args capability.Args) (*capability.Outcome, error) {
	part, _ := args["part"].(string)
	part = strings.ToLower(strings.TrimSpace(part))
	if part == "" {
		return capability.ErrorOutcome(capability.ErrorPermanent, "part is required"), nil
	}

	pr, known := lookupPart(part)
	if !known {
		return &capability.Outcome{
			Payload: map[string]any{
				"part": part,
				"note": "no price data for this part",
			},
			Confidence: 20,
			Source:     capability.SourceLive,
		}, nil
	}

	region, _ := args["region"].(string)
	region = strings.ToLower(region)
	mult, regionKnown := regionMultipliers[region]
	if !regionKnown {
		// A regionless estimate is usable but coarse; suggest the
		// reference region so a refinement pass can firm it up.
		return &capability.Outcome{
			Payload: map[string]any{
				"part":       part,
				"price_low":  pr.low,
				"price_high": pr.high,
				"currency":   "USD",
				"region":     "unspecified",
			},
			Confidence: 70,
			Hints: []capability.Hint{
				{Field: "region", Value: "us", Reason: "price bands vary by market"},
			},
			Source: capability.SourceLive,
		}, nil
	}

	return &capability.Outcome{
		Payload: map[string]any{
			"part":       part,
			"price_low":  round2(pr.low * mult.factor),
			"price_high": round2(pr.high * mult.factor),
			"currency":   mult.currency,
			"region":     region,
		},
		Confidence: 95,
		Source:     capability.SourceLive,
	}, nil
}

// lookupPart tolerates plural/singular mismatches ("brake pad" finds
// "brake pads").
func lookupPart(part string) (priceRange, bool) {
	if pr, ok := partPrices[part]; ok {
		return pr, true
	}
	if pr, ok := partPrices[part+"s"]; ok {
		return pr, true
	}
	if pr, ok := partPrices[strings.TrimSuffix(part, "s")]; ok {
		return pr, true
	}
	return priceRange{}, false
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
