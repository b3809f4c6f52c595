package risk

import (
	"math"
	"strconv"
	"strings"
)

// Numeric score breakpoints. A score at the breakpoint maps to the lower
// tier (20 is Stable, 21 is StabilitySeeking).
const (
	scoreStableMax           = 20
	scoreStabilitySeekingMax = 40
	scoreRiskNeutralMax      = 60
	scoreActiveInvestmentMax = 80
)

// legacyLabels maps the retired 3-level vocabulary onto the 5-tier scale.
// The old scale had no equivalent for the two extremes, so "safe" and
// "aggressive" land one tier inside them.
var legacyLabels = map[string]Tier{
	"safe":     StabilitySeeking,
	"cautious": StabilitySeeking,
	"neutral":  RiskNeutral,
	"balanced": RiskNeutral,
	"growth":   ActiveInvestment,
	"active":   ActiveInvestment,
}

// canonicalLabels accepts the full 5-tier names directly.
var canonicalLabels = map[string]Tier{
	"stable":            Stable,
	"stability_seeking": StabilitySeeking,
	"risk_neutral":      RiskNeutral,
	"active_investment": ActiveInvestment,
	"aggressive":        Aggressive,
}

// Classify maps a risk descriptor to a tier. The descriptor is either a
// numeric score (0-100) or a qualitative label; anything unrecognized
// defaults to RiskNeutral. Classify is total and never returns an error.
//
// Note the ordering of lookups: a bare "stable" or "aggressive" is treated
// as a canonical 5-tier name, not a legacy label.
func Classify(descriptor string) Tier {
	d := strings.ToLower(strings.TrimSpace(descriptor))
	if d == "" {
		return RiskNeutral
	}

	// ParseFloat accepts "NaN" and "Inf", which are not risk scores; they
	// fall through to the unrecognized-descriptor default.
	if score, err := strconv.ParseFloat(d, 64); err == nil && !math.IsNaN(score) && !math.IsInf(score, 0) {
		return FromScore(score)
	}

	if tier, ok := canonicalLabels[d]; ok {
		return tier
	}
	if tier, ok := legacyLabels[d]; ok {
		return tier
	}

	return RiskNeutral
}

// FromScore maps a numeric risk score (0-100) to a tier using fixed
// breakpoints. Scores outside the range clamp to the nearest tier, keeping
// the mapping monotonic over all inputs.
func FromScore(score float64) Tier {
	switch {
	case score <= scoreStableMax:
		return Stable
	case score <= scoreStabilitySeekingMax:
		return StabilitySeeking
	case score <= scoreRiskNeutralMax:
		return RiskNeutral
	case score <= scoreActiveInvestmentMax:
		return ActiveInvestment
	default:
		return Aggressive
	}
}
