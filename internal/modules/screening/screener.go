// Package screening filters and ranks a universe snapshot against a risk
// tier's allocation guideline and the latest fundamentals.
package screening

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/advisor/internal/marketdata"
	"github.com/aristath/advisor/internal/modules/risk"
	"github.com/aristath/advisor/internal/modules/universe"
)

// Candidate is a ticker that survived screening, carrying its ranking score.
type Candidate struct {
	Ticker         string
	Name           string
	Exchange       string
	Sector         string
	SectorEligible bool
	Score          float64
	Fundamentals   marketdata.Fundamentals
}

// gate is the tier-dependent fundamentals floor. Zero values mean no gate.
type gate struct {
	minRevenue         float64 // KRW
	minOperatingMargin float64
}

// gates loosen monotonically from Stable to Aggressive; Aggressive applies
// no gate at all.
var gates = map[risk.Tier]gate{
	risk.Stable:           {minRevenue: 1e12, minOperatingMargin: 0.08},
	risk.StabilitySeeking: {minRevenue: 5e11, minOperatingMargin: 0.05},
	risk.RiskNeutral:      {minRevenue: 1e11, minOperatingMargin: 0.03},
	risk.ActiveInvestment: {minRevenue: 1e10, minOperatingMargin: 0.0},
	risk.Aggressive:       {},
}

// scoreWeights is the per-tier blend of the three fundamentals sub-scores.
// Safety tiers favor profitability and scale; growth tiers favor the growth
// score.
type scoreWeights struct {
	profitability float64
	scale         float64
	growth        float64
}

var tierWeights = map[risk.Tier]scoreWeights{
	risk.Stable:           {0.55, 0.35, 0.10},
	risk.StabilitySeeking: {0.45, 0.35, 0.20},
	risk.RiskNeutral:      {0.40, 0.30, 0.30},
	risk.ActiveInvestment: {0.30, 0.25, 0.45},
	risk.Aggressive:       {0.25, 0.20, 0.55},
}

// Screener ranks universe listings for a tier.
type Screener struct {
	log zerolog.Logger
}

// NewScreener creates a screener.
func NewScreener(log zerolog.Logger) *Screener {
	return &Screener{log: log.With().Str("component", "screener").Logger()}
}

// Screen filters the snapshot against the guideline and ranks survivors by
// fundamentals score. The result is deterministic: eligible sectors first,
// then score descending, ticker ascending as the tie-break. An empty result
// means no investable universe; the caller decides how to surface that.
func (s *Screener) Screen(
	snapshot universe.Snapshot,
	guideline risk.Guideline,
	fundamentals map[string]marketdata.Fundamentals,
) []Candidate {
	tierGate := gates[guideline.Tier]
	weights, ok := tierWeights[guideline.Tier]
	if !ok {
		weights = tierWeights[risk.RiskNeutral]
	}

	var candidates []Candidate
	for _, listing := range snapshot.Listings {
		if guideline.PreferredExch != risk.ExchangeAny && listing.Exchange != guideline.PreferredExch {
			continue
		}

		f := fundamentals[listing.Ticker] // zero value scores neutral

		if tierGate.minRevenue > 0 && f.Revenue < tierGate.minRevenue {
			continue
		}
		if tierGate.minOperatingMargin > 0 && f.OperatingMargin() < tierGate.minOperatingMargin {
			continue
		}

		candidates = append(candidates, Candidate{
			Ticker:         listing.Ticker,
			Name:           listing.Name,
			Exchange:       listing.Exchange,
			Sector:         listing.Sector,
			SectorEligible: guideline.EligibleSector(listing.Sector),
			Score:          blendScore(f, weights),
			Fundamentals:   f,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.SectorEligible != b.SectorEligible {
			return a.SectorEligible
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Ticker < b.Ticker
	})

	if guideline.MaxCandidates > 0 && len(candidates) > guideline.MaxCandidates {
		candidates = candidates[:guideline.MaxCandidates]
	}

	s.log.Debug().
		Str("tier", guideline.Tier.String()).
		Int("universe", snapshot.Size()).
		Int("candidates", len(candidates)).
		Msg("Screened universe")

	return candidates
}

// Rank scores and orders listings without applying the tier's gates or
// candidate cap. It backs explicitly requested ticker sets, where the caller
// has already decided the candidates.
func (s *Screener) Rank(
	snapshot universe.Snapshot,
	guideline risk.Guideline,
	fundamentals map[string]marketdata.Fundamentals,
) []Candidate {
	weights, ok := tierWeights[guideline.Tier]
	if !ok {
		weights = tierWeights[risk.RiskNeutral]
	}

	candidates := make([]Candidate, 0, snapshot.Size())
	for _, listing := range snapshot.Listings {
		f := fundamentals[listing.Ticker]
		candidates = append(candidates, Candidate{
			Ticker:         listing.Ticker,
			Name:           listing.Name,
			Exchange:       listing.Exchange,
			Sector:         listing.Sector,
			SectorEligible: guideline.EligibleSector(listing.Sector),
			Score:          blendScore(f, weights),
			Fundamentals:   f,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Ticker < b.Ticker
	})
	return candidates
}

// blendScore combines profitability, scale and growth sub-scores with the
// tier's weights. All sub-scores are clamped to [0, 1].
func blendScore(f marketdata.Fundamentals, w scoreWeights) float64 {
	return w.profitability*profitabilityScore(f) +
		w.scale*scaleScore(f) +
		w.growth*growthScore(f)
}

// profitabilityScore blends operating and net margin; a combined 30% margin
// scores 1.0.
func profitabilityScore(f marketdata.Fundamentals) float64 {
	return clamp01((f.OperatingMargin() + f.NetMargin()) / 0.30)
}

// scaleScore compresses revenue onto a log scale: 1e9 KRW scores 0, 1e14
// KRW (the largest Korean listings) scores 1.
func scaleScore(f marketdata.Fundamentals) float64 {
	if f.Revenue <= 0 {
		return 0
	}
	return clamp01((math.Log10(f.Revenue) - 9) / 5)
}

// growthScore prefers multi-year revenue CAGR (20% annualized scores 1.0)
// and falls back to the single-year operating margin stand-in when only one
// fiscal year is available.
func growthScore(f marketdata.Fundamentals) float64 {
	if cagr, ok := revenueCAGR(f.RevenueHistory); ok {
		return clamp01(cagr / 0.20)
	}
	return clamp01(f.OperatingMargin() / 0.20)
}

// revenueCAGR computes the compound annual growth rate over the available
// fiscal years. Requires at least two positive observations.
func revenueCAGR(history []marketdata.AnnualRevenue) (float64, bool) {
	if len(history) < 2 {
		return 0, false
	}
	first := history[0]
	last := history[len(history)-1]
	periods := last.Year - first.Year
	if periods <= 0 || first.Revenue <= 0 || last.Revenue <= 0 {
		return 0, false
	}
	return math.Pow(last.Revenue/first.Revenue, 1/float64(periods)) - 1, true
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
