// Package protection grades portfolio risk for investor suitability and
// flags concentration before a recommendation is handed to a client.
package protection

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/advisor/internal/modules/risk"
)

// Risk level thresholds on annualized volatility. Level 1 is the calmest,
// level 6 the most volatile.
var volThresholds = []float64{0.05, 0.10, 0.15, 0.25, 0.40}

// Concentration limits that trigger warnings.
const (
	singleNameLimit = 0.20
	topThreeLimit   = 0.60
)

// maxLevelForTier is the highest portfolio risk level each tier may be
// offered.
var maxLevelForTier = map[risk.Tier]int{
	risk.Stable:           2,
	risk.StabilitySeeking: 3,
	risk.RiskNeutral:      4,
	risk.ActiveInvestment: 5,
	risk.Aggressive:       6,
}

// Assessment is the suitability verdict for one recommendation.
type Assessment struct {
	RiskLevel    int      `json:"risk_level"`
	MaxRiskLevel int      `json:"max_risk_level"`
	Suitable     bool     `json:"suitable"`
	Warnings     []string `json:"warnings,omitempty"`
}

// Service grades portfolio volatility and concentration against the
// investor's tier.
type Service struct {
	log zerolog.Logger
}

func NewService(log zerolog.Logger) *Service {
	return &Service{log: log.With().Str("component", "protection").Logger()}
}

// VolatilityRiskLevel maps annualized volatility onto levels 1 to 6.
func VolatilityRiskLevel(vol float64) int {
	for i, threshold := range volThresholds {
		if vol <= threshold {
			return i + 1
		}
	}
	return len(volThresholds) + 1
}

// ConcentrationWarnings flags a single position above 20% and a top-3 share
// above 60% of the equity sleeve.
func ConcentrationWarnings(weights map[string]float64) []string {
	var warnings []string

	type position struct {
		ticker string
		weight float64
	}
	positions := make([]position, 0, len(weights))
	for t, w := range weights {
		positions = append(positions, position{t, w})
	}
	sort.Slice(positions, func(i, j int) bool {
		if positions[i].weight != positions[j].weight {
			return positions[i].weight > positions[j].weight
		}
		return positions[i].ticker < positions[j].ticker
	})

	// A hair of tolerance: five 20% positions must not trip the 60% check
	// just because their float sum lands at 0.6000000000000001.
	const eps = 1e-9

	for _, p := range positions {
		if p.weight > singleNameLimit+eps {
			warnings = append(warnings, fmt.Sprintf(
				"position %s holds %.1f%% of the equity sleeve (limit %.0f%%)",
				p.ticker, p.weight*100, singleNameLimit*100))
		}
	}

	if len(positions) >= 3 {
		top3 := positions[0].weight + positions[1].weight + positions[2].weight
		if top3 > topThreeLimit+eps {
			warnings = append(warnings, fmt.Sprintf(
				"top 3 positions hold %.1f%% of the equity sleeve (limit %.0f%%)",
				top3*100, topThreeLimit*100))
		}
	}
	return warnings
}

// Assess grades a recommendation for an investor tier. Suitable is false
// when the portfolio's risk level exceeds the tier's ceiling.
func (s *Service) Assess(tier risk.Tier, portfolioVol float64, weights map[string]float64) Assessment {
	level := VolatilityRiskLevel(portfolioVol)
	maxLevel, ok := maxLevelForTier[tier]
	if !ok {
		maxLevel = maxLevelForTier[risk.RiskNeutral]
	}

	a := Assessment{
		RiskLevel:    level,
		MaxRiskLevel: maxLevel,
		Suitable:     level <= maxLevel,
		Warnings:     ConcentrationWarnings(weights),
	}
	if !a.Suitable {
		s.log.Warn().
			Str("tier", tier.String()).
			Int("risk_level", level).
			Int("max_risk_level", maxLevel).
			Msg("Portfolio exceeds tier risk ceiling")
	}
	return a
}
