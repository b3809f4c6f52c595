// Package allocation orchestrates the recommendation pipeline: classify the
// investor, screen the universe, optimize or fall back, enforce constraints
// and summarize performance.
package allocation

import (
	"time"

	"github.com/aristath/advisor/internal/modules/analysis"
	"github.com/aristath/advisor/internal/modules/optimization"
	"github.com/aristath/advisor/internal/modules/protection"
	"github.com/aristath/advisor/internal/modules/risk"
)

// Request describes one allocation recommendation request.
type Request struct {
	// RiskDescriptor is a tier name, a legacy label or a numeric score.
	RiskDescriptor string `json:"risk_descriptor"`
	// Capital is the investable amount in KRW. When positive, each position
	// carries its share of it as an amount.
	Capital float64 `json:"capital,omitempty"`
	// Mode optionally overrides the tier's default constraint mode.
	Mode string `json:"mode,omitempty"`
	// Tickers optionally bypasses screening: the listed tickers become the
	// candidate set directly, ranked but never gated.
	Tickers []string `json:"tickers,omitempty"`
	// Exchange optionally overrides the tier's exchange preference.
	Exchange string `json:"exchange,omitempty"`
	// LookbackDays optionally overrides the configured price history window.
	LookbackDays int `json:"lookback_days,omitempty"`
}

// Position is one recommended holding within the equity sleeve.
type Position struct {
	Ticker   string  `json:"ticker"`
	Name     string  `json:"name"`
	Exchange string  `json:"exchange"`
	Sector   string  `json:"sector"`
	Weight   float64 `json:"weight"`
	Score    float64 `json:"score"`
	// Amount is Weight times the requested capital, 0 when no capital was
	// given.
	Amount float64 `json:"amount,omitempty"`
}

// Diagnostics records how the recommendation was produced. Technicals are
// present only on the optimized path, where price history was loaded anyway.
type Diagnostics struct {
	CandidateCount  int                             `json:"candidate_count"`
	AlignedDays     int                             `json:"aligned_days"`
	DroppedTickers  []string                        `json:"dropped_tickers,omitempty"`
	UsedFallback    bool                            `json:"used_fallback"`
	FallbackReason  string                          `json:"fallback_reason,omitempty"`
	MinPositionsMet bool                            `json:"min_positions_met"`
	CappedTickers   []string                        `json:"capped_tickers,omitempty"`
	Warnings        []string                        `json:"warnings,omitempty"`
	Technicals      map[string]analysis.Diagnostics `json:"technicals,omitempty"`
}

// Result is a complete allocation recommendation.
type Result struct {
	RequestID    string                `json:"request_id"`
	GeneratedAt  time.Time             `json:"generated_at"`
	Tier         string                `json:"tier"`
	TierLabel    string                `json:"tier_label"`
	Mode         string                `json:"mode"`
	StocksTarget float64               `json:"stocks_target"`
	BondsTarget  float64               `json:"bonds_target"`
	CashTarget   float64               `json:"cash_target"`
	Positions    []Position            `json:"positions"`
	Performance  optimization.Summary  `json:"performance"`
	Protection   protection.Assessment `json:"protection"`
	Diagnostics  Diagnostics           `json:"diagnostics"`
}

// guidelineTargets copies the tier's asset split into the result.
func (r *Result) applyGuideline(g risk.Guideline) {
	r.Tier = g.Tier.String()
	r.TierLabel = g.Tier.Label()
	r.StocksTarget = g.StocksTarget
	r.BondsTarget = g.BondsTarget
	r.CashTarget = g.CashTarget
}
