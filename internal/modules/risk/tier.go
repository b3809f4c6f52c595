// Package risk maps investor risk descriptors onto the five ordered risk
// tiers and carries the per-tier asset allocation guidelines.
package risk

// Tier is an ordered investor risk-appetite class. Higher values accept more
// risk.
type Tier int

const (
	Stable Tier = iota
	StabilitySeeking
	RiskNeutral
	ActiveInvestment
	Aggressive
)

// String returns the canonical tier name.
func (t Tier) String() string {
	switch t {
	case Stable:
		return "stable"
	case StabilitySeeking:
		return "stability_seeking"
	case RiskNeutral:
		return "risk_neutral"
	case ActiveInvestment:
		return "active_investment"
	case Aggressive:
		return "aggressive"
	default:
		return "unknown"
	}
}

// Label returns the human-readable tier name used in API responses.
func (t Tier) Label() string {
	switch t {
	case Stable:
		return "Stable"
	case StabilitySeeking:
		return "Stability Seeking"
	case RiskNeutral:
		return "Risk Neutral"
	case ActiveInvestment:
		return "Active Investment"
	case Aggressive:
		return "Aggressive"
	default:
		return "Unknown"
	}
}

// AllTiers lists the tiers in ascending risk order.
var AllTiers = []Tier{Stable, StabilitySeeking, RiskNeutral, ActiveInvestment, Aggressive}

// ExchangeAny means the guideline has no exchange preference.
const ExchangeAny = "any"

// Guideline is the allocation guideline attached to a tier. The table is
// process-wide, read-only configuration; callers must not mutate entries.
type Guideline struct {
	Tier            Tier
	StocksTarget    float64 // percent of capital in equities
	BondsTarget     float64
	CashTarget      float64
	MaxSingleWeight float64 // per-position weight ceiling within the equity sleeve
	MinPositions    int
	MaxCandidates   int // screening truncation cap
	PreferredExch   string
	EligibleSectors []string
	Description     string
}

// guidelines is indexed by Tier.
var guidelines = [...]Guideline{
	Stable: {
		Tier:            Stable,
		StocksTarget:    5,
		BondsTarget:     85,
		CashTarget:      10,
		MaxSingleWeight: 0.15,
		MinPositions:    8,
		MaxCandidates:   8,
		PreferredExch:   "KOSPI",
		EligibleSectors: []string{"Utilities", "Telecom", "Consumer Staples"},
		Description:     "Capital preservation first; defensive large caps only",
	},
	StabilitySeeking: {
		Tier:            StabilitySeeking,
		StocksTarget:    20,
		BondsTarget:     70,
		CashTarget:      10,
		MaxSingleWeight: 0.15,
		MinPositions:    8,
		MaxCandidates:   8,
		PreferredExch:   "KOSPI",
		EligibleSectors: []string{"Finance", "Insurance", "Electronics", "Chemicals"},
		Description:     "Stability with a modest return target; blue-chip bias",
	},
	RiskNeutral: {
		Tier:            RiskNeutral,
		StocksTarget:    45,
		BondsTarget:     45,
		CashTarget:      10,
		MaxSingleWeight: 0.20,
		MinPositions:    6,
		MaxCandidates:   12,
		PreferredExch:   ExchangeAny,
		EligibleSectors: []string{"Electronics", "Chemicals", "Automotive", "Machinery", "Construction"},
		Description:     "Balanced risk and return across diversified sectors",
	},
	ActiveInvestment: {
		Tier:            ActiveInvestment,
		StocksTarget:    70,
		BondsTarget:     20,
		CashTarget:      10,
		MaxSingleWeight: 0.25,
		MinPositions:    5,
		MaxCandidates:   15,
		PreferredExch:   ExchangeAny,
		EligibleSectors: []string{"Semiconductors", "Batteries", "Biotech", "IT", "Games"},
		Description:     "Growth-led portfolio accepting short-term volatility",
	},
	Aggressive: {
		Tier:            Aggressive,
		StocksTarget:    90,
		BondsTarget:     10,
		CashTarget:      0,
		MaxSingleWeight: 0.25,
		MinPositions:    5,
		MaxCandidates:   15,
		PreferredExch:   "KOSDAQ",
		EligibleSectors: []string{"Semiconductors", "Biotech", "Games", "Internet", "Renewables"},
		Description:     "Maximum growth exposure, principal loss accepted",
	},
}

// GuidelineFor returns the guideline for a tier. Unknown tiers get the
// RiskNeutral guideline so callers always receive a usable configuration.
func GuidelineFor(t Tier) Guideline {
	if t < Stable || t > Aggressive {
		return guidelines[RiskNeutral]
	}
	return guidelines[t]
}

// EligibleSector reports whether a sector appears in the guideline's
// eligible set. Matching is exact; sector vocabulary is normalized upstream.
func (g Guideline) EligibleSector(sector string) bool {
	for _, s := range g.EligibleSectors {
		if s == sector {
			return true
		}
	}
	return false
}
