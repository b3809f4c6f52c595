package protection

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/aristath/advisor/internal/modules/risk"
)

func TestVolatilityRiskLevel(t *testing.T) {
	cases := []struct {
		vol  float64
		want int
	}{
		{0.00, 1},
		{0.05, 1},
		{0.0501, 2},
		{0.10, 2},
		{0.15, 3},
		{0.20, 4},
		{0.25, 4},
		{0.30, 5},
		{0.40, 5},
		{0.55, 6},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, VolatilityRiskLevel(tc.vol), "vol %.4f", tc.vol)
	}
}

func TestConcentrationWarningsSingleName(t *testing.T) {
	warnings := ConcentrationWarnings(map[string]float64{
		"A": 0.35, "B": 0.15, "C": 0.15, "D": 0.35,
	})
	// Two single-name breaches plus the top-3 breach (0.85 > 0.60).
	assert.Len(t, warnings, 3)
}

func TestConcentrationWarningsNone(t *testing.T) {
	warnings := ConcentrationWarnings(map[string]float64{
		"A": 0.2, "B": 0.2, "C": 0.2, "D": 0.2, "E": 0.2,
	})
	assert.Empty(t, warnings)
}

func TestConcentrationWarningsJustOverLimit(t *testing.T) {
	// Exactly at the limits is clean (see the five-by-20% case above); a
	// real breach still fires past the float tolerance.
	warnings := ConcentrationWarnings(map[string]float64{
		"A": 0.201, "B": 0.2, "C": 0.2, "D": 0.199, "E": 0.2,
	})
	assert.Len(t, warnings, 2) // A over 20%, top 3 over 60%
}

func TestConcentrationWarningsFewPositions(t *testing.T) {
	// With fewer than three positions only the single-name rule applies.
	warnings := ConcentrationWarnings(map[string]float64{"A": 0.5, "B": 0.5})
	assert.Len(t, warnings, 2)
}

func TestAssessSuitability(t *testing.T) {
	svc := NewService(zerolog.Nop())
	weights := map[string]float64{"A": 0.2, "B": 0.2, "C": 0.2, "D": 0.2, "E": 0.2}

	// A 12% volatility portfolio is level 3: too hot for Stable, fine for
	// RiskNeutral.
	stable := svc.Assess(risk.Stable, 0.12, weights)
	assert.Equal(t, 3, stable.RiskLevel)
	assert.Equal(t, 2, stable.MaxRiskLevel)
	assert.False(t, stable.Suitable)

	neutral := svc.Assess(risk.RiskNeutral, 0.12, weights)
	assert.True(t, neutral.Suitable)
}

func TestAssessAggressiveAcceptsEverything(t *testing.T) {
	svc := NewService(zerolog.Nop())
	a := svc.Assess(risk.Aggressive, 0.80, map[string]float64{"A": 1.0})
	assert.Equal(t, 6, a.RiskLevel)
	assert.True(t, a.Suitable)
	assert.NotEmpty(t, a.Warnings)
}
