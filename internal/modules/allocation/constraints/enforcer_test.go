package constraints

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyNoOpWithinCap(t *testing.T) {
	e := NewEnforcer(zerolog.Nop())
	in := map[string]float64{"A": 0.25, "B": 0.40, "C": 0.35}

	report := e.Apply(in, 0.40)
	assert.Empty(t, report.Capped)
	assert.False(t, report.Violated())
	assert.InDelta(t, 1.0, Sum(report.Weights), 1e-9)
	assert.Equal(t, in, report.Weights)
}

func TestApplyMarginTolerated(t *testing.T) {
	e := NewEnforcer(zerolog.Nop())
	// Every weight sits within the 0.5pp margin over a 33% cap.
	in := map[string]float64{"A": 0.334, "B": 0.333, "C": 0.333}

	report := e.Apply(in, 0.33)
	assert.Empty(t, report.Capped)
	assert.Equal(t, in, report.Weights)
}

func TestApplyTrimsAndRedistributes(t *testing.T) {
	e := NewEnforcer(zerolog.Nop())
	in := map[string]float64{"A": 0.50, "B": 0.30, "C": 0.20}

	report := e.Apply(in, 0.30)
	require.Equal(t, []string{"A"}, report.Capped)
	assert.InDelta(t, 0.30, report.Weights["A"], 1e-9)
	// The 20pp excess spreads pro-rata over B (0.30) and C (0.20).
	assert.InDelta(t, 0.30+0.20*0.6, report.Weights["B"], 1e-9)
	assert.InDelta(t, 0.20+0.20*0.4, report.Weights["C"], 1e-9)
	assert.InDelta(t, 1.0, Sum(report.Weights), 1e-9)
}

func TestApplyIteratesWhenRedistributionOverflows(t *testing.T) {
	e := NewEnforcer(zerolog.Nop())
	// Redistributing A's excess pushes B over the cap too.
	in := map[string]float64{"A": 0.60, "B": 0.28, "C": 0.06, "D": 0.06}

	report := e.Apply(in, 0.30)
	assert.GreaterOrEqual(t, report.Iterations, 2)
	assert.False(t, report.Violated())
	assert.InDelta(t, 1.0, Sum(report.Weights), 1e-9)
	for ticker, w := range report.Weights {
		assert.LessOrEqual(t, w, 0.30+Margin+1e-9, "ticker %s", ticker)
	}
}

func TestApplyIdempotent(t *testing.T) {
	e := NewEnforcer(zerolog.Nop())
	in := map[string]float64{"A": 0.60, "B": 0.28, "C": 0.06, "D": 0.06}

	first := e.Apply(in, 0.30)
	second := e.Apply(first.Weights, 0.30)
	for ticker := range first.Weights {
		assert.InDelta(t, first.Weights[ticker], second.Weights[ticker], 1e-12)
	}
	assert.Empty(t, second.Capped)
}

func TestApplyInfeasibleCollapsesToEqualWeights(t *testing.T) {
	e := NewEnforcer(zerolog.Nop())
	// Three names under a 25% cap cannot sum to 1.
	in := map[string]float64{"A": 0.70, "B": 0.20, "C": 0.10}

	report := e.Apply(in, 0.25)
	assert.True(t, report.Violated())
	for _, w := range report.Weights {
		assert.InDelta(t, 1.0/3, w, 1e-9)
	}
	assert.InDelta(t, 1.0/3-(0.25+Margin), report.ResidualViolation, 1e-9)

	// Still idempotent in the infeasible case.
	again := e.Apply(report.Weights, 0.25)
	for ticker := range report.Weights {
		assert.InDelta(t, report.Weights[ticker], again.Weights[ticker], 1e-12)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	e := NewEnforcer(zerolog.Nop())
	in := map[string]float64{"A": 0.50, "B": 0.50}
	e.Apply(in, 0.30)
	assert.Equal(t, 0.50, in["A"])
}

func TestMaxWeight(t *testing.T) {
	assert.Equal(t, 0.0, MaxWeight(nil))
	assert.Equal(t, 0.5, MaxWeight(map[string]float64{"A": 0.5, "B": 0.3}))
}
