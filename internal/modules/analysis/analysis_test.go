package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/advisor/internal/marketdata"
)

func rising(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 * math.Pow(1.005, float64(i))
	}
	return closes
}

func falling(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 * math.Pow(0.995, float64(i))
	}
	return closes
}

func TestTrend(t *testing.T) {
	assert.Equal(t, TrendUp, Trend(rising(80)))
	assert.Equal(t, TrendDown, Trend(falling(80)))
	assert.Equal(t, TrendNeutral, Trend(rising(30)))
}

func TestRSI(t *testing.T) {
	rsi := RSI(rising(40))
	require.NotNil(t, rsi)
	// A monotonically rising series has RSI at the top of the scale.
	assert.Greater(t, *rsi, 70.0)

	assert.Nil(t, RSI(rising(10)))
}

func TestMaxDrawdown(t *testing.T) {
	closes := []float64{100, 120, 90, 110, 80, 95}
	// Peak 120 to trough 80.
	assert.InDelta(t, (120.0-80.0)/120.0, MaxDrawdown(closes), 1e-12)

	assert.Zero(t, MaxDrawdown(rising(20)))
}

func TestAnnualizedVolatility(t *testing.T) {
	// Constant returns have zero variance.
	assert.InDelta(t, 0, AnnualizedVolatility(rising(20)), 1e-9)

	alternating := []float64{100, 102, 100, 102, 100, 102, 100}
	assert.Greater(t, AnnualizedVolatility(alternating), 0.0)

	assert.Zero(t, AnnualizedVolatility([]float64{100, 101}))
}

func TestAnalyze(t *testing.T) {
	a := NewAnalyzer(zerolog.Nop())
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	var s marketdata.Series
	for i, c := range rising(80) {
		s = append(s, marketdata.Bar{Date: base.AddDate(0, 0, i), Close: c})
	}

	got := a.Analyze(map[string]marketdata.Series{"005930": s, "empty": nil})
	require.Len(t, got, 1)
	d := got["005930"]
	assert.Equal(t, "005930", d.Ticker)
	assert.Equal(t, TrendUp, d.Trend)
	require.NotNil(t, d.RSI)
	assert.Zero(t, d.MaxDrawdown)
}
