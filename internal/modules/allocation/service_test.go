package allocation

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/advisor/internal/marketdata"
	"github.com/aristath/advisor/internal/modules/allocation/constraints"
	"github.com/aristath/advisor/internal/modules/analysis"
	"github.com/aristath/advisor/internal/modules/optimization"
	"github.com/aristath/advisor/internal/modules/protection"
	"github.com/aristath/advisor/internal/modules/screening"
	"github.com/aristath/advisor/internal/modules/universe"
)

type stubUniverse struct{ snap universe.Snapshot }

func (s stubUniverse) Current() universe.Snapshot { return s.snap }

type stubFundamentals map[string]marketdata.Fundamentals

func (s stubFundamentals) Latest(_ context.Context, _ []string) (map[string]marketdata.Fundamentals, error) {
	return s, nil
}

type stubPrices map[string]marketdata.Series

func (s stubPrices) Closes(_ context.Context, _ []string, _ time.Time) (map[string]marketdata.Series, error) {
	return s, nil
}

type failingPrices struct{}

func (failingPrices) Closes(_ context.Context, _ []string, _ time.Time) (map[string]marketdata.Series, error) {
	return nil, errors.New("price store unavailable")
}

func testUniverse() universe.Snapshot {
	var snap universe.Snapshot
	for _, t := range []string{"000100", "000200", "000300", "000400", "000500", "000600"} {
		snap.Listings = append(snap.Listings, universe.Listing{
			Ticker: t, Name: "Corp " + t, Exchange: "KOSPI", Sector: "Electronics",
		})
	}
	snap.Exchanges = []string{"KOSPI"}
	return snap
}

func testServiceFundamentals() stubFundamentals {
	funds := make(stubFundamentals)
	for _, t := range []string{"000100", "000200", "000300", "000400", "000500", "000600"} {
		funds[t] = marketdata.Fundamentals{
			Ticker: t, Revenue: 5e11, OperatingProfit: 4e10, NetProfit: 3e10,
			Sector: "Electronics", Exchange: "KOSPI",
		}
	}
	return funds
}

// longHistory builds deterministic 40-day series with per-ticker drift and
// phase so the covariance matrix is well conditioned.
func longHistory() stubPrices {
	prices := make(stubPrices)
	tickers := []string{"000100", "000200", "000300", "000400", "000500", "000600"}
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	for k, t := range tickers {
		var s marketdata.Series
		for i := 0; i < 40; i++ {
			drift := 1 + 0.0005*float64(k+1)
			close := 100*math.Pow(drift, float64(i)) + 2*math.Sin(float64(i)+float64(k))
			s = append(s, marketdata.Bar{Date: base.AddDate(0, 0, i), Close: close})
		}
		prices[t] = s
	}
	return prices
}

func shortHistory() stubPrices {
	prices := make(stubPrices)
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, t := range []string{"000100", "000200", "000300", "000400", "000500", "000600"} {
		prices[t] = marketdata.Series{
			{Date: base, Close: 100},
			{Date: base.AddDate(0, 0, 1), Close: 101},
			{Date: base.AddDate(0, 0, 2), Close: 102},
			{Date: base.AddDate(0, 0, 3), Close: 103},
		}
	}
	return prices
}

func newTestService(snap universe.Snapshot, prices marketdata.PriceHistoryProvider) *Service {
	nop := zerolog.Nop()
	return NewService(
		stubUniverse{snap: snap},
		screening.NewScreener(nop),
		testServiceFundamentals(),
		prices,
		optimization.NewEstimator(nop),
		optimization.NewMVOptimizer(0.02, nop),
		constraints.NewEnforcer(nop),
		protection.NewService(nop),
		analysis.NewAnalyzer(nop),
		nil,
		Config{RiskFreeRate: 0.02, LookbackDays: 365},
		nop,
	)
}

func TestBuildAllocationOptimizedPath(t *testing.T) {
	svc := newTestService(testUniverse(), longHistory())

	result, err := svc.BuildAllocation(context.Background(), Request{RiskDescriptor: "neutral"})
	require.NoError(t, err)

	assert.NotEmpty(t, result.RequestID)
	assert.Equal(t, "risk_neutral", result.Tier)
	assert.Equal(t, "practical", result.Mode)
	assert.False(t, result.Diagnostics.UsedFallback)
	assert.Equal(t, 6, result.Diagnostics.CandidateCount)
	assert.Equal(t, 40, result.Diagnostics.AlignedDays)
	require.NotEmpty(t, result.Positions)

	sum := 0.0
	for _, p := range result.Positions {
		assert.Greater(t, p.Weight, 0.0)
		assert.NotEmpty(t, p.Name)
		sum += p.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-6)

	assert.GreaterOrEqual(t, result.Protection.RiskLevel, 1)
	assert.Equal(t, 4, result.Protection.MaxRiskLevel)

	// Technical diagnostics ride along when the optimizer ran.
	require.NotEmpty(t, result.Diagnostics.Technicals)
	for _, p := range result.Positions {
		d, ok := result.Diagnostics.Technicals[p.Ticker]
		require.True(t, ok)
		assert.NotEmpty(t, d.Trend)
	}
}

func TestBuildAllocationCapitalAmounts(t *testing.T) {
	svc := newTestService(testUniverse(), longHistory())

	result, err := svc.BuildAllocation(context.Background(), Request{
		RiskDescriptor: "neutral",
		Capital:        50_000_000,
	})
	require.NoError(t, err)

	total := 0.0
	for _, p := range result.Positions {
		assert.InDelta(t, 50_000_000*p.Weight, p.Amount, 1e-6)
		total += p.Amount
	}
	assert.InDelta(t, 50_000_000, total, 1.0)
}

func TestBuildAllocationExplicitTickers(t *testing.T) {
	svc := newTestService(testUniverse(), longHistory())

	result, err := svc.BuildAllocation(context.Background(), Request{
		RiskDescriptor: "neutral",
		Tickers:        []string{"000100", "000200", "000300"},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Diagnostics.CandidateCount)
	for _, p := range result.Positions {
		assert.Contains(t, []string{"000100", "000200", "000300"}, p.Ticker)
	}
	// Three names cannot satisfy RiskNeutral's position floor; this is
	// reported, never padded.
	assert.False(t, result.Diagnostics.MinPositionsMet)
}

func TestBuildAllocationExplicitTickersSkipGates(t *testing.T) {
	// Stable's revenue floor would reject the whole test universe, but an
	// explicit list is never gated.
	svc := newTestService(testUniverse(), longHistory())

	result, err := svc.BuildAllocation(context.Background(), Request{
		RiskDescriptor: "stable",
		Tickers:        []string{"000100", "000200"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Diagnostics.CandidateCount)
}

func TestBuildAllocationExchangeOverride(t *testing.T) {
	svc := newTestService(testUniverse(), longHistory())

	// The test universe is all KOSPI; restricting to KOSDAQ empties it.
	_, err := svc.BuildAllocation(context.Background(), Request{
		RiskDescriptor: "neutral",
		Exchange:       "KOSDAQ",
	})
	assert.ErrorIs(t, err, ErrInsufficientUniverse)
}

func TestBuildAllocationFallsBackOnShortHistory(t *testing.T) {
	svc := newTestService(testUniverse(), shortHistory())

	result, err := svc.BuildAllocation(context.Background(), Request{RiskDescriptor: "neutral"})
	require.NoError(t, err)

	assert.True(t, result.Diagnostics.UsedFallback)
	assert.NotEmpty(t, result.Diagnostics.FallbackReason)
	assert.Equal(t, optimization.FallbackSummary(), result.Performance)

	// RiskNeutral asks for 6 positions minimum; exactly the universe size.
	require.Len(t, result.Positions, 6)
	for _, p := range result.Positions {
		assert.InDelta(t, 1.0/6, p.Weight, 1e-9)
	}
	assert.True(t, result.Diagnostics.MinPositionsMet)
}

func TestBuildAllocationMathematicalFallbackSpansAllCandidates(t *testing.T) {
	// Thin history plus mathematical mode: the fallback must spread equally
	// over every screened candidate, not stop at the tier's position floor.
	tickers := []string{"000100", "000200", "000300", "000400", "000500", "000600", "000700", "000800"}
	var snap universe.Snapshot
	prices := make(stubPrices)
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, ticker := range tickers {
		snap.Listings = append(snap.Listings, universe.Listing{
			Ticker: ticker, Name: "Corp " + ticker, Exchange: "KOSDAQ", Sector: "Electronics",
		})
		prices[ticker] = marketdata.Series{
			{Date: base, Close: 100},
			{Date: base.AddDate(0, 0, 1), Close: 101},
			{Date: base.AddDate(0, 0, 2), Close: 102},
			{Date: base.AddDate(0, 0, 3), Close: 103},
		}
	}
	svc := newTestService(snap, prices)

	result, err := svc.BuildAllocation(context.Background(), Request{
		RiskDescriptor: "aggressive",
		Mode:           "mathematical",
	})
	require.NoError(t, err)

	assert.True(t, result.Diagnostics.UsedFallback)
	require.Len(t, result.Positions, 8)
	for _, p := range result.Positions {
		assert.InDelta(t, 0.125, p.Weight, 1e-9)
	}
}

func TestBuildAllocationFallsBackOnPriceError(t *testing.T) {
	svc := newTestService(testUniverse(), failingPrices{})

	result, err := svc.BuildAllocation(context.Background(), Request{RiskDescriptor: "neutral"})
	require.NoError(t, err)
	assert.True(t, result.Diagnostics.UsedFallback)
}

func TestBuildAllocationEmptyUniverse(t *testing.T) {
	svc := newTestService(universe.Snapshot{}, longHistory())

	_, err := svc.BuildAllocation(context.Background(), Request{RiskDescriptor: "neutral"})
	assert.ErrorIs(t, err, ErrInsufficientUniverse)
}

func TestBuildAllocationInvalidModeOverride(t *testing.T) {
	svc := newTestService(testUniverse(), longHistory())

	_, err := svc.BuildAllocation(context.Background(), Request{RiskDescriptor: "neutral", Mode: "reckless"})
	assert.ErrorIs(t, err, optimization.ErrUnknownMode)
}

func TestBuildAllocationModeOverride(t *testing.T) {
	svc := newTestService(testUniverse(), longHistory())

	result, err := svc.BuildAllocation(context.Background(), Request{RiskDescriptor: "neutral", Mode: "conservative"})
	require.NoError(t, err)
	assert.Equal(t, "conservative", result.Mode)

	// No position may exceed the conservative cap beyond the margin.
	for _, p := range result.Positions {
		assert.LessOrEqual(t, p.Weight, 0.25+constraints.Margin+1e-9)
	}
}

func TestBuildAllocationBitIdenticalDeterminism(t *testing.T) {
	// Two runs over identical inputs must agree to the last bit, map
	// iteration order notwithstanding.
	first, err := newTestService(testUniverse(), longHistory()).
		BuildAllocation(context.Background(), Request{RiskDescriptor: "neutral"})
	require.NoError(t, err)
	second, err := newTestService(testUniverse(), longHistory()).
		BuildAllocation(context.Background(), Request{RiskDescriptor: "neutral"})
	require.NoError(t, err)

	require.Equal(t, len(first.Positions), len(second.Positions))
	for i := range first.Positions {
		assert.Equal(t, first.Positions[i].Ticker, second.Positions[i].Ticker)
		assert.Equal(t,
			math.Float64bits(first.Positions[i].Weight),
			math.Float64bits(second.Positions[i].Weight),
			"weight bits diverged for %s", first.Positions[i].Ticker)
	}
	assert.Equal(t, math.Float64bits(first.Performance.SharpeRatio), math.Float64bits(second.Performance.SharpeRatio))
}

func TestBuildAllocationLegacyDescriptor(t *testing.T) {
	svc := newTestService(testUniverse(), longHistory())

	result, err := svc.BuildAllocation(context.Background(), Request{RiskDescriptor: "safe"})
	require.NoError(t, err)
	assert.Equal(t, "stability_seeking", result.Tier)
	assert.Equal(t, "conservative", result.Mode)
}
