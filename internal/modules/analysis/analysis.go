// Package analysis computes per-ticker technical diagnostics attached to
// recommendations: moving-average trend, RSI and maximum drawdown.
package analysis

import (
	"math"

	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"

	"github.com/aristath/advisor/internal/marketdata"
)

const (
	shortSMAPeriod = 20
	longSMAPeriod  = 60
	rsiPeriod      = 14
)

// Trend labels derived from the 20/60 day moving average cross.
const (
	TrendUp      = "up"
	TrendDown    = "down"
	TrendNeutral = "neutral"
)

// Diagnostics summarizes one ticker's recent price behavior. Nil pointer
// fields mean the series was too short for that indicator.
type Diagnostics struct {
	Ticker      string   `json:"ticker"`
	Trend       string   `json:"trend"`
	RSI         *float64 `json:"rsi,omitempty"`
	MaxDrawdown float64  `json:"max_drawdown"`
	Volatility  float64  `json:"volatility"` // annualized
}

// Analyzer computes diagnostics from close series.
type Analyzer struct {
	log zerolog.Logger
}

func NewAnalyzer(log zerolog.Logger) *Analyzer {
	return &Analyzer{log: log.With().Str("component", "analyzer").Logger()}
}

// Analyze computes diagnostics for every ticker with a non-empty series.
func (a *Analyzer) Analyze(series map[string]marketdata.Series) map[string]Diagnostics {
	out := make(map[string]Diagnostics, len(series))
	for ticker, s := range series {
		if len(s) == 0 {
			continue
		}
		closes := make([]float64, len(s))
		for i, bar := range s {
			closes[i] = bar.Close
		}
		out[ticker] = Diagnostics{
			Ticker:      ticker,
			Trend:       Trend(closes),
			RSI:         RSI(closes),
			MaxDrawdown: MaxDrawdown(closes),
			Volatility:  AnnualizedVolatility(closes),
		}
	}
	return out
}

// Trend compares the 20 and 60 day simple moving averages. Too little
// history is reported as neutral.
func Trend(closes []float64) string {
	if len(closes) < longSMAPeriod {
		return TrendNeutral
	}
	short := talib.Sma(closes, shortSMAPeriod)
	long := talib.Sma(closes, longSMAPeriod)
	s := short[len(short)-1]
	l := long[len(long)-1]
	switch {
	case s > l*1.001:
		return TrendUp
	case s < l*0.999:
		return TrendDown
	default:
		return TrendNeutral
	}
}

// RSI returns the latest 14-period relative strength index, or nil when the
// series is too short.
func RSI(closes []float64) *float64 {
	if len(closes) < rsiPeriod+1 {
		return nil
	}
	rsi := talib.Rsi(closes, rsiPeriod)
	last := rsi[len(rsi)-1]
	if math.IsNaN(last) {
		return nil
	}
	return &last
}

// MaxDrawdown returns the largest peak-to-trough decline as a positive
// fraction.
func MaxDrawdown(closes []float64) float64 {
	var peak, maxDD float64
	for _, c := range closes {
		if c > peak {
			peak = c
		}
		if peak > 0 {
			if dd := (peak - c) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// AnnualizedVolatility is the sample standard deviation of daily returns
// scaled by sqrt(252).
func AnnualizedVolatility(closes []float64) float64 {
	if len(closes) < 3 {
		return 0
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] > 0 {
			returns = append(returns, closes[i]/closes[i-1]-1)
		}
	}
	if len(returns) < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	var ss float64
	for _, r := range returns {
		ss += (r - mean) * (r - mean)
	}
	sampleVar := ss / float64(len(returns)-1)
	return math.Sqrt(sampleVar) * math.Sqrt(252)
}
