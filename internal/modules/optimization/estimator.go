package optimization

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/advisor/internal/marketdata"
)

const (
	// MinAlignedDays is the minimum number of common trading days required
	// before return and covariance estimates are considered usable.
	MinAlignedDays = 10

	tradingDaysPerYear = 252
)

// Estimates holds the annualized inputs to the optimizer, plus the outcome
// of the estimation itself. Sufficient=false is a normal result, not an
// error; callers route it to the fallback allocator.
type Estimates struct {
	Tickers         []string
	ExpectedReturns []float64     // annualized, aligned with Tickers
	Covariance      *mat.SymDense // annualized sample covariance
	Observations    int           // aligned trading days used
	Dropped         []string      // tickers excluded for missing history
	Sufficient      bool
	Reason          string // set when Sufficient is false
}

// Return looks up the annualized expected return for a ticker.
func (e Estimates) Return(ticker string) (float64, bool) {
	for i, t := range e.Tickers {
		if t == ticker {
			return e.ExpectedReturns[i], true
		}
	}
	return 0, false
}

// Estimator turns raw close series into annualized return and covariance
// estimates over the inner join of trading dates.
type Estimator struct {
	log zerolog.Logger
}

func NewEstimator(log zerolog.Logger) *Estimator {
	return &Estimator{log: log.With().Str("component", "estimator").Logger()}
}

// Estimate aligns the series on common trading dates and computes annualized
// mean returns and the annualized sample covariance matrix. Tickers with no
// series are dropped; if fewer than two tickers or fewer than MinAlignedDays
// common dates remain, the result is marked insufficient.
func (e *Estimator) Estimate(series map[string]marketdata.Series, tickers []string) Estimates {
	est := Estimates{}
	for _, t := range tickers {
		if len(series[t]) > 0 {
			est.Tickers = append(est.Tickers, t)
		} else {
			est.Dropped = append(est.Dropped, t)
		}
	}

	if len(est.Tickers) < 2 {
		est.Reason = "fewer than two tickers with price history"
		return est
	}

	dates := alignedDates(series, est.Tickers)
	est.Observations = len(dates)
	if len(dates) < MinAlignedDays {
		est.Reason = "fewer than 10 aligned trading days"
		return est
	}

	n := len(est.Tickers)
	obs := len(dates) - 1 // daily returns
	returns := mat.NewDense(obs, n, nil)
	for j, ticker := range est.Tickers {
		closes := closesByDate(series[ticker])
		prev := closes[dates[0]]
		for i := 1; i < len(dates); i++ {
			cur := closes[dates[i]]
			r := 0.0
			if prev > 0 {
				r = cur/prev - 1
			}
			returns.Set(i-1, j, r)
			prev = cur
		}
	}

	est.ExpectedReturns = make([]float64, n)
	for j := 0; j < n; j++ {
		meanDaily := stat.Mean(mat.Col(nil, j, returns), nil)
		est.ExpectedReturns[j] = math.Pow(1+meanDaily, tradingDaysPerYear) - 1
	}

	cov := mat.NewSymDense(n, nil)
	stat.CovarianceMatrix(cov, returns, nil)
	cov.ScaleSym(tradingDaysPerYear, cov)
	est.Covariance = cov

	est.Sufficient = true
	e.log.Debug().
		Int("tickers", n).
		Int("aligned_days", est.Observations).
		Int("dropped", len(est.Dropped)).
		Msg("Estimated returns and covariance")
	return est
}

// alignedDates returns the sorted intersection of trading dates across all
// tickers.
func alignedDates(series map[string]marketdata.Series, tickers []string) []time.Time {
	counts := make(map[time.Time]int)
	for _, t := range tickers {
		for _, bar := range series[t] {
			counts[bar.Date]++
		}
	}
	var dates []time.Time
	for d, c := range counts {
		if c == len(tickers) {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

func closesByDate(s marketdata.Series) map[time.Time]float64 {
	m := make(map[time.Time]float64, len(s))
	for _, bar := range s {
		m[bar.Date] = bar.Close
	}
	return m
}
