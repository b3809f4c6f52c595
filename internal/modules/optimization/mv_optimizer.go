package optimization

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/optimize"
)

// Warning names for conditions that degrade a solve without failing it.
const (
	WarnConstraintInfeasible = "constraint_infeasible"
	WarnDegenerateVolatility = "degenerate_volatility"
)

// Solution is the outcome of a successful solve: cleaned weights keyed by
// ticker, plus any warnings accumulated along the way.
type Solution struct {
	Weights  map[string]float64
	Warnings []string
}

// MVOptimizer solves the max-Sharpe mean-variance problem with a penalty
// method. Per-position bounds come from the constraint mode; the budget
// constraint (weights sum to 1) is enforced as a quadratic penalty plus a
// final normalization.
type MVOptimizer struct {
	riskFreeRate float64
	log          zerolog.Logger
}

func NewMVOptimizer(riskFreeRate float64, log zerolog.Logger) *MVOptimizer {
	return &MVOptimizer{
		riskFreeRate: riskFreeRate,
		log:          log.With().Str("component", "mv_optimizer").Logger(),
	}
}

// MaxSharpe maximizes (μ'w - r_f) / sqrt(w'Σw) subject to Σw = 1 and
// 0 ≤ w_i ≤ mode bound. Weights below the mode's cutoff are zeroed and the
// rest renormalized, so the result stays fully invested.
func (mvo *MVOptimizer) MaxSharpe(est Estimates, mode Mode) (Solution, error) {
	if !est.Sufficient {
		return Solution{}, fmt.Errorf("estimates insufficient: %s", est.Reason)
	}

	n := len(est.Tickers)
	mu := est.ExpectedReturns
	sigma := est.Covariance
	bound := mode.Bound()
	rf := mvo.riskFreeRate

	var warnings []string
	if bound*float64(n) < 1.0 {
		// The cap cannot reach a fully invested portfolio with this few
		// names. Solve anyway; the penalty trades the budget against the
		// bound and downstream enforcement settles the remainder.
		warnings = append(warnings, WarnConstraintInfeasible)
		mvo.log.Warn().
			Int("candidates", n).
			Float64("bound", bound).
			Msg("Weight bound infeasible for candidate count")
	}

	penaltyWeight := 1000.0

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			xProj := projectToBounds(x, bound)

			var returnVal, variance float64
			for i := 0; i < n; i++ {
				returnVal += mu[i] * xProj[i]
				for j := 0; j < n; j++ {
					variance += xProj[i] * xProj[j] * sigma.At(i, j)
				}
			}
			stdDev := math.Sqrt(math.Max(variance, 1e-10))

			sum := 0.0
			for i := 0; i < n; i++ {
				sum += xProj[i]
			}

			obj := -(returnVal - rf) / stdDev
			obj += penaltyWeight * (sum - 1.0) * (sum - 1.0)
			return obj
		},
		Grad: func(grad, x []float64) {
			xProj := projectToBounds(x, bound)

			var returnVal, variance float64
			for i := 0; i < n; i++ {
				returnVal += mu[i] * xProj[i]
				for j := 0; j < n; j++ {
					variance += xProj[i] * xProj[j] * sigma.At(i, j)
				}
			}
			stdDev := math.Sqrt(math.Max(variance, 1e-10))

			for i := 0; i < n; i++ {
				var dVariance float64
				for j := 0; j < n; j++ {
					dVariance += 2 * sigma.At(i, j) * xProj[j]
				}
				grad[i] = -mu[i]/stdDev + (returnVal-rf)*dVariance/(2*stdDev*stdDev*stdDev)
			}

			sum := 0.0
			for i := 0; i < n; i++ {
				sum += xProj[i]
			}
			for i := 0; i < n; i++ {
				grad[i] += 2 * penaltyWeight * (sum - 1.0)
			}
		},
	}

	initial := make([]float64, n)
	for i := range initial {
		initial[i] = 1.0 / float64(n)
	}

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.BFGS{})
	if err != nil || !converged(result) {
		result, err = optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
		if err != nil {
			return Solution{}, fmt.Errorf("optimization failed: %w", err)
		}
		if !converged(result) {
			return Solution{}, fmt.Errorf("optimization did not converge: status=%v", result.Status)
		}
	}

	xFinal := projectToBounds(result.X, bound)
	sum := 0.0
	for i := range xFinal {
		sum += xFinal[i]
	}
	raw := make(map[string]float64, n)
	for i, ticker := range est.Tickers {
		raw[ticker] = math.Max(0, xFinal[i]/math.Max(sum, 1e-10))
	}

	weights := cleanWeights(raw, mode.Cutoff())

	if portfolioVariance(weights, est) < 1e-12 {
		warnings = append(warnings, WarnDegenerateVolatility)
	}

	mvo.log.Debug().
		Str("mode", mode.String()).
		Int("candidates", n).
		Int("positions", len(weights)).
		Msg("Solved max-Sharpe weights")

	return Solution{Weights: weights, Warnings: warnings}, nil
}

func converged(r *optimize.Result) bool {
	switch r.Status {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence:
		return true
	default:
		return false
	}
}

// projectToBounds clamps each weight into [0, upper].
func projectToBounds(x []float64, upper float64) []float64 {
	proj := make([]float64, len(x))
	for i := range x {
		proj[i] = math.Max(0, math.Min(upper, x[i]))
	}
	return proj
}

// cleanWeights zeroes weights below the cutoff and renormalizes the rest.
// If everything falls below the cutoff, the single largest raw weight is
// kept so the portfolio stays invested.
func cleanWeights(raw map[string]float64, cutoff float64) map[string]float64 {
	tickers := make([]string, 0, len(raw))
	for ticker := range raw {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers) // keep the sum's rounding independent of map order

	kept := make(map[string]float64)
	sum := 0.0
	for _, ticker := range tickers {
		if w := raw[ticker]; w >= cutoff {
			kept[ticker] = w
			sum += w
		}
	}

	if len(kept) == 0 {
		best, bestW := "", -1.0
		for ticker, w := range raw {
			if w > bestW || (w == bestW && ticker < best) {
				best, bestW = ticker, w
			}
		}
		if best == "" {
			return kept
		}
		return map[string]float64{best: 1.0}
	}

	for ticker := range kept {
		kept[ticker] /= sum
	}
	return kept
}

// portfolioVariance computes w'Σw for a ticker-keyed weight map against the
// estimates' covariance.
func portfolioVariance(weights map[string]float64, est Estimates) float64 {
	var variance float64
	for i, ti := range est.Tickers {
		wi := weights[ti]
		if wi == 0 {
			continue
		}
		for j, tj := range est.Tickers {
			variance += wi * weights[tj] * est.Covariance.At(i, j)
		}
	}
	return variance
}
