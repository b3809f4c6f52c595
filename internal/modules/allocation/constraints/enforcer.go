// Package constraints applies the per-position weight cap to a finished
// allocation and reports what, if anything, it had to change.
package constraints

import (
	"math"
	"sort"

	"github.com/rs/zerolog"
)

// Margin is the tolerance above the cap that is left untouched. Weights
// within cap+Margin are considered compliant; only weights beyond it are
// trimmed.
const Margin = 0.005

// Report describes the outcome of an enforcement pass.
type Report struct {
	Weights           map[string]float64 `json:"weights"`
	Capped            []string           `json:"capped,omitempty"`
	Iterations        int                `json:"iterations"`
	ResidualViolation float64            `json:"residual_violation"` // worst excess over cap+margin left in place
}

// Violated reports whether the final weights still exceed the cap beyond
// the margin. This happens only when cap*len(weights) < 1, where no
// compliant fully invested portfolio exists.
func (r Report) Violated() bool {
	return r.ResidualViolation > 1e-9
}

// Enforcer trims over-cap weights and redistributes the excess pro-rata
// across the remaining positions, iterating until no position exceeds the
// cap by more than the margin.
type Enforcer struct {
	log zerolog.Logger
}

func NewEnforcer(log zerolog.Logger) *Enforcer {
	return &Enforcer{log: log.With().Str("component", "constraint_enforcer").Logger()}
}

// Apply enforces the cap on a weight map that sums to 1. The input is not
// mutated. Applying the result again yields the same weights, including in
// the infeasible case where everything collapses to equal weights.
func (e *Enforcer) Apply(weights map[string]float64, cap float64) Report {
	out := make(map[string]float64, len(weights))
	for t, w := range weights {
		out[t] = w
	}
	report := Report{Weights: out}
	if cap <= 0 || len(out) == 0 {
		return report
	}

	if cap*float64(len(out)) < 1.0-1e-9 {
		// No compliant portfolio exists. The fixed point is equal weights;
		// jump straight there so repeated application is stable.
		equal := 1.0 / float64(len(out))
		for t := range out {
			out[t] = equal
		}
		report.Capped = sortedKeys(out)
		report.Iterations = 1
		report.ResidualViolation = equal - (cap + Margin)
		if report.ResidualViolation < 0 {
			report.ResidualViolation = 0
		}
		e.log.Warn().
			Float64("cap", cap).
			Int("positions", len(out)).
			Float64("residual_violation", report.ResidualViolation).
			Msg("Cap infeasible for position count; collapsed to equal weights")
		return report
	}

	// Sorted iteration keeps the float rounding identical run to run; map
	// order would make the redistributed weights depend on it.
	order := sortedKeys(out)
	capped := make(map[string]bool)
	for iter := 0; iter < len(out); iter++ {
		var excess float64
		var freeSum float64
		for _, t := range order {
			if capped[t] {
				continue
			}
			if w := out[t]; w > cap+Margin {
				excess += w - cap
				out[t] = cap
				capped[t] = true
			} else {
				freeSum += w
			}
		}
		report.Iterations = iter + 1
		if excess <= 1e-12 {
			break
		}
		if freeSum <= 1e-12 {
			// Everything is at the cap; nowhere to redistribute.
			break
		}
		for _, t := range order {
			if !capped[t] {
				out[t] += excess * (out[t] / freeSum)
			}
		}
	}

	for _, w := range out {
		if over := w - (cap + Margin); over > report.ResidualViolation {
			report.ResidualViolation = over
		}
	}
	report.Capped = sortedTrue(capped)

	if len(report.Capped) > 0 {
		e.log.Debug().
			Float64("cap", cap).
			Strs("capped", report.Capped).
			Int("iterations", report.Iterations).
			Msg("Enforced position cap")
	}
	return report
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedTrue(m map[string]bool) []string {
	var keys []string
	for k, v := range m {
		if v {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Sum returns the total of all weights, useful for invariant checks.
func Sum(weights map[string]float64) float64 {
	var s float64
	for _, w := range weights {
		s += w
	}
	return s
}

// MaxWeight returns the largest single weight, or 0 for an empty map.
func MaxWeight(weights map[string]float64) float64 {
	var m float64
	for _, w := range weights {
		m = math.Max(m, w)
	}
	return m
}
