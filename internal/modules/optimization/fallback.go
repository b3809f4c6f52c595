package optimization

import "math"

// FallbackWeights builds the deterministic allocation used when estimation
// cannot produce usable inputs. Mathematical mode takes equal weights across
// every ranked candidate; the bounded modes take the first maxPositions
// candidates (already ranked by the screener). If the equal weight would
// exceed the cap, weights are front-loaded at the cap and the remainder
// flows to the next ranked candidates.
//
// When the cap cannot absorb the full budget across every available
// candidate, the residual is spread equally over all of them; the
// constraint enforcer reports the violation downstream.
func FallbackWeights(ranked []string, mode Mode, maxPositions int, cap float64) map[string]float64 {
	if len(ranked) == 0 {
		return map[string]float64{}
	}
	n := len(ranked)
	if mode != ModeMathematical && maxPositions > 0 && n > maxPositions {
		n = maxPositions
	}

	equal := 1.0 / float64(n)
	weights := make(map[string]float64, n)
	if cap <= 0 || equal <= cap {
		for _, ticker := range ranked[:n] {
			weights[ticker] = equal
		}
		return weights
	}

	// Equal weight breaches the cap: front-load at the cap, widening past
	// maxPositions if more ranked candidates are available.
	remaining := 1.0
	i := 0
	for ; i < len(ranked) && remaining > 1e-12; i++ {
		w := math.Min(cap, remaining)
		weights[ranked[i]] = w
		remaining -= w
	}
	if remaining > 1e-12 {
		// Candidates exhausted below the budget; spread the rest equally.
		extra := remaining / float64(len(weights))
		for ticker := range weights {
			weights[ticker] += extra
		}
	}
	return weights
}
