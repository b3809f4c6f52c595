// Package optimization estimates return and risk from price history and
// solves the max-Sharpe weight problem under a constraint mode, with a
// deterministic fallback when estimation is not possible.
package optimization

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aristath/advisor/internal/modules/risk"
)

// ErrUnknownMode is wrapped by ParseMode for unrecognized mode names.
var ErrUnknownMode = errors.New("unknown constraint mode")

// Mode selects how tightly per-position weights are bounded during
// optimization and how small weights are cut afterwards.
type Mode int

const (
	// ModeMathematical leaves the solver unconstrained per position.
	ModeMathematical Mode = iota
	// ModePractical caps any single position at 30%.
	ModePractical
	// ModeConservative caps any single position at 25%.
	ModeConservative
)

func (m Mode) String() string {
	switch m {
	case ModeMathematical:
		return "mathematical"
	case ModePractical:
		return "practical"
	case ModeConservative:
		return "conservative"
	default:
		return "unknown"
	}
}

// Bound returns the per-position weight ceiling applied during the solve.
func (m Mode) Bound() float64 {
	switch m {
	case ModePractical:
		return 0.30
	case ModeConservative:
		return 0.25
	default:
		return 1.0
	}
}

// Cutoff returns the post-solve threshold below which a weight is zeroed
// before renormalization.
func (m Mode) Cutoff() float64 {
	if m == ModeMathematical {
		return 0.01
	}
	return 0.05
}

// ParseMode parses a mode name. The empty string is not a mode; callers that
// want a default pick one via ModeForTier.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mathematical":
		return ModeMathematical, nil
	case "practical":
		return ModePractical, nil
	case "conservative":
		return ModeConservative, nil
	default:
		return ModeMathematical, fmt.Errorf("%w %q", ErrUnknownMode, s)
	}
}

// ModeForTier picks the default constraint mode for a risk tier. Safety
// tiers get the tightest bounds; only Aggressive runs unconstrained.
func ModeForTier(t risk.Tier) Mode {
	switch t {
	case risk.Stable, risk.StabilitySeeking:
		return ModeConservative
	case risk.Aggressive:
		return ModeMathematical
	default:
		return ModePractical
	}
}
