// Package handlers exposes risk tier classification over HTTP.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/advisor/internal/modules/risk"
)

// Handler handles risk classification HTTP requests.
type Handler struct {
	log zerolog.Logger
}

func NewHandler(log zerolog.Logger) *Handler {
	return &Handler{log: log.With().Str("handler", "risk").Logger()}
}

// HandleClassify maps a risk descriptor onto a tier and returns the tier's
// guideline.
func (h *Handler) HandleClassify(w http.ResponseWriter, r *http.Request) {
	descriptor := strings.TrimSpace(r.URL.Query().Get("descriptor"))
	if descriptor == "" {
		h.writeError(w, http.StatusBadRequest, "descriptor query parameter is required")
		return
	}

	tier := risk.Classify(descriptor)
	g := risk.GuidelineFor(tier)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"descriptor": descriptor,
		"tier":       tier.String(),
		"tier_label": tier.Label(),
		"guideline":  guidelineView(g),
	})
}

// HandleListTiers returns every tier with its guideline.
func (h *Handler) HandleListTiers(w http.ResponseWriter, r *http.Request) {
	tiers := make([]map[string]interface{}, 0, len(risk.AllTiers))
	for _, t := range risk.AllTiers {
		tiers = append(tiers, map[string]interface{}{
			"tier":       t.String(),
			"tier_label": t.Label(),
			"guideline":  guidelineView(risk.GuidelineFor(t)),
		})
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"tiers": tiers})
}

func guidelineView(g risk.Guideline) map[string]interface{} {
	return map[string]interface{}{
		"stocks_target":      g.StocksTarget,
		"bonds_target":       g.BondsTarget,
		"cash_target":        g.CashTarget,
		"max_single_weight":  g.MaxSingleWeight,
		"min_positions":      g.MinPositions,
		"max_candidates":     g.MaxCandidates,
		"preferred_exchange": g.PreferredExch,
		"eligible_sectors":   g.EligibleSectors,
		"description":        g.Description,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
