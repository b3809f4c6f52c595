// Package handlers provides HTTP handlers for allocation recommendations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/advisor/internal/modules/allocation"
	"github.com/aristath/advisor/internal/modules/optimization"
)

// Handler handles allocation HTTP requests.
type Handler struct {
	service *allocation.Service
	log     zerolog.Logger
}

// NewHandler creates a new allocation handler.
func NewHandler(service *allocation.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "allocation").Logger(),
	}
}

// HandleRecommend builds an allocation recommendation from the posted
// request body.
func (h *Handler) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	var req allocation.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.RiskDescriptor) == "" {
		h.writeError(w, http.StatusBadRequest, "risk_descriptor is required")
		return
	}
	if req.LookbackDays < 0 {
		h.writeError(w, http.StatusBadRequest, "lookback_days must be positive")
		return
	}
	if req.Capital < 0 {
		h.writeError(w, http.StatusBadRequest, "capital must not be negative")
		return
	}

	result, err := h.service.BuildAllocation(r.Context(), req)
	if err != nil {
		if errors.Is(err, allocation.ErrInsufficientUniverse) {
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if errors.Is(err, optimization.ErrUnknownMode) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Recommendation failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, result)
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
