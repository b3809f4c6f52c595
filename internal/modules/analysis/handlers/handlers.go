// Package handlers exposes technical diagnostics over HTTP.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/advisor/internal/marketdata"
	"github.com/aristath/advisor/internal/modules/analysis"
)

// Handler handles analysis HTTP requests.
type Handler struct {
	prices       marketdata.PriceHistoryProvider
	analyzer     *analysis.Analyzer
	lookbackDays int
	log          zerolog.Logger
}

func NewHandler(prices marketdata.PriceHistoryProvider, analyzer *analysis.Analyzer, lookbackDays int, log zerolog.Logger) *Handler {
	if lookbackDays <= 0 {
		lookbackDays = 365
	}
	return &Handler{
		prices:       prices,
		analyzer:     analyzer,
		lookbackDays: lookbackDays,
		log:          log.With().Str("handler", "analysis").Logger(),
	}
}

// HandleDiagnostics returns trend, RSI, drawdown and volatility for the
// comma-separated tickers query parameter.
func (h *Handler) HandleDiagnostics(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("tickers"))
	if raw == "" {
		h.writeError(w, http.StatusBadRequest, "tickers query parameter is required")
		return
	}
	var tickers []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tickers = append(tickers, t)
		}
	}

	since := time.Now().UTC().AddDate(0, 0, -h.lookbackDays)
	series, err := h.prices.Closes(r.Context(), tickers, since)
	if err != nil {
		h.log.Error().Err(err).Msg("Price history load failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"diagnostics": h.analyzer.Analyze(series),
	})
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
