// Package handlers exposes the universe snapshot over HTTP.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/advisor/internal/modules/universe"
)

// Handler handles universe HTTP requests.
type Handler struct {
	snapshots *universe.SnapshotService
	log       zerolog.Logger
}

func NewHandler(snapshots *universe.SnapshotService, log zerolog.Logger) *Handler {
	return &Handler{
		snapshots: snapshots,
		log:       log.With().Str("handler", "universe").Logger(),
	}
}

// HandleGetUniverse returns the current snapshot, optionally filtered by the
// exchange query parameter.
func (h *Handler) HandleGetUniverse(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshots.Current()

	exchange := r.URL.Query().Get("exchange")
	listings := snap.Listings
	if exchange != "" {
		filtered := make([]universe.Listing, 0, len(listings))
		for _, l := range listings {
			if l.Exchange == exchange {
				filtered = append(filtered, l)
			}
		}
		listings = filtered
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"taken_at":  snap.TakenAt,
		"exchanges": snap.Exchanges,
		"count":     len(listings),
		"listings":  listings,
	})
}

// HandleRefresh reloads the snapshot from storage.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.snapshots.Refresh(); err != nil {
		h.log.Error().Err(err).Msg("Snapshot refresh failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	snap := h.snapshots.Current()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"taken_at": snap.TakenAt,
		"count":    snap.Size(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
