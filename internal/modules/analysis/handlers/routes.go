package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the analysis routes on the given router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analysis", func(r chi.Router) {
		r.Get("/diagnostics", h.HandleDiagnostics)
	})
}
