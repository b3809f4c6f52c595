package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the universe routes on the given router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/universe", func(r chi.Router) {
		r.Get("/", h.HandleGetUniverse)
		r.Post("/refresh", h.HandleRefresh)
	})
}
