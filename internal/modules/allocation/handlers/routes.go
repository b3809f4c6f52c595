package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the allocation routes on the given router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/allocation", func(r chi.Router) {
		r.Post("/recommend", h.HandleRecommend)
	})
}
