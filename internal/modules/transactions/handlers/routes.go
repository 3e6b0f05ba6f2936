package handlers

import (
	"github.com/Ahmed-aleryani/coinmind/internal/httputil"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all transaction routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/transactions", func(r chi.Router) {
		r.Use(httputil.RequireUser)

		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/search", h.HandleSearch)
		r.Get("/stats", h.HandleStats)
		r.Get("/{id}", h.HandleGet)
		r.Patch("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
	})
}
