package ledger

import "github.com/go-chi/chi/v5"

// MountRoutes registers batch assignment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.assign)
	r.Get("/batch/{batchId}", h.byBatch)
	r.Get("/batch/{batchId}/available", h.available)
	r.Get("/order/{orderId}", h.byOrder)
	r.Get("/{batchId}/{orderId}", h.show)
	r.Put("/{batchId}/{orderId}", h.update)
	r.Delete("/{batchId}/{orderId}", h.remove)
}
