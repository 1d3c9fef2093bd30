package distribution

import "github.com/go-chi/chi/v5"

// MountRoutes registers distribution routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/available/employees", h.availableEmployees)
	r.Get("/available/orders", h.availableOrders)
	r.Get("/{id}", h.show)
	r.Post("/{id}/start", h.action(h.service.Start, "distribution started"))
	r.Post("/{id}/end", h.action(h.service.End, "distribution completed"))
	r.Post("/{id}/cancel", h.action(h.service.Cancel, "distribution canceled"))
	r.Delete("/{id}", h.action(h.service.Delete, "distribution deleted"))
}
