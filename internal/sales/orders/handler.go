package orders

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/batchflow/batchflow/internal/platform/httpx"
	"github.com/batchflow/batchflow/internal/shared"
)

// Handler manages order HTTP endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler creates a new handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// list handles GET /orders
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Page: shared.ParsePageRequest(r)}
	if s := q.Get("status"); s != "" {
		status := Status(s)
		filter.Status = &status
	}
	if v, err := strconv.ParseInt(q.Get("client_id"), 10, 64); err == nil && v > 0 {
		filter.ClientID = &v
	}
	if v, err := strconv.ParseInt(q.Get("product_id"), 10, 64); err == nil && v > 0 {
		filter.ProductID = &v
	}

	resp, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// show handles GET /orders/{id}
func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

// create handles POST /orders
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	order, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("order created", slog.Int64("order_id", order.ID), slog.Int64("qty", order.Qty))
	httpx.JSON(w, http.StatusCreated, order)
}

// update handles PUT /orders/{id}
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req UpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	order, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

// remove handles DELETE /orders/{id}
func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("order deleted", slog.Int64("order_id", id))
	httpx.Message(w, "order deleted")
}

// requirements handles GET /orders/production-requirements
func (h *Handler) requirements(w http.ResponseWriter, r *http.Request) {
	buckets, err := h.service.ProductionRequirements(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, buckets)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if status := httpx.RespondError(w, err); status >= http.StatusInternalServerError {
		h.logger.Error("orders request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
}
