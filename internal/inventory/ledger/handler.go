package ledger

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/batchflow/batchflow/internal/platform/httpx"
)

// Handler manages batch assignment HTTP endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler creates a new handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// assign handles POST /batch-orders
func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	a, err := h.service.Assign(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("batch assigned",
		slog.Int64("batch_id", a.BatchID),
		slog.Int64("order_id", a.OrderID),
		slog.Int64("qty", a.Qty))
	httpx.JSON(w, http.StatusCreated, a)
}

// show handles GET /batch-orders/{batchId}/{orderId}
func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	batchID, orderID, err := pairParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	a, err := h.service.Get(r.Context(), batchID, orderID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}

// update handles PUT /batch-orders/{batchId}/{orderId}
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	batchID, orderID, err := pairParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req UpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	a, err := h.service.Update(r.Context(), batchID, orderID, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}

// remove handles DELETE /batch-orders/{batchId}/{orderId}
func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	batchID, orderID, err := pairParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.service.Remove(r.Context(), batchID, orderID); err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("batch assignment removed", slog.Int64("batch_id", batchID), slog.Int64("order_id", orderID))
	httpx.Message(w, "batch assignment removed")
}

// byBatch handles GET /batch-orders/batch/{batchId}
func (h *Handler) byBatch(w http.ResponseWriter, r *http.Request) {
	batchID, err := httpx.IDParam(r, "batchId")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.service.ListByBatch(r.Context(), batchID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

// byOrder handles GET /batch-orders/order/{orderId}
func (h *Handler) byOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := httpx.IDParam(r, "orderId")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.service.ListByOrder(r.Context(), orderID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

// available handles GET /batch-orders/batch/{batchId}/available?excludeOrder=
func (h *Handler) available(w http.ResponseWriter, r *http.Request) {
	batchID, err := httpx.IDParam(r, "batchId")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var exclude int64
	if raw := r.URL.Query().Get("excludeOrder"); raw != "" {
		exclude, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || exclude <= 0 {
			h.fail(w, r, &httpx.ValidationError{Fields: map[string]string{"excludeOrder": "must be a positive integer"}})
			return
		}
	}
	out, err := h.service.AvailableQuantity(r.Context(), batchID, exclude)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func pairParams(r *http.Request) (int64, int64, error) {
	batchID, err := httpx.IDParam(r, "batchId")
	if err != nil {
		return 0, 0, err
	}
	orderID, err := httpx.IDParam(r, "orderId")
	if err != nil {
		return 0, 0, err
	}
	return batchID, orderID, nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if status := httpx.RespondError(w, err); status >= http.StatusInternalServerError {
		h.logger.Error("batch-orders request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
}
