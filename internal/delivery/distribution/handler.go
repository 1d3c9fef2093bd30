package distribution

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/batchflow/batchflow/internal/platform/httpx"
	"github.com/batchflow/batchflow/internal/shared"
)

// Handler manages distribution HTTP endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler creates a new handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// create handles POST /distribution
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	d, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("distribution created",
		slog.Int64("distribution_id", d.ID),
		slog.Int("orders", len(d.Orders)),
		slog.Int("employees", len(d.Employees)))
	httpx.JSON(w, http.StatusCreated, d)
}

// list handles GET /distribution
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Page: shared.ParsePageRequest(r)}
	if raw := r.URL.Query().Get("state"); raw != "" {
		state := State(raw)
		filter.State = &state
	}
	resp, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// show handles GET /distribution/{id}
func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	d, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

// action adapts a state transition to POST /distribution/{id}/<action>.
func (h *Handler) action(fn func(context.Context, int64) error, done string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.IDParam(r, "id")
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if err := fn(r.Context(), id); err != nil {
			h.fail(w, r, err)
			return
		}
		h.logger.Info(done, slog.Int64("distribution_id", id))
		httpx.Message(w, done)
	}
}

// availableEmployees handles GET /distribution/available/employees
func (h *Handler) availableEmployees(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.AvailableEmployees(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

// availableOrders handles GET /distribution/available/orders
func (h *Handler) availableOrders(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.AvailableOrders(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if status := httpx.RespondError(w, err); status >= http.StatusInternalServerError {
		h.logger.Error("distribution request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
}
