package attendance

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/batchflow/batchflow/internal/platform/httpx"
)

// Handler serves attendance endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers attendance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/{employeeId}/punch", h.punch)
}

func (h *Handler) punch(w http.ResponseWriter, r *http.Request) {
	employeeID, err := httpx.IDParam(r, "employeeId")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.service.Punch(r.Context(), employeeID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("attendance punch",
		slog.Int64("employee_id", employeeID),
		slog.String("event", string(p.Event)),
		slog.Bool("late", p.Record.IsLate))
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListByDate(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if status := httpx.RespondError(w, err); status >= http.StatusInternalServerError {
		h.logger.Error("attendance request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
}
