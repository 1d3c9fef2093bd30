package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/batchflow/batchflow/internal/platform/httpx"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers auth routes on provided router. Login stays public;
// /me is wrapped with protect.
func (h *Handler) MountRoutes(r chi.Router, protect func(http.Handler) http.Handler) {
	r.Post("/login", h.handleLogin)
	r.With(protect).Get("/me", h.handleMe)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if status := httpx.RespondError(w, err); status >= http.StatusInternalServerError {
			h.logger.Error("login failed", slog.Any("error", err))
		} else {
			h.logger.Warn("login rejected", slog.String("email", req.Email), slog.String("remote", r.RemoteAddr))
		}
		return
	}
	httpx.JSON(w, http.StatusOK, token)
}

// handleMe echoes the caller's claims; it is only reachable behind Middleware.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, errMissingToken)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"id":    claims.UserID,
		"email": claims.Email,
		"name":  claims.Name,
	})
}
