package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"nightout/internal/auth/models"
	"nightout/internal/platform/middleware"
	"nightout/pkg/platform/httputil"
)

// AuthService exposes the mirrored auth state and sign-out.
type AuthService interface {
	State() models.State
	SignOut(ctx context.Context) error
}

type AuthHandler struct {
	auth   AuthService
	logger *slog.Logger
}

func NewAuthHandler(auth AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

func (h *AuthHandler) Register(r chi.Router) {
	r.Get("/auth/state", h.handleState)
	r.Post("/auth/sign-out", h.handleSignOut)
}

func (h *AuthHandler) handleState(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, toAuthStateResponse(h.auth.State()))
}

func (h *AuthHandler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.auth.SignOut(ctx); err != nil {
		h.logger.ErrorContext(ctx, "sign out failed",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
