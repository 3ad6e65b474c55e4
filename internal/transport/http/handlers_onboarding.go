package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"nightout/internal/onboarding"
	"nightout/internal/platform/middleware"
	dErrors "nightout/pkg/domain-errors"
	"nightout/pkg/platform/httputil"
)

// OnboardingService reads and sets the first-run flags.
type OnboardingService interface {
	Status(ctx context.Context) (onboarding.Status, error)
	MarkOnboardingSeen(ctx context.Context) error
	MarkSetupCompleted(ctx context.Context) error
}

type OnboardingHandler struct {
	flags  OnboardingService
	logger *slog.Logger
}

func NewOnboardingHandler(flags OnboardingService, logger *slog.Logger) *OnboardingHandler {
	return &OnboardingHandler{flags: flags, logger: logger}
}

func (h *OnboardingHandler) Register(r chi.Router) {
	r.Route("/onboarding", func(r chi.Router) {
		r.Get("/", h.handleStatus)
		r.Post("/seen", h.mark(h.flags.MarkOnboardingSeen))
		r.Post("/setup-completed", h.mark(h.flags.MarkSetupCompleted))
	})
}

func (h *OnboardingHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status, err := h.flags.Status(ctx)
	if err != nil {
		h.fail(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

func (h *OnboardingHandler) mark(set func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := set(ctx); err != nil {
			h.fail(ctx, w, err)
			return
		}
		status, err := h.flags.Status(ctx)
		if err != nil {
			h.fail(ctx, w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, status)
	}
}

func (h *OnboardingHandler) fail(ctx context.Context, w http.ResponseWriter, err error) {
	h.logger.ErrorContext(ctx, "onboarding flags unavailable",
		"error", err,
		"request_id", middleware.GetRequestID(ctx),
	)
	httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to access onboarding flags"))
}
