package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"nightout/internal/outing/models"
	"nightout/internal/outing/tally"
	"nightout/internal/platform/middleware"
	"nightout/pkg/platform/httputil"
)

// OutingService is the statistics tracker as seen by the transport.
type OutingService interface {
	Snapshot() models.Statistics
	UpdateGroupTotal(ctx context.Context, total float64) error
	UpdateVenuesVisited(ctx context.Context, count int) error
	UpdateSquadSize(ctx context.Context, size int) error
	UpdateTotalDrinks(ctx context.Context, count int) error
	StartNewSession(ctx context.Context) error
	ResetSession(ctx context.Context) error
}

// OutingHandler serves the statistics screens and the drink tally.
type OutingHandler struct {
	outing OutingService
	drinks *tally.Tally
	logger *slog.Logger
}

func NewOutingHandler(outing OutingService, drinks *tally.Tally, logger *slog.Logger) *OutingHandler {
	if drinks == nil {
		drinks = tally.New(nil)
	}
	return &OutingHandler{outing: outing, drinks: drinks, logger: logger}
}

func (h *OutingHandler) Register(r chi.Router) {
	r.Route("/outing", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Post("/start", h.handleStart)
		r.Delete("/", h.handleReset)
		r.Put("/group-total", h.handleGroupTotal)
		r.Put("/venues", h.countSetter("venues_visited", h.outing.UpdateVenuesVisited))
		r.Put("/squad", h.countSetter("squad_size", h.outing.UpdateSquadSize))
		r.Put("/drinks", h.countSetter("total_drinks", h.outing.UpdateTotalDrinks))
		r.Get("/tally", h.handleTally)
		r.Post("/tally", h.handleAdjustTally)
		r.Get("/tally/menu", h.handleMenu)
		r.Put("/tally/menu", h.handleSetMenu)
	})
}

func (h *OutingHandler) handleGet(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, toStatisticsResponse(h.outing.Snapshot()))
}

func (h *OutingHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.outing.StartNewSession(ctx); err != nil {
		h.logger.ErrorContext(ctx, "failed to start outing",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	if err := h.drinks.Reset(ctx); err != nil {
		h.logger.ErrorContext(ctx, "failed to clear drink tally",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toStatisticsResponse(h.outing.Snapshot()))
}

func (h *OutingHandler) handleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.outing.ResetSession(ctx); err != nil {
		h.logger.ErrorContext(ctx, "failed to reset outing",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	if err := h.drinks.Reset(ctx); err != nil {
		h.logger.ErrorContext(ctx, "failed to clear drink tally",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OutingHandler) handleGroupTotal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AmountRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.outing.UpdateGroupTotal(ctx, *req.Value); err != nil {
		h.logger.WarnContext(ctx, "group total update rejected",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toStatisticsResponse(h.outing.Snapshot()))
}

func (h *OutingHandler) countSetter(field string, set func(context.Context, int) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := middleware.GetRequestID(ctx)

		req, ok := httputil.DecodeAndPrepare[CountRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}
		if err := set(ctx, *req.Value); err != nil {
			h.logger.WarnContext(ctx, "counter update rejected",
				"field", field,
				"error", err,
				"request_id", requestID,
			)
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, toStatisticsResponse(h.outing.Snapshot()))
	}
}

func (h *OutingHandler) handleTally(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, TallyResponse{
		Participants: h.drinks.Participants(),
		Statistics:   toStatisticsResponse(h.outing.Snapshot()),
	})
}

func (h *OutingHandler) handleAdjustTally(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[TallyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if _, err := h.drinks.Adjust(ctx, req.Participant, req.Drink, req.Delta); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.drinks.Sync(ctx, h.outing); err != nil {
		h.logger.ErrorContext(ctx, "failed to sync tally into outing statistics",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, TallyResponse{
		Participants: h.drinks.Participants(),
		Statistics:   toStatisticsResponse(h.outing.Snapshot()),
	})
}

func (h *OutingHandler) handleMenu(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, MenuResponse{Prices: h.drinks.Menu()})
}

func (h *OutingHandler) handleSetMenu(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[MenuRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.drinks.SetMenu(ctx, req.Prices); err != nil {
		h.logger.WarnContext(ctx, "drink prices rejected",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, MenuResponse{Prices: h.drinks.Menu()})
}
