package analytics_api

import (
	"net/http"

	"coa-registry/internal/analytics"
	"coa-registry/internal/auth"
	"coa-registry/internal/logger"
	"coa-registry/internal/utils"

	"github.com/go-chi/chi/v5"
)

// Handler handles analytics HTTP endpoints
type Handler struct {
	Service *analytics.Service
	Logger  *logger.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(service *analytics.Service, logger *logger.Logger) *Handler {
	return &Handler{
		Service: service,
		Logger:  logger,
	}
}

// RegisterRoutes registers the analytics routes on the /api router. Callers
// are expected to have attached the artist-or-staff guard.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/events/{eventId}/stats", h.GetEventStats)
	r.Post("/analytics/events/batch", h.GetBatchEventStats)
}

// GetEventStats handles GET /api/events/{eventId}/stats
func (h *Handler) GetEventStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.GetEventStats(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event stats retrieved", stats)
}

// BatchStatsRequest is the body of POST /api/analytics/events/batch
type BatchStatsRequest struct {
	EventIDs []string `json:"event_ids"`
}

// GetBatchEventStats handles POST /api/analytics/events/batch
func (h *Handler) GetBatchEventStats(w http.ResponseWriter, r *http.Request) {
	var req BatchStatsRequest
	if r.ContentLength != 0 {
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.WriteError(w, err)
			return
		}
	}

	stats, err := h.Service.GetBatchEventStats(r.Context(), auth.ActorFrom(r.Context()), req.EventIDs)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event stats retrieved", stats)
}
