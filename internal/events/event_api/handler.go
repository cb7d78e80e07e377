package event_api

import (
	"net/http"
	"strconv"

	"coa-registry/internal/auth"
	events "coa-registry/internal/events/service"
	"coa-registry/internal/logger"
	"coa-registry/internal/models"
	"coa-registry/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	EventService *events.EventService
	Logger       *logger.Logger
}

func NewHandler(svc *events.EventService, log *logger.Logger) *Handler {
	return &Handler{EventService: svc, Logger: log}
}

// CreateEvent handles POST /api/admin/events and POST /api/artist/events
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var in models.EventInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}

	event, err := h.EventService.CreateEvent(r.Context(), auth.ActorFrom(r.Context()), in)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Event created", event)
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	list, err := h.EventService.ListEvents(r.Context(), auth.ActorFrom(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Events retrieved", list)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.EventService.GetEvent(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event retrieved", event)
}

// UpdateEvent handles PUT /api/events/{eventId}
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var in models.EventInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}

	event, err := h.EventService.UpdateEvent(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "eventId"), in)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event updated", event)
}

// SetActive handles POST /api/admin/events/{eventId}/active with {"is_active": bool}
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IsActive bool `json:"is_active"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.WriteError(w, err)
		return
	}

	event, err := h.EventService.SetActive(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "eventId"), body.IsActive)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event updated", event)
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.EventService.DeleteEvent(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "eventId")); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event deleted", nil)
}

// PublicEvent handles GET /api/public/events/{slug}
func (h *Handler) PublicEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.EventService.PublicEvent(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event retrieved", event)
}

// EventQR handles GET /api/public/events/{slug}/qr.png
func (h *Handler) EventQR(w http.ResponseWriter, r *http.Request) {
	png, err := h.EventService.EventQR(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
