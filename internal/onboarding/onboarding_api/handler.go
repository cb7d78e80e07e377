package onboarding_api

import (
	"net/http"

	"coa-registry/internal/auth"
	"coa-registry/internal/logger"
	"coa-registry/internal/models"
	onboarding "coa-registry/internal/onboarding/service"
	"coa-registry/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	OnboardingService *onboarding.OnboardingService
	Logger            *logger.Logger
}

func NewHandler(svc *onboarding.OnboardingService, log *logger.Logger) *Handler {
	return &Handler{OnboardingService: svc, Logger: log}
}

// Submit handles POST /api/artist-requests
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var in models.ArtistRequestInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}

	req, err := h.OnboardingService.Submit(r.Context(), auth.ActorFrom(r.Context()), in)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Application submitted", req)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	list, err := h.OnboardingService.ListMine(r.Context(), auth.ActorFrom(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Applications retrieved", list)
}

// List handles GET /api/admin/artist-requests?status=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	status := models.RequestStatus(r.URL.Query().Get("status"))
	list, err := h.OnboardingService.List(r.Context(), auth.ActorFrom(r.Context()), status)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Applications retrieved", list)
}

// Review handles POST /api/admin/artist-requests/{id}/review with
// {"decision": "approve"|"reject"}.
func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	var in models.ReviewInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}

	req, err := h.OnboardingService.Review(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "id"), in.Decision)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Application reviewed", req)
}
