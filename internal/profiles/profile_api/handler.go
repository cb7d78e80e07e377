package profile_api

import (
	"net/http"

	"coa-registry/internal/apperr"
	"coa-registry/internal/auth"
	"coa-registry/internal/logger"
	"coa-registry/internal/models"
	profiles "coa-registry/internal/profiles/service"
	"coa-registry/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	ProfileService *profiles.ProfileService
	Logger         *logger.Logger
}

func NewHandler(svc *profiles.ProfileService, log *logger.Logger) *Handler {
	return &Handler{ProfileService: svc, Logger: log}
}

// Me returns the caller's own profile.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFrom(r.Context())
	profile, err := h.ProfileService.GetProfile(r.Context(), actor, actor.UserID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Profile retrieved", profile)
}

// ListProfiles handles GET /api/admin/profiles?role=
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	var role *models.Role
	if r.URL.Query().Has("role") {
		v := models.Role(r.URL.Query().Get("role"))
		role = &v
	}

	list, err := h.ProfileService.ListProfiles(r.Context(), auth.ActorFrom(r.Context()), role)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Profiles retrieved", list)
}

// SetRole handles PUT /api/admin/profiles/{userId}/role
func (h *Handler) SetRole(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		utils.WriteError(w, apperr.NewValidation("userId", "is required"))
		return
	}

	var body models.RoleUpdate
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.WriteError(w, err)
		return
	}

	profile, err := h.ProfileService.SetRole(r.Context(), auth.ActorFrom(r.Context()), userID, body.Role)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Role updated", profile)
}

// DeleteAccount handles DELETE /api/admin/profiles/{userId}
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if err := h.ProfileService.DeleteAccount(r.Context(), auth.ActorFrom(r.Context()), userID); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Account deleted", nil)
}
