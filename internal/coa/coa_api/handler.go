package coa_api

import (
	"net/http"
	"strconv"

	"coa-registry/internal/apperr"
	"coa-registry/internal/auth"
	coa "coa-registry/internal/coa/service"
	"coa-registry/internal/logger"
	"coa-registry/internal/models"
	"coa-registry/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Workflow *coa.Workflow
	Logger   *logger.Logger
}

func NewHandler(workflow *coa.Workflow, log *logger.Logger) *Handler {
	return &Handler{Workflow: workflow, Logger: log}
}

func filterFromQuery(r *http.Request) (models.RequestFilter, error) {
	q := r.URL.Query()
	filter := models.RequestFilter{
		Status:  models.RequestStatus(q.Get("status")),
		EventID: q.Get("event_id"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, apperr.NewValidation("limit", "must be a non-negative integer")
		}
		filter.Limit = n
	}
	return filter, nil
}

// SubmitRequest handles POST /api/events/{eventId}/requests
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var in models.SubmitRequestInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}

	req, err := h.Workflow.SubmitRequest(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "eventId"), in)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Request submitted", req)
}

func (h *Handler) ListMyRequests(w http.ResponseWriter, r *http.Request) {
	list, err := h.Workflow.ListMyRequests(r.Context(), auth.ActorFrom(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Requests retrieved", list)
}

func (h *Handler) ListArtistRequests(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	list, err := h.Workflow.ListArtistRequests(r.Context(), auth.ActorFrom(r.Context()), filter)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Requests retrieved", list)
}

// ListRequests handles GET /api/admin/requests?status=&event_id=&limit=
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	list, err := h.Workflow.ListRequests(r.Context(), auth.ActorFrom(r.Context()), filter)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Requests retrieved", list)
}

func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	view, err := h.Workflow.GetRequest(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "requestId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Request retrieved", view)
}

// ApproveRequest handles POST /api/admin/requests/{requestId}/approve
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	cert, err := h.Workflow.ApproveRequest(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "requestId"))
	if err != nil {
		if cert != nil {
			h.Logger.Warn("WORKFLOW", err.Error())
			utils.WriteErrorWithData(w, err, cert)
			return
		}
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Request approved", cert)
}

// RejectRequest handles POST /api/admin/requests/{requestId}/reject with an
// optional {"reason": "..."} body.
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	var in models.RejectInput
	if r.ContentLength != 0 {
		if err := utils.DecodeJSON(r, &in); err != nil {
			utils.WriteError(w, err)
			return
		}
		if err := utils.ValidateStruct(in); err != nil {
			utils.WriteError(w, err)
			return
		}
	}

	req, err := h.Workflow.RejectRequest(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "requestId"), in.Reason)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Request rejected", req)
}
