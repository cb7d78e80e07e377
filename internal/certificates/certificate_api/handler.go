package certificate_api

import (
	"fmt"
	"net/http"
	"strconv"

	"coa-registry/internal/apperr"
	"coa-registry/internal/auth"
	certificates "coa-registry/internal/certificates/service"
	"coa-registry/internal/logger"
	"coa-registry/internal/models"
	"coa-registry/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	CertificateService *certificates.CertificateService
	Logger             *logger.Logger
}

func NewHandler(svc *certificates.CertificateService, log *logger.Logger) *Handler {
	return &Handler{CertificateService: svc, Logger: log}
}

// CreateCertificate handles POST /api/admin/certificates
func (h *Handler) CreateCertificate(w http.ResponseWriter, r *http.Request) {
	var in models.CertificateInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}

	cert, err := h.CertificateService.CreateCertificate(r.Context(), auth.ActorFrom(r.Context()), in)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Certificate created", cert)
}

// ListCertificates handles GET /api/admin/certificates?status=&event_id=&limit=
func (h *Handler) ListCertificates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.CertificateFilter{
		Status:  models.CertificateStatus(q.Get("status")),
		EventID: q.Get("event_id"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			utils.WriteError(w, apperr.NewValidation("limit", "must be a non-negative integer"))
			return
		}
		filter.Limit = n
	}

	list, err := h.CertificateService.ListCertificates(r.Context(), auth.ActorFrom(r.Context()), filter)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Certificates retrieved", list)
}

func (h *Handler) GetCertificate(w http.ResponseWriter, r *http.Request) {
	cert, err := h.CertificateService.GetCertificate(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "certificateId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Certificate retrieved", cert)
}

// UpdateCertificate handles PUT /api/admin/certificates/{certificateId}
func (h *Handler) UpdateCertificate(w http.ResponseWriter, r *http.Request) {
	var in models.CertificateInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}

	cert, err := h.CertificateService.UpdateCertificate(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "certificateId"), in)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Certificate updated", cert)
}

// ReplaceImage handles POST /api/admin/certificates/{certificateId}/image with
// {"image_path": "..."} returned by POST /api/uploads.
func (h *Handler) ReplaceImage(w http.ResponseWriter, r *http.Request) {
	var in models.ImageInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := utils.ValidateStruct(in); err != nil {
		utils.WriteError(w, err)
		return
	}

	cert, err := h.CertificateService.ReplaceImage(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "certificateId"), in.ImagePath)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Certificate image replaced", cert)
}

// RevokeCertificate handles POST /api/admin/certificates/{certificateId}/revoke
func (h *Handler) RevokeCertificate(w http.ResponseWriter, r *http.Request) {
	var in models.RevokeInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}

	cert, err := h.CertificateService.RevokeCertificate(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "certificateId"), in.Reason)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Certificate revoked", cert)
}

// Verify handles GET /api/public/certificates/{qrId}
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	cert, err := h.CertificateService.Verify(r.Context(), chi.URLParam(r, "qrId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	utils.WriteSuccess(w, http.StatusOK, "Certificate verified", cert)
}

// QRCode handles GET /api/public/certificates/{qrId}/qr.png
func (h *Handler) QRCode(w http.ResponseWriter, r *http.Request) {
	png, err := h.CertificateService.QRCode(r.Context(), chi.URLParam(r, "qrId"))
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

// PDF handles GET /api/public/certificates/{qrId}/pdf
func (h *Handler) PDF(w http.ResponseWriter, r *http.Request) {
	qrID := chi.URLParam(r, "qrId")
	doc, err := h.CertificateService.PDF(r.Context(), qrID)
	if err != nil {
		if utils.StatusFor(err) >= http.StatusInternalServerError {
			h.Logger.Error("CERTIFICATES", fmt.Sprintf("PDF generation failed for %s: %v", qrID, err))
		}
		utils.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=certificate-%s.pdf", qrID))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}
