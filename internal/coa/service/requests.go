package coa

import (
	"context"
	"fmt"

	"coa-registry/internal/apperr"
	"coa-registry/internal/auth"
	"coa-registry/internal/database"
	"coa-registry/internal/models"
)

// GetRequest returns a request for staff review, with a short-lived URL for
// the private proof photo.
func (w *Workflow) GetRequest(ctx context.Context, actor models.Actor, requestID string) (*models.RequestView, error) {
	if err := auth.EnsureStaff(actor); err != nil {
		return nil, err
	}

	req, err := w.DB.GetRequest(ctx, requestID)
	if database.IsNoRows(err) {
		return nil, apperr.NotFound("request", requestID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load request %s: %w", requestID, err)
	}

	views, err := w.views(ctx, []models.CoaRequest{*req})
	if err != nil {
		return nil, err
	}
	view := views[0]

	if w.Images != nil && req.ProofImagePath != "" {
		view.ProofImageURL, err = w.Images.ProofURL(ctx, req.ProofImagePath)
		if err != nil {
			w.Logger.Warn("WORKFLOW", fmt.Sprintf("Failed to sign proof URL for %s: %v", req.ID, err))
		}
	}
	if w.Locker != nil && req.Status == models.StatusPending {
		view.ReviewingBy, err = w.Locker.Holder(ctx, req.ID)
		if err != nil {
			w.Logger.Warn("WORKFLOW", fmt.Sprintf("Failed to read review lock for %s: %v", req.ID, err))
		}
	}
	return &view, nil
}

func (w *Workflow) ListRequests(ctx context.Context, actor models.Actor, filter models.RequestFilter) ([]models.RequestView, error) {
	if err := auth.EnsureStaff(actor); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperr.NewValidation("status", "must be one of: pending approved rejected")
	}

	reqs, err := w.DB.ListRequests(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return w.views(ctx, reqs)
}

// ListMyRequests returns the caller's own submissions.
func (w *Workflow) ListMyRequests(ctx context.Context, actor models.Actor) ([]models.RequestView, error) {
	if err := auth.EnsureAuthenticated(actor); err != nil {
		return nil, err
	}

	reqs, err := w.DB.ListRequestsByCollector(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return w.views(ctx, reqs)
}

// ListArtistRequests is the artist's read-only view of requests against the
// events they own.
func (w *Workflow) ListArtistRequests(ctx context.Context, actor models.Actor, filter models.RequestFilter) ([]models.RequestView, error) {
	if err := auth.EnsureAuthenticated(actor); err != nil {
		return nil, err
	}
	if !auth.IsArtist(actor.Role) {
		return nil, apperr.Forbidden("artist role required")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperr.NewValidation("status", "must be one of: pending approved rejected")
	}

	reqs, err := w.DB.ListRequestsForArtist(ctx, actor.UserID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return w.views(ctx, reqs)
}

func (w *Workflow) views(ctx context.Context, reqs []models.CoaRequest) ([]models.RequestView, error) {
	var certIDs []string
	for _, r := range reqs {
		if r.IssuedCoaID != "" {
			certIDs = append(certIDs, r.IssuedCoaID)
		}
	}
	qrByCert, err := w.DB.CertificateQRs(ctx, certIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve certificates: %w", err)
	}

	out := make([]models.RequestView, 0, len(reqs))
	for _, r := range reqs {
		view := models.RequestView{CoaRequest: r, CertificateQR: qrByCert[r.IssuedCoaID]}
		if w.Images != nil && r.BookImagePath != "" {
			view.BookImageURL = w.Images.ImageURL(r.BookImagePath)
		}
		out = append(out, view)
	}
	return out, nil
}
