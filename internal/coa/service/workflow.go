package coa

import (
	"context"
	"errors"
	"fmt"

	"coa-registry/internal/apperr"
	"coa-registry/internal/auth"
	coadb "coa-registry/internal/coa/db"
	"coa-registry/internal/database"
	"coa-registry/internal/models"
	"coa-registry/internal/storage"
	"coa-registry/internal/utils"
)

// SubmitRequest records a pending request against an active event.
func (w *Workflow) SubmitRequest(ctx context.Context, actor models.Actor, eventID string, in models.SubmitRequestInput) (*models.CoaRequest, error) {
	if err := auth.EnsureAuthenticated(actor); err != nil {
		return nil, err
	}

	event, err := w.DB.GetEvent(ctx, eventID)
	if database.IsNoRows(err) {
		return nil, apperr.NotFound("event", eventID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load event %s: %w", eventID, err)
	}
	if !event.IsActive {
		return nil, apperr.ErrInactive
	}

	in.ComicTitle = utils.SanitizeText(in.ComicTitle)
	in.IssueNumber = utils.SanitizeText(in.IssueNumber)
	in.WitnessName = utils.SanitizeText(in.WitnessName)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	verr := &apperr.ValidationError{}
	if in.ProofImagePath != "" && !storage.OwnedUpload(in.ProofImagePath, actor.UserID, storage.KindProof) {
		verr.Add("proof_image_path", "must be one of your proof uploads")
	}
	if in.BookImagePath != "" && !storage.OwnedUpload(in.BookImagePath, actor.UserID, storage.KindBook) {
		verr.Add("book_image_path", "must be one of your book uploads")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	req := models.CoaRequest{
		ID:             utils.GenerateUUID(),
		Status:         models.StatusPending,
		ComicTitle:     in.ComicTitle,
		IssueNumber:    in.IssueNumber,
		CollectorID:    actor.UserID,
		EventID:        event.ID,
		Attested:       in.Attested,
		WitnessName:    in.WitnessName,
		ProofImagePath: in.ProofImagePath,
		BookImagePath:  in.BookImagePath,
		CreatedAt:      w.now(),
	}
	if err := w.DB.CreateRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	w.Logger.LogWorkflow("SUBMIT", req.ID, fmt.Sprintf("%s #%s for event %s by %s", req.ComicTitle, req.IssueNumber, event.ID, actor.UserID))
	if err := w.publish(ctx, models.WorkflowEvent{
		Type:      models.EventRequestSubmitted,
		RequestID: req.ID,
		EventID:   req.EventID,
		ActorID:   actor.UserID,
	}); err != nil {
		w.Logger.Warn("WORKFLOW", fmt.Sprintf("Failed to publish submission of %s: %v", req.ID, err))
	}

	return &req, nil
}

// lockForReview takes the review lock for requestID; the returned func
// releases it.
func (w *Workflow) lockForReview(ctx context.Context, actor models.Actor, requestID string) (func(), error) {
	if w.Locker == nil {
		return func() {}, nil
	}

	ok, err := w.Locker.LockRequest(ctx, requestID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.InvalidState("request is being reviewed by someone else")
	}
	return func() {
		if err := w.Locker.UnlockRequest(context.WithoutCancel(ctx), requestID, actor.UserID); err != nil {
			w.Logger.Warn("WORKFLOW", fmt.Sprintf("Failed to release review lock on %s: %v", requestID, err))
		}
	}, nil
}

func (w *Workflow) loadPending(ctx context.Context, requestID string) (*models.CoaRequest, error) {
	req, err := w.DB.GetRequest(ctx, requestID)
	if database.IsNoRows(err) {
		return nil, apperr.NotFound("request", requestID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load request %s: %w", requestID, err)
	}
	if req.Status != models.StatusPending {
		return nil, apperr.InvalidState(fmt.Sprintf("request is already %s", req.Status))
	}
	return req, nil
}

// witnessFor is the requester's public name for attested requests and the
// named witness otherwise.
func (w *Workflow) witnessFor(ctx context.Context, req *models.CoaRequest) (string, error) {
	if !req.Attested {
		return req.WitnessName, nil
	}
	profile, err := w.DB.GetProfile(ctx, req.CollectorID)
	if database.IsNoRows(err) {
		return req.WitnessName, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load requester %s: %w", req.CollectorID, err)
	}
	return profile.PublicName(), nil
}

// ApproveRequest issues a certificate for a pending request.
//
// The certificate insert and the request back-fill commit together. An open
// IssuanceIntent is written first so a certificate whose request never got
// back-filled can be found by SweepIntents. If anything fails after the
// certificate may have become durable, the error is a *apperr.DependencyFailure
// and the certificate (when known) is returned with it.
func (w *Workflow) ApproveRequest(ctx context.Context, actor models.Actor, requestID string) (*models.Certificate, error) {
	if err := auth.EnsureStaff(actor); err != nil {
		return nil, err
	}

	unlock, err := w.lockForReview(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	req, err := w.loadPending(ctx, requestID)
	if err != nil {
		return nil, err
	}

	event, err := w.DB.GetEvent(ctx, req.EventID)
	if database.IsNoRows(err) {
		return nil, apperr.InvalidState("the request's event no longer exists")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load event %s: %w", req.EventID, err)
	}

	witness, err := w.witnessFor(ctx, req)
	if err != nil {
		return nil, err
	}

	now := w.now()
	cert := models.Certificate{
		ComicTitle:      req.ComicTitle,
		IssueNumber:     req.IssueNumber,
		SignerName:      event.ArtistName,
		SignedDate:      event.StartDate,
		SignedLocation:  event.Location,
		WitnessedBy:     witness,
		ImagePath:       req.BookImagePath,
		Status:          models.CertificateActive,
		SourceRequestID: req.ID,
		EventID:         event.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var intent models.IssuanceIntent
	for attempt := 1; ; attempt++ {
		qrID, err := utils.GenerateQRID()
		if err != nil {
			return nil, err
		}
		cert.ID = utils.GenerateUUID()
		cert.QRID = qrID

		intent = models.IssuanceIntent{
			ID:            utils.GenerateUUID(),
			RequestID:     req.ID,
			CertificateID: cert.ID,
			QRID:          cert.QRID,
			Status:        models.IntentOpen,
			CreatedAt:     now,
		}
		if err := w.DB.CreateIntent(ctx, intent); err != nil {
			return nil, fmt.Errorf("failed to record issuance intent: %w", err)
		}

		err = w.DB.IssueCertificate(ctx, cert, actor.UserID, now)
		if err == nil {
			break
		}

		switch {
		case errors.Is(err, database.ErrCommitUnknown):
			w.Logger.Error("WORKFLOW", fmt.Sprintf("Commit outcome unknown for %s (certificate %s): %v", req.ID, cert.QRID, err))
			return &cert, &apperr.DependencyFailure{
				Operation: "approve request " + req.ID,
				Completed: "certificate " + cert.QRID + " may have been issued",
				Failed:    "confirming the commit",
				Err:       err,
			}
		case errors.Is(err, coadb.ErrNotPending):
			w.abandonIntent(ctx, intent.ID, "request no longer pending")
			return nil, apperr.InvalidState("request was reviewed concurrently")
		case database.IsUniqueViolation(err) && attempt < maxQRAttempts:
			w.abandonIntent(ctx, intent.ID, "qr id collision")
			w.Logger.Warn("WORKFLOW", fmt.Sprintf("QR id collision on %s, retrying", cert.QRID))
			continue
		default:
			w.abandonIntent(ctx, intent.ID, "issuance failed")
			return nil, fmt.Errorf("failed to issue certificate: %w", err)
		}
	}

	reviewedAt := now
	req.Status = models.StatusApproved
	req.IssuedCoaID = cert.ID
	req.ReviewedBy = actor.UserID
	req.ReviewedAt = &reviewedAt

	w.Logger.LogWorkflow("APPROVE", req.ID, fmt.Sprintf("certificate %s issued by %s", cert.QRID, actor.UserID))

	if err := w.DB.ResolveIntent(ctx, intent.ID, models.IntentCompleted, ""); err != nil {
		return &cert, &apperr.DependencyFailure{
			Operation: "approve request " + req.ID,
			Completed: "certificate " + cert.QRID + " issued",
			Failed:    "closing the issuance intent",
			Err:       err,
		}
	}

	for _, ev := range []models.WorkflowEvent{
		{Type: models.EventRequestApproved, RequestID: req.ID, EventID: req.EventID, QRID: cert.QRID, ActorID: actor.UserID},
		{Type: models.EventCertificateIssued, RequestID: req.ID, EventID: req.EventID, QRID: cert.QRID, ActorID: actor.UserID},
	} {
		if err := w.publish(ctx, ev); err != nil {
			return &cert, &apperr.DependencyFailure{
				Operation: "approve request " + req.ID,
				Completed: "certificate " + cert.QRID + " issued",
				Failed:    "publishing " + string(ev.Type),
				Err:       err,
			}
		}
	}

	return &cert, nil
}

func (w *Workflow) abandonIntent(ctx context.Context, intentID, note string) {
	if err := w.DB.ResolveIntent(context.WithoutCancel(ctx), intentID, models.IntentAbandoned, note); err != nil {
		w.Logger.Warn("WORKFLOW", fmt.Sprintf("Failed to abandon intent %s, the sweep will pick it up: %v", intentID, err))
	}
}

// RejectRequest closes a pending request with a reason shown to the collector.
func (w *Workflow) RejectRequest(ctx context.Context, actor models.Actor, requestID, reason string) (*models.CoaRequest, error) {
	if err := auth.EnsureStaff(actor); err != nil {
		return nil, err
	}

	reason = utils.SanitizeText(reason)
	if reason == "" {
		reason = DefaultRejectionReason
	}

	unlock, err := w.lockForReview(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	req, err := w.loadPending(ctx, requestID)
	if err != nil {
		return nil, err
	}

	now := w.now()
	if err := w.DB.RejectRequest(ctx, requestID, reason, actor.UserID, now); err != nil {
		if errors.Is(err, coadb.ErrNotPending) {
			return nil, apperr.InvalidState("request was reviewed concurrently")
		}
		return nil, fmt.Errorf("failed to reject request %s: %w", requestID, err)
	}

	req.Status = models.StatusRejected
	req.RejectionReason = reason
	req.ReviewedBy = actor.UserID
	req.ReviewedAt = &now

	w.Logger.LogWorkflow("REJECT", req.ID, fmt.Sprintf("rejected by %s: %s", actor.UserID, reason))
	if err := w.publish(ctx, models.WorkflowEvent{
		Type:      models.EventRequestRejected,
		RequestID: req.ID,
		EventID:   req.EventID,
		ActorID:   actor.UserID,
	}); err != nil {
		w.Logger.Warn("WORKFLOW", fmt.Sprintf("Failed to publish rejection of %s: %v", req.ID, err))
	}

	return req, nil
}
