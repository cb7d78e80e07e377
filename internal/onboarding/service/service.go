package onboarding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coa-registry/internal/apperr"
	"coa-registry/internal/auth"
	"coa-registry/internal/database"
	"coa-registry/internal/logger"
	"coa-registry/internal/models"
	onboardingdb "coa-registry/internal/onboarding/db"
	"coa-registry/internal/utils"
)

type ArtistRequestDBLayer interface {
	CreateArtistRequest(ctx context.Context, req models.ArtistRequest) error
	GetArtistRequest(ctx context.Context, id string) (*models.ArtistRequest, error)
	HasPending(ctx context.Context, userID string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]models.ArtistRequest, error)
	ListArtistRequests(ctx context.Context, status models.RequestStatus) ([]models.ArtistRequest, error)
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	ApproveArtistRequest(ctx context.Context, id, userID, reviewerID string, reviewedAt time.Time) error
	RejectArtistRequest(ctx context.Context, id, reviewerID string, reviewedAt time.Time) error
}

type Publisher interface {
	Publish(ctx context.Context, event models.WorkflowEvent) error
}

type OnboardingService struct {
	DB        ArtistRequestDBLayer
	Publisher Publisher
	Logger    *logger.Logger
}

func NewOnboardingService(db ArtistRequestDBLayer, publisher Publisher, log *logger.Logger) *OnboardingService {
	return &OnboardingService{DB: db, Publisher: publisher, Logger: log}
}

func (s *OnboardingService) publish(ctx context.Context, event models.WorkflowEvent) {
	if s.Publisher == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	if err := s.Publisher.Publish(ctx, event); err != nil {
		s.Logger.Warn("ONBOARDING", fmt.Sprintf("Failed to publish %s: %v", event.Type, err))
	}
}

// Submit files an application to become an artist. Callers who already hold a
// role, or who have an application pending, are turned away.
func (s *OnboardingService) Submit(ctx context.Context, actor models.Actor, in models.ArtistRequestInput) (*models.ArtistRequest, error) {
	if err := auth.EnsureAuthenticated(actor); err != nil {
		return nil, err
	}
	if auth.IsArtist(actor.Role) {
		return nil, apperr.InvalidState("already an artist")
	}
	if auth.IsStaff(actor.Role) {
		return nil, apperr.InvalidState("staff accounts cannot apply")
	}

	in.FullName = utils.SanitizeText(in.FullName)
	in.Message = utils.SanitizeText(in.Message)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	pending, err := s.DB.HasPending(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending applications: %w", err)
	}
	if pending {
		return nil, apperr.InvalidState("an application is already pending")
	}

	req := models.ArtistRequest{
		ID:           utils.GenerateUUID(),
		UserID:       actor.UserID,
		FullName:     in.FullName,
		PortfolioURL: in.PortfolioURL,
		Message:      in.Message,
		Status:       models.StatusPending,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.DB.CreateArtistRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to create artist request: %w", err)
	}

	s.Logger.Info("ONBOARDING", fmt.Sprintf("Artist application %s from %s", req.ID, actor.UserID))
	return &req, nil
}

func (s *OnboardingService) ListMine(ctx context.Context, actor models.Actor) ([]models.ArtistRequest, error) {
	if err := auth.EnsureAuthenticated(actor); err != nil {
		return nil, err
	}
	reqs, err := s.DB.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list artist requests: %w", err)
	}
	return reqs, nil
}

func (s *OnboardingService) List(ctx context.Context, actor models.Actor, status models.RequestStatus) ([]models.ArtistRequest, error) {
	if err := auth.EnsureStaff(actor); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, apperr.NewValidation("status", "must be one of: pending approved rejected")
	}
	reqs, err := s.DB.ListArtistRequests(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list artist requests: %w", err)
	}
	return reqs, nil
}

// Review approves or rejects a pending application. Approval grants the
// artist role in the same transaction as the status change.
func (s *OnboardingService) Review(ctx context.Context, actor models.Actor, id string, decision models.ReviewDecision) (*models.ArtistRequest, error) {
	if err := auth.EnsureStaff(actor); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(models.ReviewInput{Decision: decision}); err != nil {
		return nil, err
	}

	req, err := s.DB.GetArtistRequest(ctx, id)
	if database.IsNoRows(err) {
		return nil, apperr.NotFound("artist request", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load artist request %s: %w", id, err)
	}
	if req.Status != models.StatusPending {
		return nil, apperr.InvalidState(fmt.Sprintf("artist request is already %s", req.Status))
	}

	now := time.Now().UTC()
	if decision == models.DecisionReject {
		if err := s.DB.RejectArtistRequest(ctx, id, actor.UserID, now); err != nil {
			if errors.Is(err, onboardingdb.ErrNotPending) {
				return nil, apperr.InvalidState("artist request was reviewed concurrently")
			}
			return nil, fmt.Errorf("failed to reject artist request %s: %w", id, err)
		}
		req.Status = models.StatusRejected
		req.ReviewedBy = actor.UserID
		req.ReviewedAt = &now

		s.Logger.Info("ONBOARDING", fmt.Sprintf("Artist request %s rejected by %s", id, actor.UserID))
		s.publish(ctx, models.WorkflowEvent{Type: models.EventArtistRejected, RequestID: id, ActorID: actor.UserID})
		return req, nil
	}

	profile, err := s.DB.GetProfile(ctx, req.UserID)
	if database.IsNoRows(err) {
		return nil, apperr.InvalidState("the applicant no longer has a profile")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %s: %w", req.UserID, err)
	}
	if auth.IsStaff(profile.Role) {
		return nil, apperr.InvalidState("the applicant already holds a staff role")
	}

	err = s.DB.ApproveArtistRequest(ctx, id, req.UserID, actor.UserID, now)
	switch {
	case err == nil:
	case errors.Is(err, onboardingdb.ErrNotPending):
		return nil, apperr.InvalidState("artist request was reviewed concurrently")
	case errors.Is(err, onboardingdb.ErrProfileMissing):
		return nil, apperr.InvalidState("the applicant no longer has a profile")
	case errors.Is(err, database.ErrCommitUnknown):
		s.Logger.Error("ONBOARDING", fmt.Sprintf("Commit outcome unknown approving %s: %v", id, err))
		return nil, &apperr.DependencyFailure{
			Operation: "approve artist request " + id,
			Completed: "status and role update submitted",
			Failed:    "confirming the commit",
			Err:       err,
		}
	default:
		return nil, fmt.Errorf("failed to approve artist request %s: %w", id, err)
	}

	req.Status = models.StatusApproved
	req.ReviewedBy = actor.UserID
	req.ReviewedAt = &now

	s.Logger.LogSecurity("ROLE_GRANT", fmt.Sprintf("%s granted artist by %s via request %s", req.UserID, actor.UserID, id))
	s.publish(ctx, models.WorkflowEvent{Type: models.EventArtistApproved, RequestID: id, ActorID: actor.UserID})
	return req, nil
}
