package profiles

import (
	"context"
	"fmt"
	"time"

	"coa-registry/internal/apperr"
	"coa-registry/internal/auth"
	"coa-registry/internal/database"
	"coa-registry/internal/logger"
	"coa-registry/internal/models"
	"coa-registry/internal/utils"
)

type ProfileDBLayer interface {
	UpsertProfile(ctx context.Context, profile models.Profile) error
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	ListProfiles(ctx context.Context, role *models.Role) ([]models.Profile, error)
	UpdateRole(ctx context.Context, id string, role models.Role) (int64, error)
	CountRole(ctx context.Context, role models.Role) (int, error)
	DeleteProfile(ctx context.Context, id string) error
}

// IdentityAdmin removes accounts at the identity provider.
type IdentityAdmin interface {
	DeleteUser(ctx context.Context, userID string) error
}

type ProfileService struct {
	DB       ProfileDBLayer
	Identity IdentityAdmin
	Logger   *logger.Logger
}

func NewProfileService(db ProfileDBLayer, identity IdentityAdmin, log *logger.Logger) *ProfileService {
	return &ProfileService{DB: db, Identity: identity, Logger: log}
}

// EnsureProfile is called on every authenticated request. The first call for
// a subject creates a collector profile.
func (s *ProfileService) EnsureProfile(ctx context.Context, id models.Identity) (*models.Profile, error) {
	if id.Subject == "" {
		return nil, apperr.ErrUnauthenticated
	}

	existing, err := s.DB.GetProfile(ctx, id.Subject)
	if err == nil && existing.Email == id.Email && (id.Name == "" || existing.DisplayName == id.Name) {
		return existing, nil
	}
	if err != nil && !database.IsNoRows(err) {
		return nil, fmt.Errorf("failed to load profile %s: %w", id.Subject, err)
	}

	now := time.Now().UTC()
	profile := models.Profile{
		ID:          id.Subject,
		Email:       id.Email,
		DisplayName: utils.SanitizeText(id.Name),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if existing != nil && profile.DisplayName == "" {
		profile.DisplayName = existing.DisplayName
	}

	if err := s.DB.UpsertProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to save profile %s: %w", id.Subject, err)
	}
	if existing == nil {
		s.Logger.Info("PROFILES", fmt.Sprintf("Created profile for %s", id.Subject))
	}

	return s.DB.GetProfile(ctx, id.Subject)
}

func (s *ProfileService) GetProfile(ctx context.Context, actor models.Actor, userID string) (*models.Profile, error) {
	if err := auth.EnsureAuthenticated(actor); err != nil {
		return nil, err
	}
	if actor.UserID != userID && !auth.IsStaff(actor.Role) {
		return nil, apperr.Forbidden("cannot view another user's profile")
	}

	profile, err := s.DB.GetProfile(ctx, userID)
	if database.IsNoRows(err) {
		return nil, apperr.NotFound("profile", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %s: %w", userID, err)
	}
	return profile, nil
}

func (s *ProfileService) ListProfiles(ctx context.Context, actor models.Actor, role *models.Role) ([]models.Profile, error) {
	if err := auth.EnsureStaff(actor); err != nil {
		return nil, err
	}
	if role != nil && !role.Valid() {
		return nil, apperr.NewValidation("role", "must be one of: owner admin reviewer artist or empty")
	}
	return s.DB.ListProfiles(ctx, role)
}

// BootstrapOwner grants the owner role to id when no owner exists yet. It is
// the only way to create the first owner.
func (s *ProfileService) BootstrapOwner(ctx context.Context, id models.Identity) (*models.Profile, error) {
	owners, err := s.DB.CountRole(ctx, models.RoleOwner)
	if err != nil {
		return nil, fmt.Errorf("failed to count owners: %w", err)
	}
	if owners > 0 {
		return nil, apperr.InvalidState("an owner already exists")
	}

	profile, err := s.EnsureProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.DB.UpdateRole(ctx, profile.ID, models.RoleOwner); err != nil {
		return nil, fmt.Errorf("failed to grant owner to %s: %w", profile.ID, err)
	}

	s.Logger.LogSecurity("OWNER_BOOTSTRAP", fmt.Sprintf("Granted owner to %s", profile.ID))
	profile.Role = models.RoleOwner
	return profile, nil
}

// SetRole reassigns a role. Owners and admins may do this; only an owner may
// grant or revoke the owner role, and the last owner cannot be demoted.
func (s *ProfileService) SetRole(ctx context.Context, actor models.Actor, userID string, role models.Role) (*models.Profile, error) {
	if err := auth.EnsureAuthenticated(actor); err != nil {
		return nil, err
	}
	if !auth.CanManageRoles(actor.Role) {
		return nil, apperr.Forbidden("owner or admin role required")
	}
	if !role.Valid() {
		return nil, apperr.NewValidation("role", "must be one of: owner admin reviewer artist or empty")
	}

	target, err := s.DB.GetProfile(ctx, userID)
	if database.IsNoRows(err) {
		return nil, apperr.NotFound("profile", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %s: %w", userID, err)
	}

	if (role == models.RoleOwner || target.Role == models.RoleOwner) && actor.Role != models.RoleOwner {
		return nil, apperr.Forbidden("only an owner can grant or revoke the owner role")
	}
	if target.Role == role {
		return target, nil
	}

	if target.Role == models.RoleOwner {
		owners, err := s.DB.CountRole(ctx, models.RoleOwner)
		if err != nil {
			return nil, fmt.Errorf("failed to count owners: %w", err)
		}
		if owners <= 1 {
			return nil, apperr.InvalidState("cannot remove the last owner")
		}
	}

	rows, err := s.DB.UpdateRole(ctx, userID, role)
	if err != nil {
		return nil, fmt.Errorf("failed to update role for %s: %w", userID, err)
	}
	if rows == 0 {
		return nil, apperr.NotFound("profile", userID)
	}

	s.Logger.LogSecurity("ROLE_CHANGED", fmt.Sprintf("%s set role of %s from %q to %q", actor.UserID, userID, target.Role, role))

	target.Role = role
	return target, nil
}

// DeleteAccount removes the identity-provider account first, then the
// profile row. If the row cannot be removed the account is already gone, so
// the caller gets a DependencyFailure rather than an error or a success.
func (s *ProfileService) DeleteAccount(ctx context.Context, actor models.Actor, userID string) error {
	if err := auth.EnsureAuthenticated(actor); err != nil {
		return err
	}
	if !auth.CanManageRoles(actor.Role) {
		return apperr.Forbidden("owner or admin role required")
	}
	if actor.UserID == userID {
		return apperr.InvalidState("cannot delete your own account")
	}

	target, err := s.DB.GetProfile(ctx, userID)
	if database.IsNoRows(err) {
		return apperr.NotFound("profile", userID)
	}
	if err != nil {
		return fmt.Errorf("failed to load profile %s: %w", userID, err)
	}
	if target.Role == models.RoleOwner && actor.Role != models.RoleOwner {
		return apperr.Forbidden("only an owner can delete an owner")
	}

	if err := s.Identity.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete identity account %s: %w", userID, err)
	}

	if err := s.DB.DeleteProfile(ctx, userID); err != nil {
		s.Logger.Warn("PROFILES", fmt.Sprintf("Identity account %s deleted but profile cleanup failed: %v", userID, err))
		return &apperr.DependencyFailure{
			Operation: "delete account",
			Completed: "deleted",
			Failed:    "cleanup warning: profile removal",
			Err:       err,
		}
	}

	s.Logger.LogSecurity("ACCOUNT_DELETED", fmt.Sprintf("%s deleted account %s", actor.UserID, userID))
	return nil
}
