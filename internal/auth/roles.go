package auth

import (
	"coa-registry/internal/apperr"
	"coa-registry/internal/models"
)

// IsStaff is true for owner, admin and reviewer.
func IsStaff(role models.Role) bool {
	switch role {
	case models.RoleOwner, models.RoleAdmin, models.RoleReviewer:
		return true
	}
	return false
}

func IsArtist(role models.Role) bool {
	return role == models.RoleArtist
}

// CanManageRoles is true for roles allowed to reassign roles and delete accounts.
func CanManageRoles(role models.Role) bool {
	return role == models.RoleOwner || role == models.RoleAdmin
}

func EnsureAuthenticated(actor models.Actor) error {
	if !actor.Authenticated() {
		return apperr.ErrUnauthenticated
	}
	return nil
}

func EnsureStaff(actor models.Actor) error {
	if err := EnsureAuthenticated(actor); err != nil {
		return err
	}
	if !IsStaff(actor.Role) {
		return apperr.Forbidden("staff role required")
	}
	return nil
}

func EnsureArtistOrStaff(actor models.Actor) error {
	if err := EnsureAuthenticated(actor); err != nil {
		return err
	}
	if !IsStaff(actor.Role) && !IsArtist(actor.Role) {
		return apperr.Forbidden("artist or staff role required")
	}
	return nil
}
