package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Role is the access role stored on a profile. The empty role is a collector.
type Role string

const (
	RoleCollector Role = ""
	RoleOwner     Role = "owner"
	RoleAdmin     Role = "admin"
	RoleReviewer  Role = "reviewer"
	RoleArtist    Role = "artist"
)

// Valid reports whether r is one of the enumerated roles or the collector role.
func (r Role) Valid() bool {
	switch r {
	case RoleCollector, RoleOwner, RoleAdmin, RoleReviewer, RoleArtist:
		return true
	}
	return false
}

type Profile struct {
	bun.BaseModel `bun:"table:profiles"`

	ID          string    `bun:"id,pk" json:"id"`
	Email       string    `bun:"email,notnull" json:"email"`
	DisplayName string    `bun:"display_name" json:"display_name"`
	Role        Role      `bun:"role,nullzero" json:"role,omitempty"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// PublicName is the name shown on certificates witnessed by this profile.
func (p *Profile) PublicName() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Email
}

// Actor is the authenticated caller of a service operation. Role always comes
// from the profiles table, never from the token.
type Actor struct {
	UserID      string
	Email       string
	DisplayName string
	Role        Role
}

func (a Actor) Authenticated() bool {
	return a.UserID != ""
}

func ActorFromProfile(p *Profile) Actor {
	return Actor{
		UserID:      p.ID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		Role:        p.Role,
	}
}

type RoleUpdate struct {
	Role Role `json:"role"`
}
