package models

import (
	"time"

	"github.com/uptrace/bun"
)

type ArtistRequest struct {
	bun.BaseModel `bun:"table:artist_requests"`

	ID           string        `bun:"id,pk" json:"id"`
	UserID       string        `bun:"user_id,notnull" json:"user_id"`
	FullName     string        `bun:"full_name,notnull" json:"full_name"`
	PortfolioURL string        `bun:"portfolio_url,nullzero" json:"portfolio_url,omitempty"`
	Message      string        `bun:"message,nullzero" json:"message,omitempty"`
	Status       RequestStatus `bun:"status,notnull" json:"status"`
	ReviewedBy   string        `bun:"reviewed_by,nullzero" json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time    `bun:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt    time.Time     `bun:"created_at,notnull" json:"created_at"`
}

type ArtistRequestInput struct {
	FullName     string `json:"full_name" validate:"required,max=200"`
	PortfolioURL string `json:"portfolio_url" validate:"omitempty,url,max=500"`
	Message      string `json:"message" validate:"max=2000"`
}

type ReviewDecision string

const (
	DecisionApprove ReviewDecision = "approve"
	DecisionReject  ReviewDecision = "reject"
)

type ReviewInput struct {
	Decision ReviewDecision `json:"decision" validate:"required,oneof=approve reject"`
}
