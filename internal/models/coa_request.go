package models

import (
	"time"

	"github.com/uptrace/bun"
)

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// Terminal reports whether no further transition is allowed.
func (s RequestStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

func (s RequestStatus) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

type CoaRequest struct {
	bun.BaseModel `bun:"table:coa_requests,alias:r"`

	ID              string        `bun:"id,pk" json:"id"`
	Status          RequestStatus `bun:"status,notnull" json:"status"`
	ComicTitle      string        `bun:"comic_title,notnull" json:"comic_title"`
	IssueNumber     string        `bun:"issue_number,notnull" json:"issue_number"`
	CollectorID     string        `bun:"collector_id,notnull" json:"collector_id"`
	EventID         string        `bun:"event_id,notnull" json:"event_id"`
	Attested        bool          `bun:"attested,notnull" json:"attested"`
	WitnessName     string        `bun:"witness_name,nullzero" json:"witness_name,omitempty"`
	ProofImagePath  string        `bun:"proof_image_path,nullzero" json:"proof_image_path,omitempty"`
	BookImagePath   string        `bun:"book_image_path,nullzero" json:"book_image_path,omitempty"`
	RejectionReason string        `bun:"rejection_reason,nullzero" json:"rejection_reason,omitempty"`
	IssuedCoaID     string        `bun:"issued_coa_id,nullzero" json:"issued_coa_id,omitempty"`
	ReviewedBy      string        `bun:"reviewed_by,nullzero" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time    `bun:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt       time.Time     `bun:"created_at,notnull" json:"created_at"`
}

type SubmitRequestInput struct {
	ComicTitle     string `json:"comic_title" validate:"required,max=200"`
	IssueNumber    string `json:"issue_number" validate:"required,max=32"`
	Attested       bool   `json:"attested"`
	WitnessName    string `json:"witness_name" validate:"max=120"`
	ProofImagePath string `json:"proof_image_path" validate:"max=512"`
	BookImagePath  string `json:"book_image_path" validate:"max=512"`
}

type RejectInput struct {
	Reason string `json:"reason" validate:"max=1000"`
}

type RequestFilter struct {
	Status  RequestStatus
	EventID string
	Limit   int
}

// RequestView is the staff-facing shape of a request with resolvable image URLs.
type RequestView struct {
	CoaRequest
	ProofImageURL string `json:"proof_image_url,omitempty"`
	BookImageURL  string `json:"book_image_url,omitempty"`
	CertificateQR string `json:"certificate_qr_id,omitempty"`
	// ReviewingBy is the staff member holding the review lock on a pending request.
	ReviewingBy string `json:"reviewing_by,omitempty"`
}
