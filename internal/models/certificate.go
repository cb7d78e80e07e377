package models

import (
	"time"

	"github.com/uptrace/bun"
)

type CertificateStatus string

const (
	CertificateActive  CertificateStatus = "active"
	CertificateRevoked CertificateStatus = "revoked"
)

type Certificate struct {
	bun.BaseModel `bun:"table:certificates"`

	ID              string            `bun:"id,pk" json:"id"`
	QRID            string            `bun:"qr_id,unique,notnull" json:"qr_id"`
	ComicTitle      string            `bun:"comic_title,notnull" json:"comic_title"`
	IssueNumber     string            `bun:"issue_number,notnull" json:"issue_number"`
	SignerName      string            `bun:"signer_name,notnull" json:"signer_name"`
	SignedDate      time.Time         `bun:"signed_date,notnull" json:"signed_date"`
	SignedLocation  string            `bun:"signed_location" json:"signed_location"`
	WitnessedBy     string            `bun:"witnessed_by" json:"witnessed_by"`
	ImagePath       string            `bun:"image_path,nullzero" json:"image_path,omitempty"`
	SerialNumber    string            `bun:"serial_number,nullzero" json:"serial_number,omitempty"`
	Status          CertificateStatus `bun:"status,notnull" json:"status"`
	RevokedReason   string            `bun:"revoked_reason,nullzero" json:"revoked_reason,omitempty"`
	SourceRequestID string            `bun:"source_request_id,nullzero" json:"source_request_id,omitempty"`
	EventID         string            `bun:"event_id,nullzero" json:"event_id,omitempty"`
	CreatedAt       time.Time         `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt       time.Time         `bun:"updated_at,notnull" json:"updated_at"`

	ImageURL string `bun:"-" json:"image_url,omitempty"`
}

// CertificateInput is used by the manual creation path and by staff edits.
type CertificateInput struct {
	ComicTitle     string    `json:"comic_title" validate:"required,max=200"`
	IssueNumber    string    `json:"issue_number" validate:"required,max=32"`
	SignerName     string    `json:"signer_name" validate:"required,max=200"`
	SignedDate     time.Time `json:"signed_date" validate:"required"`
	SignedLocation string    `json:"signed_location" validate:"max=300"`
	WitnessedBy    string    `json:"witnessed_by" validate:"max=200"`
	SerialNumber   string    `json:"serial_number" validate:"max=64"`
	EventID        string    `json:"event_id" validate:"max=64"`
}

type ImageInput struct {
	ImagePath string `json:"image_path" validate:"required,max=512"`
}

type CertificateFilter struct {
	Status  CertificateStatus
	EventID string
	Limit   int
}

func (s CertificateStatus) Valid() bool {
	return s == CertificateActive || s == CertificateRevoked
}

type RevokeInput struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

// PublicCertificate is the only certificate shape served to anonymous callers.
type PublicCertificate struct {
	QRID           string            `json:"qr_id"`
	ComicTitle     string            `json:"comic_title"`
	IssueNumber    string            `json:"issue_number"`
	SignerName     string            `json:"signer_name"`
	EventName      string            `json:"event_name,omitempty"`
	SignedDate     time.Time         `json:"signed_date"`
	SignedLocation string            `json:"signed_location,omitempty"`
	WitnessedBy    string            `json:"witnessed_by,omitempty"`
	ImageURL       string            `json:"image_url,omitempty"`
	SerialNumber   string            `json:"serial_number,omitempty"`
	Status         CertificateStatus `json:"status"`
}
