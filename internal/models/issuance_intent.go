package models

import (
	"time"

	"github.com/uptrace/bun"
)

type IntentStatus string

const (
	IntentOpen      IntentStatus = "open"
	IntentCompleted IntentStatus = "completed"
	IntentAbandoned IntentStatus = "abandoned"
)

// IssuanceIntent is written before a certificate is issued and resolved after
// the request is back-filled. Open intents older than the sweep age are
// reconciled by the sweeper.
type IssuanceIntent struct {
	bun.BaseModel `bun:"table:issuance_intents"`

	ID            string       `bun:"id,pk" json:"id"`
	RequestID     string       `bun:"request_id,notnull" json:"request_id"`
	CertificateID string       `bun:"certificate_id,notnull" json:"certificate_id"`
	QRID          string       `bun:"qr_id,notnull" json:"qr_id"`
	Status        IntentStatus `bun:"status,notnull" json:"status"`
	Note          string       `bun:"note,nullzero" json:"note,omitempty"`
	CreatedAt     time.Time    `bun:"created_at,notnull" json:"created_at"`
	ResolvedAt    *time.Time   `bun:"resolved_at" json:"resolved_at,omitempty"`
}

// SweepReport summarizes one reconciliation pass.
type SweepReport struct {
	Examined  int      `json:"examined"`
	Completed int      `json:"completed"`
	Abandoned int      `json:"abandoned"`
	Orphaned  []string `json:"orphaned,omitempty"`
}
