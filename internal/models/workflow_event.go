package models

import "time"

type WorkflowEventType string

const (
	EventRequestSubmitted   WorkflowEventType = "request.submitted"
	EventRequestApproved    WorkflowEventType = "request.approved"
	EventRequestRejected    WorkflowEventType = "request.rejected"
	EventCertificateIssued  WorkflowEventType = "certificate.issued"
	EventCertificateRevoked WorkflowEventType = "certificate.revoked"
	EventArtistApproved     WorkflowEventType = "artist.approved"
	EventArtistRejected     WorkflowEventType = "artist.rejected"
)

// WorkflowEvent is published on every state change and streamed to the staff
// review feed.
type WorkflowEvent struct {
	Type      WorkflowEventType `json:"type"`
	RequestID string            `json:"request_id,omitempty"`
	EventID   string            `json:"event_id,omitempty"`
	QRID      string            `json:"qr_id,omitempty"`
	ActorID   string            `json:"actor_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
