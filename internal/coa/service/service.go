package coa

import (
	"context"
	"time"

	"coa-registry/internal/logger"
	"coa-registry/internal/models"
)

// DefaultRejectionReason is stored when a reviewer rejects without a reason.
const DefaultRejectionReason = "The submitted proof could not be verified."

// OrphanedIssuanceReason is recorded on certificates revoked by the sweep.
const OrphanedIssuanceReason = "orphaned issuance"

const maxQRAttempts = 3

type RequestDBLayer interface {
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	CreateRequest(ctx context.Context, req models.CoaRequest) error
	GetRequest(ctx context.Context, id string) (*models.CoaRequest, error)
	ListRequests(ctx context.Context, filter models.RequestFilter) ([]models.CoaRequest, error)
	ListRequestsByCollector(ctx context.Context, collectorID string) ([]models.CoaRequest, error)
	ListRequestsForArtist(ctx context.Context, artistID string, filter models.RequestFilter) ([]models.CoaRequest, error)
	CertificateQRs(ctx context.Context, certificateIDs []string) (map[string]string, error)
	GetCertificate(ctx context.Context, id string) (*models.Certificate, error)
	IssueCertificate(ctx context.Context, cert models.Certificate, reviewerID string, reviewedAt time.Time) error
	RejectRequest(ctx context.Context, id, reason, reviewerID string, reviewedAt time.Time) error
	CreateIntent(ctx context.Context, intent models.IssuanceIntent) error
	ResolveIntent(ctx context.Context, id string, status models.IntentStatus, note string) error
	ListOpenIntents(ctx context.Context, createdBefore time.Time) ([]models.IssuanceIntent, error)
	RevokeCertificate(ctx context.Context, id, reason string) error
}

// ReviewLocker serializes reviewers on a single request.
type ReviewLocker interface {
	LockRequest(ctx context.Context, requestID, reviewerID string) (bool, error)
	UnlockRequest(ctx context.Context, requestID, reviewerID string) error
	Holder(ctx context.Context, requestID string) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, event models.WorkflowEvent) error
}

// ImageResolver turns stored object paths into URLs.
type ImageResolver interface {
	ProofURL(ctx context.Context, objectPath string) (string, error)
	ImageURL(objectPath string) string
}

// CacheInvalidator drops cached public views of a certificate.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, qrID string)
}

// Workflow owns the request lifecycle: submission, review and issuance.
type Workflow struct {
	DB        RequestDBLayer
	Locker    ReviewLocker
	Publisher Publisher
	Images    ImageResolver
	Cache     CacheInvalidator
	Logger    *logger.Logger
	now       func() time.Time
}

func NewWorkflow(db RequestDBLayer, locker ReviewLocker, publisher Publisher, images ImageResolver, log *logger.Logger) *Workflow {
	return &Workflow{
		DB:        db,
		Locker:    locker,
		Publisher: publisher,
		Images:    images,
		Logger:    log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (w *Workflow) publish(ctx context.Context, event models.WorkflowEvent) error {
	if w.Publisher == nil {
		return nil
	}
	event.Timestamp = w.now()
	return w.Publisher.Publish(ctx, event)
}
