package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coa-registry/internal/database"
	"coa-registry/internal/models"

	"github.com/uptrace/bun"
)

// ErrNotPending is returned when a conditional review update matched no row.
var ErrNotPending = errors.New("request is no longer pending")

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().Model(&event).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (d *DB) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	err := d.Bun.NewSelect().Model(&profile).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (d *DB) CreateRequest(ctx context.Context, req models.CoaRequest) error {
	_, err := d.Bun.NewInsert().Model(&req).Exec(ctx)
	return err
}

func (d *DB) GetRequest(ctx context.Context, id string) (*models.CoaRequest, error) {
	var req models.CoaRequest
	err := d.Bun.NewSelect().Model(&req).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func applyFilter(q *bun.SelectQuery, filter models.RequestFilter) *bun.SelectQuery {
	if filter.Status != "" {
		q = q.Where("r.status = ?", filter.Status)
	}
	if filter.EventID != "" {
		q = q.Where("r.event_id = ?", filter.EventID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	return q.OrderExpr("r.created_at ASC, r.id ASC")
}

func (d *DB) ListRequests(ctx context.Context, filter models.RequestFilter) ([]models.CoaRequest, error) {
	var reqs []models.CoaRequest
	q := d.Bun.NewSelect().Model(&reqs)
	err := applyFilter(q, filter).Scan(ctx)
	return reqs, err
}

func (d *DB) ListRequestsByCollector(ctx context.Context, collectorID string) ([]models.CoaRequest, error) {
	var reqs []models.CoaRequest
	q := d.Bun.NewSelect().Model(&reqs).
		Where("r.collector_id = ?", collectorID)
	err := applyFilter(q, models.RequestFilter{}).Scan(ctx)
	return reqs, err
}

// ListRequestsForArtist returns requests against events owned by artistID.
func (d *DB) ListRequestsForArtist(ctx context.Context, artistID string, filter models.RequestFilter) ([]models.CoaRequest, error) {
	var reqs []models.CoaRequest
	q := d.Bun.NewSelect().Model(&reqs).
		Join("JOIN events AS e ON e.id = r.event_id").
		Where("e.artist_id = ?", artistID)
	err := applyFilter(q, filter).Scan(ctx)
	return reqs, err
}

// CertificateQRs maps certificate ids to their public qr ids.
func (d *DB) CertificateQRs(ctx context.Context, certificateIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(certificateIDs))
	if len(certificateIDs) == 0 {
		return out, nil
	}

	var certs []models.Certificate
	err := d.Bun.NewSelect().
		Model(&certs).
		Column("id", "qr_id").
		Where("id IN (?)", bun.In(certificateIDs)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range certs {
		out[c.ID] = c.QRID
	}
	return out, nil
}

func (d *DB) GetCertificate(ctx context.Context, id string) (*models.Certificate, error) {
	var cert models.Certificate
	err := d.Bun.NewSelect().Model(&cert).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

// IssueCertificate inserts the certificate and moves the request from pending
// to approved in one transaction. It returns ErrNotPending if the request was
// reviewed concurrently, and wraps database.ErrCommitUnknown if COMMIT fails.
func (d *DB) IssueCertificate(ctx context.Context, cert models.Certificate, reviewerID string, reviewedAt time.Time) error {
	tx, err := d.Bun.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if _, err := tx.NewInsert().Model(&cert).Exec(ctx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to insert certificate: %w", err)
	}

	res, err := tx.NewUpdate().
		Model((*models.CoaRequest)(nil)).
		Set("status = ?", models.StatusApproved).
		Set("issued_coa_id = ?", cert.ID).
		Set("reviewed_by = ?", reviewerID).
		Set("reviewed_at = ?", reviewedAt).
		Where("id = ?", cert.SourceRequestID).
		Where("status = ?", models.StatusPending).
		Exec(ctx)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to update request: %w", err)
	}
	if rows, err := res.RowsAffected(); err != nil || rows == 0 {
		_ = tx.Rollback()
		return ErrNotPending
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", database.ErrCommitUnknown, err)
	}
	return nil
}

// RejectRequest conditionally moves a pending request to rejected.
func (d *DB) RejectRequest(ctx context.Context, id, reason, reviewerID string, reviewedAt time.Time) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.CoaRequest)(nil)).
		Set("status = ?", models.StatusRejected).
		Set("rejection_reason = ?", reason).
		Set("reviewed_by = ?", reviewerID).
		Set("reviewed_at = ?", reviewedAt).
		Where("id = ?", id).
		Where("status = ?", models.StatusPending).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotPending
	}
	return nil
}

func (d *DB) CreateIntent(ctx context.Context, intent models.IssuanceIntent) error {
	_, err := d.Bun.NewInsert().Model(&intent).Exec(ctx)
	return err
}

// ResolveIntent closes an open intent. Already-resolved intents are left alone.
func (d *DB) ResolveIntent(ctx context.Context, id string, status models.IntentStatus, note string) error {
	q := d.Bun.NewUpdate().
		Model((*models.IssuanceIntent)(nil)).
		Set("status = ?", status).
		Set("resolved_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("status = ?", models.IntentOpen)
	if note != "" {
		q = q.Set("note = ?", note)
	}
	_, err := q.Exec(ctx)
	return err
}

func (d *DB) ListOpenIntents(ctx context.Context, createdBefore time.Time) ([]models.IssuanceIntent, error) {
	var intents []models.IssuanceIntent
	err := d.Bun.NewSelect().
		Model(&intents).
		Where("status = ?", models.IntentOpen).
		Where("created_at < ?", createdBefore).
		OrderExpr("created_at ASC, id ASC").
		Scan(ctx)
	return intents, err
}

// RevokeCertificate marks an active certificate revoked.
func (d *DB) RevokeCertificate(ctx context.Context, id, reason string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Certificate)(nil)).
		Set("status = ?", models.CertificateRevoked).
		Set("revoked_reason = ?", reason).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("status = ?", models.CertificateActive).
		Exec(ctx)
	return err
}
