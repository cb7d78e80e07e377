package db

import (
	"context"
	"time"

	"coa-registry/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) CreateCertificate(ctx context.Context, cert models.Certificate) error {
	_, err := d.Bun.NewInsert().Model(&cert).Exec(ctx)
	return err
}

func (d *DB) GetCertificate(ctx context.Context, id string) (*models.Certificate, error) {
	var cert models.Certificate
	err := d.Bun.NewSelect().
		Model(&cert).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

func (d *DB) GetCertificateByQRID(ctx context.Context, qrID string) (*models.Certificate, error) {
	var cert models.Certificate
	err := d.Bun.NewSelect().
		Model(&cert).
		Where("qr_id = ?", qrID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

func (d *DB) ListCertificates(ctx context.Context, filter models.CertificateFilter) ([]models.Certificate, error) {
	var certs []models.Certificate
	q := d.Bun.NewSelect().Model(&certs)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.EventID != "" {
		q = q.Where("event_id = ?", filter.EventID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	err := q.OrderExpr("created_at ASC, id ASC").Scan(ctx)
	return certs, err
}

// UpdateCertificate writes the editable metadata. qr_id, status and the
// request link are never touched here.
func (d *DB) UpdateCertificate(ctx context.Context, cert models.Certificate) error {
	_, err := d.Bun.NewUpdate().
		Model(&cert).
		Column("comic_title", "issue_number", "signer_name", "signed_date", "signed_location",
			"witnessed_by", "serial_number", "event_id", "updated_at").
		Where("id = ?", cert.ID).
		Exec(ctx)
	return err
}

func (d *DB) SetImage(ctx context.Context, id, imagePath string) (int64, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Certificate)(nil)).
		Set("image_path = ?", imagePath).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RevokeCertificate only touches active certificates; zero rows means the
// certificate is missing or already revoked.
func (d *DB) RevokeCertificate(ctx context.Context, id, reason string) (int64, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Certificate)(nil)).
		Set("status = ?", models.CertificateRevoked).
		Set("revoked_reason = ?", reason).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("status = ?", models.CertificateActive).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d *DB) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &event, nil
}
