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

var (
	// ErrNotPending is returned when a conditional review update matched no
	// pending row.
	ErrNotPending = errors.New("artist request is not pending")
	// ErrProfileMissing is returned when approval finds no profile to promote.
	ErrProfileMissing = errors.New("requester profile not found")
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) CreateArtistRequest(ctx context.Context, req models.ArtistRequest) error {
	_, err := d.Bun.NewInsert().Model(&req).Exec(ctx)
	return err
}

func (d *DB) GetArtistRequest(ctx context.Context, id string) (*models.ArtistRequest, error) {
	var req models.ArtistRequest
	err := d.Bun.NewSelect().
		Model(&req).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (d *DB) HasPending(ctx context.Context, userID string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.ArtistRequest)(nil)).
		Where("user_id = ?", userID).
		Where("status = ?", models.StatusPending).
		Exists(ctx)
}

func (d *DB) ListByUser(ctx context.Context, userID string) ([]models.ArtistRequest, error) {
	var reqs []models.ArtistRequest
	err := d.Bun.NewSelect().
		Model(&reqs).
		Where("user_id = ?", userID).
		OrderExpr("created_at ASC, id ASC").
		Scan(ctx)
	return reqs, err
}

func (d *DB) ListArtistRequests(ctx context.Context, status models.RequestStatus) ([]models.ArtistRequest, error) {
	var reqs []models.ArtistRequest
	q := d.Bun.NewSelect().Model(&reqs)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.OrderExpr("created_at ASC, id ASC").Scan(ctx)
	return reqs, err
}

func (d *DB) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	err := d.Bun.NewSelect().
		Model(&profile).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// ApproveArtistRequest marks the request approved and grants the artist role
// in one transaction. A COMMIT error is wrapped with database.ErrCommitUnknown.
func (d *DB) ApproveArtistRequest(ctx context.Context, id, userID, reviewerID string, reviewedAt time.Time) error {
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

	res, err := tx.NewUpdate().
		Model((*models.ArtistRequest)(nil)).
		Set("status = ?", models.StatusApproved).
		Set("reviewed_by = ?", reviewerID).
		Set("reviewed_at = ?", reviewedAt).
		Where("id = ?", id).
		Where("status = ?", models.StatusPending).
		Exec(ctx)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to update artist request: %w", err)
	}
	if rows, err := res.RowsAffected(); err != nil || rows == 0 {
		_ = tx.Rollback()
		return ErrNotPending
	}

	res, err = tx.NewUpdate().
		Model((*models.Profile)(nil)).
		Set("role = ?", models.RoleArtist).
		Set("updated_at = ?", reviewedAt).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to grant artist role: %w", err)
	}
	if rows, err := res.RowsAffected(); err != nil || rows == 0 {
		_ = tx.Rollback()
		return ErrProfileMissing
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", database.ErrCommitUnknown, err)
	}
	return nil
}

// RejectArtistRequest only changes the request; the profile is untouched.
func (d *DB) RejectArtistRequest(ctx context.Context, id, reviewerID string, reviewedAt time.Time) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.ArtistRequest)(nil)).
		Set("status = ?", models.StatusRejected).
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
