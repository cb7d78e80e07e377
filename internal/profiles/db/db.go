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

// UpsertProfile creates the profile on first login and refreshes the
// token-derived fields afterwards. The role column is never touched here.
func (d *DB) UpsertProfile(ctx context.Context, profile models.Profile) error {
	_, err := d.Bun.NewInsert().
		Model(&profile).
		On("CONFLICT (id) DO UPDATE").
		Set("email = EXCLUDED.email").
		Set("display_name = EXCLUDED.display_name").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
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

// ListProfiles returns all profiles, optionally only those holding role.
func (d *DB) ListProfiles(ctx context.Context, role *models.Role) ([]models.Profile, error) {
	var profiles []models.Profile
	q := d.Bun.NewSelect().Model(&profiles)
	if role != nil {
		if *role == models.RoleCollector {
			q = q.Where("role IS NULL")
		} else {
			q = q.Where("role = ?", *role)
		}
	}
	err := q.OrderExpr("created_at ASC, id ASC").Scan(ctx)
	return profiles, err
}

// UpdateRole sets the role, storing NULL for the collector role. It returns
// the number of rows changed.
func (d *DB) UpdateRole(ctx context.Context, id string, role models.Role) (int64, error) {
	q := d.Bun.NewUpdate().
		Model((*models.Profile)(nil)).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id)
	if role == models.RoleCollector {
		q = q.Set("role = NULL")
	} else {
		q = q.Set("role = ?", role)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d *DB) CountRole(ctx context.Context, role models.Role) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Profile)(nil)).
		Where("role = ?", role).
		Count(ctx)
}

func (d *DB) DeleteProfile(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Profile)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}
