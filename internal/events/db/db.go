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

func (d *DB) CreateEvent(ctx context.Context, event models.Event) error {
	_, err := d.Bun.NewInsert().Model(&event).Exec(ctx)
	return err
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

func (d *DB) GetEventBySlug(ctx context.Context, slug string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("slug = ?", slug).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// ListEvents returns every event, or only those owned by artistID when set.
func (d *DB) ListEvents(ctx context.Context, artistID string) ([]models.Event, error) {
	var events []models.Event
	q := d.Bun.NewSelect().Model(&events)
	if artistID != "" {
		q = q.Where("artist_id = ?", artistID)
	}
	err := q.OrderExpr("start_date DESC, id ASC").Scan(ctx)
	return events, err
}

// UpdateEvent writes the mutable columns. The slug is never updated.
func (d *DB) UpdateEvent(ctx context.Context, event models.Event) error {
	_, err := d.Bun.NewUpdate().
		Model(&event).
		Column("name", "artist_name", "artist_id", "location", "start_date", "end_date", "is_active", "updated_at").
		Where("id = ?", event.ID).
		Exec(ctx)
	return err
}

func (d *DB) SetActive(ctx context.Context, id string, active bool) (int64, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("is_active = ?", active).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d *DB) DeleteEvent(ctx context.Context, id string) (int64, error) {
	res, err := d.Bun.NewDelete().
		Model((*models.Event)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
