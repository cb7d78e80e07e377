package analytics

import (
	"context"
	"time"

	"coa-registry/internal/models"

	"github.com/uptrace/bun"
)

// DB handles analytics database operations
type DB struct {
	bun *bun.DB
}

// NewDB creates a new analytics DB handler
func NewDB(db *bun.DB) *DB {
	return &DB{bun: db}
}

// StatusCount is one row of the per-status breakdown.
type StatusCount struct {
	Status models.RequestStatus `bun:"status"`
	Count  int                  `bun:"count"`
}

// RequestActivity is the minimum needed to bucket requests by day.
type RequestActivity struct {
	Status    models.RequestStatus `bun:"status"`
	CreatedAt time.Time            `bun:"created_at"`
}

func (db *DB) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	var event models.Event
	err := db.bun.NewSelect().
		Model(&event).
		Where("id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// GetStatusCountsByEventID counts requests per status for an event
func (db *DB) GetStatusCountsByEventID(ctx context.Context, eventID string) ([]StatusCount, error) {
	var counts []StatusCount
	err := db.bun.NewSelect().
		TableExpr("coa_requests").
		ColumnExpr("status").
		ColumnExpr("COUNT(*) AS count").
		Where("event_id = ?", eventID).
		GroupExpr("status").
		Scan(ctx, &counts)

	return counts, err
}

// GetActiveCertificateCountByEventID counts certificates still in force for an event
func (db *DB) GetActiveCertificateCountByEventID(ctx context.Context, eventID string) (int, error) {
	return db.bun.NewSelect().
		Model((*models.Certificate)(nil)).
		Where("event_id = ?", eventID).
		Where("status = ?", models.CertificateActive).
		Count(ctx)
}

// GetRequestActivityByEventID lists request timestamps for an event, oldest first
func (db *DB) GetRequestActivityByEventID(ctx context.Context, eventID string) ([]RequestActivity, error) {
	var rows []RequestActivity
	err := db.bun.NewSelect().
		TableExpr("coa_requests").
		ColumnExpr("status").
		ColumnExpr("created_at").
		Where("event_id = ?", eventID).
		OrderExpr("created_at ASC").
		Scan(ctx, &rows)

	return rows, err
}

// GetEventIDsByArtist lists the events an artist owns
func (db *DB) GetEventIDsByArtist(ctx context.Context, artistID string) ([]string, error) {
	var ids []string
	err := db.bun.NewSelect().
		Model((*models.Event)(nil)).
		Column("id").
		Where("artist_id = ?", artistID).
		OrderExpr("start_date DESC, id ASC").
		Scan(ctx, &ids)

	return ids, err
}
