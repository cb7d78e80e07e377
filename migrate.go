package main

import (
	"context"
	"fmt"
	"time"

	"coa-registry/internal/config"
	"coa-registry/internal/database/migrations"
	"coa-registry/internal/logger"
	"coa-registry/internal/models"

	"github.com/uptrace/bun"
)

const demoEventSlug = "demo-signing"

// prepareSchema brings the schema up to date and, when SEED_DATA is set,
// inserts a demo artist and an active event to submit requests against.
func prepareSchema(ctx context.Context, db *bun.DB, cfg config.DatabaseConfig, log *logger.Logger) error {
	runner := migrations.NewRunner(db, migrations.MigrateOptions{
		MigrationsDir: cfg.MigrationsDir,
		AutoMigrate:   cfg.AutoMigrate,
	}, log)
	defer runner.Close()

	if err := runner.RunMigrations(); err != nil {
		return err
	}

	if !cfg.SeedData {
		return nil
	}
	log.Info("SEED", "Seeding demo data")
	return seedData(ctx, db)
}

func seedData(ctx context.Context, db *bun.DB) error {
	now := time.Now().UTC()

	artist := models.Profile{
		ID:          "demo-artist",
		Email:       "artist@example.com",
		DisplayName: "Demo Artist",
		Role:        models.RoleArtist,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := db.NewInsert().Model(&artist).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("failed to seed artist profile: %w", err)
	}

	event := models.Event{
		ID:         "demo-event",
		Slug:       demoEventSlug,
		ArtistName: artist.DisplayName,
		ArtistID:   artist.ID,
		Name:       "Demo Signing Session",
		Location:   "Booth 1",
		StartDate:  now.Truncate(24 * time.Hour),
		EndDate:    now.Truncate(24*time.Hour).AddDate(0, 0, 3),
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := db.NewInsert().Model(&event).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("failed to seed event: %w", err)
	}
	return nil
}
