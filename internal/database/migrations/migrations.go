package migrations

import (
	"context"
	"errors"
	"fmt"
	"os"

	"coa-registry/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/uptrace/bun"
)

type MigrateOptions struct {
	// MigrationsDir holds the numbered *.up.sql / *.down.sql files.
	MigrationsDir string
	// AutoMigrate lets the server apply pending migrations on startup.
	AutoMigrate bool
}

// Runner applies the SQL migrations to the PostgreSQL schema behind a bun DB.
type Runner struct {
	bunDB    *bun.DB
	options  MigrateOptions
	logger   *logger.Logger
	migrator *migrate.Migrate
}

func NewRunner(bunDB *bun.DB, opts MigrateOptions, log *logger.Logger) *Runner {
	return &Runner{bunDB: bunDB, options: opts, logger: log}
}

func (r *Runner) ensure() (*migrate.Migrate, error) {
	if r.migrator != nil {
		return r.migrator, nil
	}

	if _, err := os.Stat(r.options.MigrationsDir); err != nil {
		return nil, fmt.Errorf("migrations directory %s: %w", r.options.MigrationsDir, err)
	}
	// A dedicated connection keeps migrator.Close from closing the shared pool.
	conn, err := r.bunDB.DB.Conn(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get migration connection: %w", err)
	}
	driver, err := postgres.WithConnection(context.Background(), conn, &postgres.Config{})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create postgres migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+r.options.MigrationsDir, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	r.migrator = m
	return m, nil
}

// Version reports the applied schema version; 0 means nothing is applied.
func (r *Runner) Version() (uint, bool, error) {
	m, err := r.ensure()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// RunMigrations applies pending migrations when AutoMigrate is set. A dirty
// version left by a crashed run is forced clean first so Up can retry it.
func (r *Runner) RunMigrations() error {
	if !r.options.AutoMigrate {
		r.logger.Info("MIGRATE", "Auto-migrate disabled, skipping")
		return nil
	}

	m, err := r.ensure()
	if err != nil {
		return err
	}

	version, dirty, err := r.Version()
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		r.logger.Warn("MIGRATE", fmt.Sprintf("Schema version %d is dirty, forcing", version))
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to fix dirty migration: %w", err)
		}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if version, _, err = r.Version(); err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	r.logger.Info("MIGRATE", fmt.Sprintf("Schema at version %d", version))
	return nil
}

// MigrateDown rolls back every migration.
func (r *Runner) MigrateDown() error {
	m, err := r.ensure()
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// MigrateTo moves the schema up or down to version.
func (r *Runner) MigrateTo(version uint) error {
	m, err := r.ensure()
	if err != nil {
		return err
	}
	if err := m.Migrate(version); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration to version %d failed: %w", version, err)
	}
	return nil
}

// Close releases the migrator and its connection. The bun DB stays open.
func (r *Runner) Close() error {
	if r.migrator == nil {
		return nil
	}
	sourceErr, dbErr := r.migrator.Close()
	if sourceErr != nil {
		return sourceErr
	}
	return dbErr
}
