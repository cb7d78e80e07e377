package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"coa-registry/internal/config"
	"coa-registry/internal/database"
	"coa-registry/internal/database/migrations"
	"coa-registry/internal/logger"
	"coa-registry/internal/models"
	profile_db "coa-registry/internal/profiles/db"
	profiles "coa-registry/internal/profiles/service"

	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
)

const usage = `usage:
  coa-admin bootstrap-owner --user <subject> --email <email> [--name <display name>]
  coa-admin migrate up|down|status|<version>`

func main() {
	log := logger.NewWithWriter(os.Stderr)
	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	}
	cfg := config.Load()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx := context.Background()
	db, err := database.OpenPGDriver(ctx, cfg.Database.DSN)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer db.Close()

	switch os.Args[1] {
	case "bootstrap-owner":
		err = runBootstrapOwner(ctx, db, log, os.Args[2:])
	case "migrate":
		err = runMigrate(db, cfg.Database, log, os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Error("ADMIN", err.Error())
		os.Exit(1)
	}
}

func runBootstrapOwner(ctx context.Context, db *bun.DB, log *logger.Logger, args []string) error {
	fs := flag.NewFlagSet("bootstrap-owner", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	userID := fs.String("user", "", "identity-provider subject of the new owner")
	email := fs.String("email", "", "email of the new owner")
	name := fs.String("name", "", "display name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*userID) == "" || strings.TrimSpace(*email) == "" {
		return fmt.Errorf("both --user and --email are required")
	}

	svc := profiles.NewProfileService(&profile_db.DB{Bun: db}, nil, log)
	profile, err := svc.BootstrapOwner(ctx, models.Identity{Subject: *userID, Email: *email, Name: *name})
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s) is now the owner\n", profile.ID, profile.Email)
	return nil
}

func runMigrate(db *bun.DB, cfg config.DatabaseConfig, log *logger.Logger, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("migrate needs one of: up, down, status or a version")
	}

	runner := migrations.NewRunner(db, migrations.MigrateOptions{
		MigrationsDir: cfg.MigrationsDir,
		AutoMigrate:   true,
	}, log)
	defer runner.Close()

	switch args[0] {
	case "up":
		return runner.RunMigrations()
	case "down":
		return runner.MigrateDown()
	case "status":
		version, dirty, err := runner.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version %d (dirty: %t)\n", version, dirty)
		return nil
	default:
		version, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("unknown direction %q", args[0])
		}
		return runner.MigrateTo(uint(version))
	}
}
