package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	certificates "coa-registry/internal/certificates/service"
	coa_db "coa-registry/internal/coa/db"
	coa "coa-registry/internal/coa/service"
	"coa-registry/internal/config"
	"coa-registry/internal/database"
	"coa-registry/internal/kafka"
	"coa-registry/internal/logger"

	"github.com/joho/godotenv"
)

func main() {
	log := logger.NewWithWriter(os.Stderr)
	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	}
	cfg := config.Load()

	once := flag.Bool("once", false, "run a single sweep, print the report and exit")
	olderThan := flag.Duration("older-than", cfg.Sweep.IntentAge, "only reconcile intents opened before now minus this")
	interval := flag.Duration("interval", cfg.Sweep.Interval, "time between sweeps")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.OpenPGDriver(ctx, cfg.Database.DSN)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer db.Close()

	workflow := coa.NewWorkflow(&coa_db.DB{Bun: db}, nil, nil, nil, log)

	if client, err := database.ConnectRedis(ctx, cfg.Redis, log); err != nil {
		log.Warn("REDIS", "Running without verification cache invalidation")
	} else {
		defer client.Close()
		workflow.Cache = certificates.NewRedisVerifyCache(client, cfg.Sweep.CacheTTL, log)
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics, log)
		defer producer.Close()
		workflow.Publisher = producer
	}

	if !*once {
		log.Info("SWEEP", fmt.Sprintf("Sweeping every %s for intents older than %s", *interval, *olderThan))
		workflow.RunSweeper(ctx, *interval, *olderThan)
		return
	}

	report, err := workflow.SweepIntents(ctx, *olderThan)
	if err != nil {
		log.Error("SWEEP", err.Error())
	}
	if report != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
	}
	if err != nil {
		os.Exit(1)
	}
}
