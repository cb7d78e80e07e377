package database

import (
	"context"
	"fmt"
	"time"

	"coa-registry/internal/config"
	"coa-registry/internal/logger"

	"github.com/go-redis/redis/v8"
)

// ConnectRedis creates the shared Redis client and verifies it can read and
// write before the server starts.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: 10,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Error("REDIS", fmt.Sprintf("Failed to connect to Redis at %s: %v", cfg.Addr, err))
		return nil, err
	}

	testKey := "coa-registry:healthcheck"
	if err := client.Set(ctx, testKey, "ok", 5*time.Second).Err(); err != nil {
		log.Error("REDIS", fmt.Sprintf("Failed to write test value to Redis: %v", err))
		return nil, err
	}

	log.Info("REDIS", fmt.Sprintf("Connected to Redis at %s (DB %d)", cfg.Addr, cfg.DB))
	return client, nil
}
