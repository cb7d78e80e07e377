package certificates

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"coa-registry/internal/logger"
	"coa-registry/internal/models"

	"github.com/go-redis/redis/v8"
)

// VerifyKeyPrefix prefixes the Redis key holding a cached public certificate
const VerifyKeyPrefix = "coa_verify:"

const DefaultVerifyTTL = 5 * time.Minute

// VerifyCache holds public certificate views keyed by qr_id. A cache miss or a
// cache error always falls through to the database.
type VerifyCache interface {
	Get(ctx context.Context, qrID string) (*models.PublicCertificate, bool)
	Set(ctx context.Context, cert models.PublicCertificate)
	Invalidate(ctx context.Context, qrID string)
}

type RedisVerifyCache struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewRedisVerifyCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisVerifyCache {
	if ttl <= 0 {
		ttl = DefaultVerifyTTL
	}
	return &RedisVerifyCache{Client: client, TTL: ttl, Logger: log}
}

func (c *RedisVerifyCache) Get(ctx context.Context, qrID string) (*models.PublicCertificate, bool) {
	if c == nil || c.Client == nil {
		return nil, false
	}

	raw, err := c.Client.Get(ctx, VerifyKeyPrefix+qrID).Result()
	if err == redis.Nil {
		return nil, false
	} else if err != nil {
		c.Logger.Warn("CACHE", fmt.Sprintf("Failed to read verification cache for %s: %v", qrID, err))
		return nil, false
	}

	var cert models.PublicCertificate
	if err := json.Unmarshal([]byte(raw), &cert); err != nil {
		c.Logger.Warn("CACHE", fmt.Sprintf("Dropping unreadable cache entry for %s: %v", qrID, err))
		c.Invalidate(ctx, qrID)
		return nil, false
	}
	return &cert, true
}

func (c *RedisVerifyCache) Set(ctx context.Context, cert models.PublicCertificate) {
	if c == nil || c.Client == nil {
		return
	}

	raw, err := json.Marshal(cert)
	if err != nil {
		return
	}
	if err := c.Client.Set(ctx, VerifyKeyPrefix+cert.QRID, raw, c.TTL).Err(); err != nil {
		c.Logger.Warn("CACHE", fmt.Sprintf("Failed to cache certificate %s: %v", cert.QRID, err))
	}
}

func (c *RedisVerifyCache) Invalidate(ctx context.Context, qrID string) {
	if c == nil || c.Client == nil {
		return
	}
	if err := c.Client.Del(ctx, VerifyKeyPrefix+qrID).Err(); err != nil {
		c.Logger.Warn("CACHE", fmt.Sprintf("Failed to invalidate certificate %s: %v", qrID, err))
	}
}
