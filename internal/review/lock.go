package review

import (
	"context"
	"fmt"
	"time"

	"coa-registry/internal/logger"

	"github.com/go-redis/redis/v8"
)

const lockKeyPrefix = "review_lock:"

// Locker guards a request against two reviewers acting on it at once. The
// database status check remains authoritative; the lock only fails fast.
type Locker struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewLocker(client *redis.Client, ttl time.Duration, log *logger.Logger) *Locker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Locker{Client: client, TTL: ttl, Logger: log}
}

// LockRequest tries to take the review lock for requestID on behalf of
// reviewerID. It returns false if another reviewer holds it. Re-locking by the
// same reviewer succeeds.
func (l *Locker) LockRequest(ctx context.Context, requestID, reviewerID string) (bool, error) {
	key := lockKeyPrefix + requestID
	ok, err := l.Client.SetNX(ctx, key, reviewerID, l.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire review lock: %w", err)
	}
	if ok {
		return true, nil
	}

	holder, err := l.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		// expired between SETNX and GET
		return l.Client.SetNX(ctx, key, reviewerID, l.TTL).Result()
	}
	if err != nil {
		return false, fmt.Errorf("failed to read review lock: %w", err)
	}
	if holder == reviewerID {
		return true, l.Client.Expire(ctx, key, l.TTL).Err()
	}

	l.Logger.Debug("REVIEW", fmt.Sprintf("Request %s is locked by %s", requestID, holder))
	return false, nil
}

// UnlockRequest releases the lock if reviewerID still holds it.
func (l *Locker) UnlockRequest(ctx context.Context, requestID, reviewerID string) error {
	key := lockKeyPrefix + requestID
	val, err := l.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // already unlocked
	}
	if err != nil {
		return err
	}
	if val == reviewerID {
		return l.Client.Del(ctx, key).Err()
	}
	return nil
}

// Holder returns the reviewer currently holding the lock, or "".
func (l *Locker) Holder(ctx context.Context, requestID string) (string, error) {
	val, err := l.Client.Get(ctx, lockKeyPrefix+requestID).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}
