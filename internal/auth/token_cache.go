package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	m2mTokenKeyPrefix = "coa:m2m_token:"
	// A cached token is dropped this long before the identity provider
	// would expire it.
	tokenRefreshMargin = time.Minute
)

var errNoTokenCache = errors.New("token cache has no redis client")

// CachedToken is the JSON stored per client ID.
type CachedToken struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Usable reports whether the token can still be sent, leaving the refresh
// margin for the request in flight.
func (t *CachedToken) Usable(now time.Time) bool {
	return t != nil && t.AccessToken != "" && now.Add(tokenRefreshMargin).Before(t.ExpiresAt)
}

// RedisTokenCache shares client-credentials tokens between server replicas.
type RedisTokenCache struct {
	Client *redis.Client
}

func NewRedisTokenCache(client *redis.Client) *RedisTokenCache {
	return &RedisTokenCache{Client: client}
}

// Lookup returns the cached token for clientID. ok is false when nothing
// usable is cached.
func (c *RedisTokenCache) Lookup(ctx context.Context, clientID string) (token string, ok bool, err error) {
	if c == nil || c.Client == nil {
		return "", false, errNoTokenCache
	}

	raw, err := c.Client.Get(ctx, m2mTokenKeyPrefix+clientID).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cached token: %w", err)
	}

	var cached CachedToken
	if err := json.Unmarshal(raw, &cached); err != nil {
		return "", false, fmt.Errorf("corrupt cached token: %w", err)
	}
	if !cached.Usable(time.Now()) {
		return "", false, nil
	}
	return cached.AccessToken, true, nil
}

// Store keeps token until the provider's expiry; Redis drops the key at the
// same moment.
func (c *RedisTokenCache) Store(ctx context.Context, clientID, token string, expiresIn int) error {
	if c == nil || c.Client == nil {
		return errNoTokenCache
	}
	if expiresIn <= 0 {
		return nil
	}

	ttl := time.Duration(expiresIn) * time.Second
	raw, err := json.Marshal(CachedToken{AccessToken: token, ExpiresAt: time.Now().Add(ttl)})
	if err != nil {
		return err
	}
	if err := c.Client.Set(ctx, m2mTokenKeyPrefix+clientID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache token: %w", err)
	}
	return nil
}
