package review

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"coa-registry/internal/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a Redis client backed by miniredis
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	if err := client.Ping(context.Background()).Err(); err != nil {
		mr.Close()
		t.Fatalf("Failed to connect to miniredis: %v", err)
	}

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestLockRequest_SecondReviewerBlocked(t *testing.T) {
	client, _ := setupTestRedis(t)
	l := NewLocker(client, time.Minute, logger.Discard())
	ctx := context.Background()

	ok, err := l.LockRequest(ctx, "req-1", "reviewer-a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.LockRequest(ctx, "req-1", "reviewer-b")
	require.NoError(t, err)
	assert.False(t, ok, "a second reviewer must not take a held lock")

	ok, err = l.LockRequest(ctx, "req-1", "reviewer-a")
	require.NoError(t, err)
	assert.True(t, ok, "the holder can re-enter")

	holder, err := l.Holder(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, "reviewer-a", holder)
}

func TestUnlockRequest_OnlyHolderReleases(t *testing.T) {
	client, _ := setupTestRedis(t)
	l := NewLocker(client, time.Minute, logger.Discard())
	ctx := context.Background()

	_, err := l.LockRequest(ctx, "req-2", "reviewer-a")
	require.NoError(t, err)

	require.NoError(t, l.UnlockRequest(ctx, "req-2", "reviewer-b"))
	holder, _ := l.Holder(ctx, "req-2")
	assert.Equal(t, "reviewer-a", holder)

	require.NoError(t, l.UnlockRequest(ctx, "req-2", "reviewer-a"))
	holder, _ = l.Holder(ctx, "req-2")
	assert.Empty(t, holder)

	require.NoError(t, l.UnlockRequest(ctx, "req-2", "reviewer-a"), "unlocking twice is harmless")
}

func TestLockRequest_ExpiresAfterTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	l := NewLocker(client, 30*time.Second, logger.Discard())
	ctx := context.Background()

	_, err := l.LockRequest(ctx, "req-3", "reviewer-a")
	require.NoError(t, err)

	mr.FastForward(31 * time.Second)

	ok, err := l.LockRequest(ctx, "req-3", "reviewer-b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockRequest_ConcurrentReviewers(t *testing.T) {
	client, _ := setupTestRedis(t)
	l := NewLocker(client, time.Minute, logger.Discard())

	const reviewers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < reviewers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ok, err := l.LockRequest(context.Background(), "req-hot", fmt.Sprintf("reviewer-%d", n))
			if err == nil && ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}
