package idempotency_test

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/ventas/internal/idempotency"
)

func redisClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	t.Cleanup(func() { client.Close() })

	return client
}

func TestRedisGuard_ClaimOnce(t *testing.T) {
	guard := idempotency.NewRedisGuard(redisClient(t), time.Minute)
	ctx := context.Background()
	key := uuid.NewString()

	ok, err := guard.Claim(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = guard.Claim(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, guard.Release(ctx, key))

	ok, err = guard.Claim(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisGuard_ConcurrentClaims(t *testing.T) {
	guard := idempotency.NewRedisGuard(redisClient(t), time.Minute)
	ctx := context.Background()
	key := uuid.NewString()

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if ok, err := guard.Claim(ctx, key); err == nil && ok {
				winners.Add(1)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}

func TestRedisGuard_EmptyKey(t *testing.T) {
	guard := idempotency.NewRedisGuard(nil, time.Minute)

	_, err := guard.Claim(context.Background(), "")
	assert.ErrorIs(t, err, idempotency.ErrEmptyKey)
}
