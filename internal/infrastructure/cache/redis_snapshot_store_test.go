package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachableRedis points at a port nothing listens on.
func unreachableRedis() config.RedisConfig {
	return config.RedisConfig{Host: "127.0.0.1", Port: 1}
}

func newUnreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        unreachableRedis().Addr(),
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewRedisSnapshotStore_ConnectionFailure(t *testing.T) {
	store, err := NewRedisSnapshotStore(unreachableRedis(), "", time.Hour)
	assert.Nil(t, store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}

func TestNewRedisSnapshotStoreWithClient(t *testing.T) {
	client := newUnreachableClient(t)

	t.Run("default key prefix", func(t *testing.T) {
		store := NewRedisSnapshotStoreWithClient(client, "", time.Hour)
		assert.Equal(t, DefaultSnapshotKeyPrefix+"abc", store.key("abc"))
		assert.Same(t, client, store.GetClient())
	})

	t.Run("custom key prefix", func(t *testing.T) {
		store := NewRedisSnapshotStoreWithClient(client, "shop:cart:", 0)
		assert.Equal(t, "shop:cart:abc", store.key("abc"))
	})
}

func TestRedisSnapshotStore_Errors(t *testing.T) {
	store := NewRedisSnapshotStoreWithClient(newUnreachableClient(t), "", time.Hour)
	ctx := context.Background()

	t.Run("invalid snapshot is rejected before any network call", func(t *testing.T) {
		assert.ErrorIs(t, store.Save(ctx, nil), shared.ErrInvalidInput)
	})

	t.Run("connection errors are not reported as missing carts", func(t *testing.T) {
		_, err := store.Load(ctx, "s-1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("save and count surface connection errors", func(t *testing.T) {
		assert.Error(t, store.Save(ctx, sampleSnapshot("s-1")))
		_, err := store.CountSessions(ctx)
		assert.Error(t, err)
		assert.Error(t, store.Delete(ctx, "s-1"))
	})
}
