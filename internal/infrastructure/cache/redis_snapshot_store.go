package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/config"
)

// RedisSnapshotStore keeps cart snapshots as JSON strings in Redis.
// Every save refreshes the key's TTL, so idle carts expire on their own.
type RedisSnapshotStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisSnapshotStore connects to Redis and verifies the connection
func NewRedisSnapshotStore(cfg config.RedisConfig, keyPrefix string, ttl time.Duration) (*RedisSnapshotStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisSnapshotStoreWithClient(client, keyPrefix, ttl), nil
}

// NewRedisSnapshotStoreWithClient creates a store with an existing Redis client.
// A zero ttl keeps snapshots forever.
func NewRedisSnapshotStoreWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisSnapshotStore {
	if keyPrefix == "" {
		keyPrefix = DefaultSnapshotKeyPrefix
	}
	return &RedisSnapshotStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

// Load returns the session's snapshot or an error wrapping shared.ErrNotFound
func (s *RedisSnapshotStore) Load(ctx context.Context, sessionID string) (*cart.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: no cart for session %s", shared.ErrNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to load cart snapshot: %w", err)
	}
	return decodeSnapshot(sessionID, data)
}

// Save writes the snapshot and resets its TTL
func (s *RedisSnapshotStore) Save(ctx context.Context, snapshot *cart.Snapshot) error {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(snapshot.SessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save cart snapshot: %w", err)
	}
	return nil
}

// Delete removes the session's snapshot. Deleting a missing snapshot is not an error.
func (s *RedisSnapshotStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart snapshot: %w", err)
	}
	return nil
}

// CountSessions counts snapshot keys with SCAN, which does not block the server
func (s *RedisSnapshotStore) CountSessions(ctx context.Context) (int64, error) {
	var count int64
	iter := s.client.Scan(ctx, 0, s.keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to count cart sessions: %w", err)
	}
	return count, nil
}

// Close closes the Redis client
func (s *RedisSnapshotStore) Close() error {
	return s.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (s *RedisSnapshotStore) GetClient() *redis.Client {
	return s.client
}

func (s *RedisSnapshotStore) key(sessionID string) string {
	return s.keyPrefix + sessionID
}

// Ensure RedisSnapshotStore implements SnapshotStore
var _ SnapshotStore = (*RedisSnapshotStore)(nil)
