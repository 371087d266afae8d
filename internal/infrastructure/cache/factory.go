package cache

import (
	"fmt"

	"github.com/storefront/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// SnapshotStoreFactory creates cart snapshot stores based on configuration
type SnapshotStoreFactory struct {
	redisConfig           config.RedisConfig
	cartConfig            config.CartConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// SnapshotStoreFactoryOption is a functional option for configuring the factory
type SnapshotStoreFactoryOption func(*SnapshotStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) SnapshotStoreFactoryOption {
	return func(f *SnapshotStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory store when Redis is unavailable
func WithInMemoryFallback(allow bool) SnapshotStoreFactoryOption {
	return func(f *SnapshotStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewSnapshotStoreFactory creates a new factory. Fallback defaults to the
// cart configuration's AllowMemoryFallback.
func NewSnapshotStoreFactory(redisCfg config.RedisConfig, cartCfg config.CartConfig, opts ...SnapshotStoreFactoryOption) *SnapshotStoreFactory {
	f := &SnapshotStoreFactory{
		redisConfig:           redisCfg,
		cartConfig:            cartCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: cartCfg.AllowMemoryFallback,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisStore creates a Redis-backed snapshot store
func (f *SnapshotStoreFactory) CreateRedisStore() (SnapshotStore, error) {
	store, err := NewRedisSnapshotStore(f.redisConfig, f.cartConfig.KeyPrefix, f.cartConfig.SnapshotTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis snapshot store: %w", err)
	}
	return store, nil
}

// CreateInMemoryStore creates an in-memory snapshot store.
// Carts are lost on restart and are not shared between instances.
func (f *SnapshotStoreFactory) CreateInMemoryStore() SnapshotStore {
	return NewInMemorySnapshotStore(f.cartConfig.SnapshotTTL)
}

// CreateStore creates the configured store. With the redis store it falls
// back to memory when Redis is unreachable and fallback is allowed.
func (f *SnapshotStoreFactory) CreateStore() (SnapshotStore, error) {
	if f.cartConfig.Store == config.CartStoreMemory {
		f.logger.Info("using in-memory cart snapshot store")
		return f.CreateInMemoryStore(), nil
	}

	store, err := f.CreateRedisStore()
	if err == nil {
		f.logger.Info("using Redis cart snapshot store",
			zap.String("addr", f.redisConfig.Addr()),
			zap.Duration("ttl", f.cartConfig.SnapshotTTL),
		)
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for cart snapshots but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory cart snapshot store. "+
		"Carts will not be shared between instances.",
		zap.Error(err),
	)
	return f.CreateInMemoryStore(), nil
}
