package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/promotion"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// MockSnapshotStore is a mock implementation of cart.SnapshotStore
type MockSnapshotStore struct {
	mock.Mock
}

func (m *MockSnapshotStore) Load(ctx context.Context, sessionID string) (*cart.Snapshot, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Snapshot), args.Error(1)
}

func (m *MockSnapshotStore) Save(ctx context.Context, snapshot *cart.Snapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockSnapshotStore) Delete(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

// MockProductReader is a mock implementation of catalog.ProductReader
type MockProductReader struct {
	mock.Mock
}

func (m *MockProductReader) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

// MockPromoCatalog is a mock implementation of promotion.Catalog
type MockPromoCatalog struct {
	mock.Mock
}

func (m *MockPromoCatalog) FindByCode(ctx context.Context, code string) (*promotion.PromoCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*promotion.PromoCode), args.Error(1)
}

// memoryStore is a goroutine safe snapshot store for multi-step scenarios
type memoryStore struct {
	mu    sync.Mutex
	snaps map[string]cart.Snapshot
	saves int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{snaps: make(map[string]cart.Snapshot)}
}

func (s *memoryStore) Load(_ context.Context, sessionID string) (*cart.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: cart %s", shared.ErrNotFound, sessionID)
	}
	snap.Items = append([]cart.SnapshotItem(nil), snap.Items...)
	snap.Selected = append([]cart.ItemKey(nil), snap.Selected...)
	return &snap, nil
}

func (s *memoryStore) Save(_ context.Context, snapshot *cart.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := *snapshot
	snap.Items = append([]cart.SnapshotItem(nil), snapshot.Items...)
	snap.Selected = append([]cart.ItemKey(nil), snapshot.Selected...)
	s.snaps[snapshot.SessionID] = snap
	s.saves++
	return nil
}

func (s *memoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, sessionID)
	return nil
}

func (s *memoryStore) has(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.snaps[sessionID]
	return ok
}

// productTable is a fixed ProductReader
type productTable map[uuid.UUID]*catalog.Product

func (t productTable) FindByID(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	p, ok := t[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

// promoTable is a fixed promotion.Catalog keyed by upper-case code
type promoTable map[string]*promotion.PromoCode

func (t promoTable) FindByCode(_ context.Context, code string) (*promotion.PromoCode, error) {
	p, ok := t[promotion.NormalizeCode(code)]
	if !ok {
		return nil, fmt.Errorf("%w: promo code %s", shared.ErrNotFound, code)
	}
	return p, nil
}
