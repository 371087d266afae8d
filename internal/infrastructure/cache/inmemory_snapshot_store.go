package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/shared"
)

type snapshotEntry struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

func (e snapshotEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// InMemorySnapshotStore keeps encoded snapshots in a map.
// This is suitable for single-instance deployments and testing.
type InMemorySnapshotStore struct {
	mu        sync.RWMutex
	entries   map[string]snapshotEntry
	ttl       time.Duration
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemorySnapshotStore creates a new in-memory store. A zero ttl keeps
// snapshots until Delete. It starts a background goroutine to drop expired entries.
func NewInMemorySnapshotStore(ttl time.Duration) *InMemorySnapshotStore {
	store := &InMemorySnapshotStore{
		entries:  make(map[string]snapshotEntry),
		ttl:      ttl,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// Load returns a fresh copy of the session's snapshot
func (s *InMemorySnapshotStore) Load(ctx context.Context, sessionID string) (*cart.Snapshot, error) {
	s.mu.RLock()
	e, exists := s.entries[sessionID]
	s.mu.RUnlock()

	if !exists || e.expired(s.now()) {
		return nil, fmt.Errorf("%w: no cart for session %s", shared.ErrNotFound, sessionID)
	}
	return decodeSnapshot(sessionID, e.data)
}

// Save stores the snapshot and resets its expiry
func (s *InMemorySnapshotStore) Save(ctx context.Context, snapshot *cart.Snapshot) error {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	e := snapshotEntry{data: data}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	s.entries[snapshot.SessionID] = e
	s.mu.Unlock()
	return nil
}

// Delete removes the session's snapshot
func (s *InMemorySnapshotStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.entries, sessionID)
	s.mu.Unlock()
	return nil
}

// CountSessions counts unexpired snapshots
func (s *InMemorySnapshotStore) CountSessions(ctx context.Context) (int64, error) {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, e := range s.entries {
		if !e.expired(now) {
			count++
		}
	}
	return count, nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemorySnapshotStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// Size returns the number of stored entries, expired ones included
func (s *InMemorySnapshotStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *InMemorySnapshotStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemorySnapshotStore) cleanup() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for sessionID, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, sessionID)
		}
	}
}

// Ensure InMemorySnapshotStore implements SnapshotStore
var _ SnapshotStore = (*InMemorySnapshotStore)(nil)
