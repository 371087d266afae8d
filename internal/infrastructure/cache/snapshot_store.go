package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/shared"
)

// DefaultSnapshotKeyPrefix is prepended to the session ID to form the storage key
const DefaultSnapshotKeyPrefix = "cart:snapshot:"

// SnapshotStore is a cart snapshot store that can also report how many
// sessions currently hold a cart.
type SnapshotStore interface {
	cart.SnapshotStore
	CountSessions(ctx context.Context) (int64, error)
	Close() error
}

func encodeSnapshot(snapshot *cart.Snapshot) ([]byte, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("%w: snapshot is nil", shared.ErrInvalidInput)
	}
	if snapshot.SessionID == "" {
		return nil, fmt.Errorf("%w: snapshot has no session id", shared.ErrInvalidInput)
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cart snapshot: %w", err)
	}
	return data, nil
}

func decodeSnapshot(sessionID string, data []byte) (*cart.Snapshot, error) {
	var snapshot cart.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: session %s: %w", cart.ErrUnreadableSnapshot, sessionID, err)
	}
	if snapshot.SessionID == "" {
		snapshot.SessionID = sessionID
	}
	return &snapshot, nil
}
