package cart

import "context"

// SnapshotStore persists cart snapshots by session. Load returns an error
// wrapping shared.ErrNotFound when the session has no cart.
type SnapshotStore interface {
	Load(ctx context.Context, sessionID string) (*Snapshot, error)
	Save(ctx context.Context, snapshot *Snapshot) error
	Delete(ctx context.Context, sessionID string) error
}
