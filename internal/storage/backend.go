// Package storage persists the three ledger collections behind a small
// backend interface. Backends store whole collections: the ledger owns the
// in-memory state and replaces persisted collections on every commit.
package storage

import (
	"context"

	"shoptracker/internal/core"
)

// Snapshot is a full copy of the persisted state.
type Snapshot struct {
	Items        []core.Item
	Shops        []core.Shop
	Transactions []core.Transaction
}

// Dirty marks which collections changed in a logical operation. A commit
// persists every dirty collection or fails as a whole.
type Dirty struct {
	Items        bool
	Shops        bool
	Transactions bool
}

// Presence reports which collections exist in the backend at all. A
// collection that was never written is absent and gets seeded by the
// ledger; an empty-but-written collection is present.
type Presence struct {
	Items        bool
	Shops        bool
	Transactions bool
}

func (p Presence) All() bool {
	return p.Items && p.Shops && p.Transactions
}

// Backend is the persistence port injected into the ledger.
type Backend interface {
	// LoadAll reads every persisted collection. Unreadable or corrupt
	// state returns an error wrapping core.ErrStorageRead.
	LoadAll(ctx context.Context) (Snapshot, Presence, error)

	// Commit durably persists the dirty collections of the snapshot in
	// one logical operation. Partial failure must surface as an error,
	// never as silently inconsistent state.
	Commit(ctx context.Context, snap Snapshot, dirty Dirty) error

	Close() error
}
