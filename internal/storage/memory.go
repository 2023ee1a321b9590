package storage

import (
	"context"
	"sync"

	"shoptracker/internal/core"
)

// MemoryBackend keeps collections in process memory. It is the default
// backend for development runs and the fake of choice in tests.
type MemoryBackend struct {
	mu       sync.Mutex
	snap     Snapshot
	presence Presence

	// FailCommit, when set, makes every Commit return the given error.
	// Tests use it to exercise the ledger's rollback path.
	FailCommit error
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) LoadAll(_ context.Context) (Snapshot, Presence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copySnapshot(m.snap), m.presence, nil
}

func (m *MemoryBackend) Commit(_ context.Context, snap Snapshot, dirty Dirty) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCommit != nil {
		return m.FailCommit
	}
	if dirty.Items {
		m.snap.Items = append([]core.Item(nil), snap.Items...)
		m.presence.Items = true
	}
	if dirty.Shops {
		m.snap.Shops = append([]core.Shop(nil), snap.Shops...)
		m.presence.Shops = true
	}
	if dirty.Transactions {
		m.snap.Transactions = append([]core.Transaction(nil), snap.Transactions...)
		m.presence.Transactions = true
	}
	return nil
}

func (m *MemoryBackend) Close() error { return nil }

func copySnapshot(s Snapshot) Snapshot {
	return Snapshot{
		Items:        append([]core.Item(nil), s.Items...),
		Shops:        append([]core.Shop(nil), s.Shops...),
		Transactions: append([]core.Transaction(nil), s.Transactions...),
	}
}
