package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"shoptracker/internal/core"
)

// Collection file names mirror the storage keys of the original mobile
// app so an exported data directory stays recognizable.
const (
	itemsFile        = "shoptracker_items.json"
	shopsFile        = "shoptracker_shops.json"
	transactionsFile = "shoptracker_transactions.json"
)

// FileBackend persists each collection as a JSON document in a data
// directory. Writes go through a temp file and rename.
type FileBackend struct {
	dir string
}

func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

func (f *FileBackend) LoadAll(ctx context.Context) (Snapshot, Presence, error) {
	var snap Snapshot
	var pres Presence
	var err error

	if pres.Items, err = readCollection(f.path(itemsFile), &snap.Items); err != nil {
		return Snapshot{}, Presence{}, err
	}
	if pres.Shops, err = readCollection(f.path(shopsFile), &snap.Shops); err != nil {
		return Snapshot{}, Presence{}, err
	}
	if pres.Transactions, err = readCollection(f.path(transactionsFile), &snap.Transactions); err != nil {
		return Snapshot{}, Presence{}, err
	}

	slog.DebugContext(ctx, "Loaded ledger collections from files",
		"dir", f.dir,
		"items", len(snap.Items),
		"shops", len(snap.Shops),
		"transactions", len(snap.Transactions))
	return snap, pres, nil
}

func (f *FileBackend) Commit(ctx context.Context, snap Snapshot, dirty Dirty) error {
	if dirty.Items {
		if err := writeCollection(f.path(itemsFile), snap.Items); err != nil {
			return err
		}
	}
	if dirty.Shops {
		if err := writeCollection(f.path(shopsFile), snap.Shops); err != nil {
			return err
		}
	}
	if dirty.Transactions {
		if err := writeCollection(f.path(transactionsFile), snap.Transactions); err != nil {
			return err
		}
	}
	return nil
}

func (f *FileBackend) Close() error { return nil }

func (f *FileBackend) path(name string) string {
	return filepath.Join(f.dir, name)
}

// readCollection reads a JSON collection file. A missing file means the
// collection is absent, not an error.
func readCollection[T any](path string, out *[]T) (present bool, err error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: read %s: %v", core.ErrStorageRead, filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("%w: decode %s: %v", core.ErrStorageRead, filepath.Base(path), err)
	}
	return true, nil
}

func writeCollection[T any](path string, records []T) error {
	if records == nil {
		records = []T{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
