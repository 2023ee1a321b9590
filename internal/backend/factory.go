package backend

import (
	"fmt"
	"log/slog"

	"shoptracker/internal/storage"
)

// Create builds the storage backend described by config. The caller
// owns the returned backend and must Close it on shutdown.
func Create(logger *slog.Logger, config Config) (storage.Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		b, err := storage.NewSQLiteBackend(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite backend: %w", err)
		}
		logger.Info("Storage backend ready", "type", "sqlite", "path", config.SQLiteDBPath)
		return b, nil

	case FileBackend:
		b, err := storage.NewFileBackend(config.DataDir)
		if err != nil {
			return nil, fmt.Errorf("initialize file backend: %w", err)
		}
		logger.Info("Storage backend ready", "type", "file", "dir", config.DataDir)
		return b, nil

	case MemoryBackend:
		logger.Warn("Using in-memory backend, data will not survive restarts")
		return storage.NewMemoryBackend(), nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
