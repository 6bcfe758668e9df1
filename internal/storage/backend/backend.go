// Package backend opens the storage implementation selected by DATA_BACKEND.
package backend

import (
	"context"
	"fmt"

	"github.com/hongminglow/ledger-be/internal/config"
	applog "github.com/hongminglow/ledger-be/internal/log"
	"github.com/hongminglow/ledger-be/internal/storage"
	"github.com/hongminglow/ledger-be/internal/storage/memory"
	"github.com/hongminglow/ledger-be/internal/storage/postgres"
	"github.com/hongminglow/ledger-be/internal/storage/sqlite"
)

// Open returns a ready store for cfg.DataBackend. The caller closes it.
func Open(ctx context.Context, cfg config.Config) (storage.Store, error) {
	logger := applog.FromContext(ctx).With(
		applog.FieldComponent, applog.ComponentStorage,
		"backend", cfg.DataBackend)

	var (
		store storage.Store
		err   error
	)
	switch cfg.DataBackend {
	case config.BackendPostgres:
		store, err = postgres.NewStore(ctx, cfg.DatabaseURL)
	case config.BackendSQLite:
		logger = logger.With("path", cfg.SQLiteDBPath)
		store, err = sqlite.NewStore(cfg.SQLiteDBPath)
	case config.BackendMemory:
		logger.Warn("memory backend keeps no data across restarts")
		store = memory.NewStore()
	default:
		return nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
	}
	if err != nil {
		logger.Error("open store failed", applog.FieldError, err)
		return nil, fmt.Errorf("open %s store: %w", cfg.DataBackend, err)
	}
	logger.Debug("store opened")
	return store, nil
}
