// Package history persists the append-mostly price observation log.
//
// Three backends share one contract: a JSON file (the default), SQLite and
// PostgreSQL. All of them report unreadable history as empty on read paths
// and surface write failures to the caller.
package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/wonny/pricecast/internal/contracts"
	"github.com/wonny/pricecast/pkg/config"
	"github.com/wonny/pricecast/pkg/database"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name
var ErrUnknownBackend = errors.New("unknown history backend")

// Store is a HistoryStore that owns resources
type Store interface {
	contracts.HistoryStore
	Close() error
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*PostgresStore)(nil)
)

// Open builds the backend selected by cfg.Store.Backend
// ⭐ SSOT: 저장소 선택은 여기서만
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (Store, error) {
	switch cfg.Store.Backend {
	case config.BackendFile, "":
		return NewFileStore(cfg.Store.HistoryPath, log), nil

	case config.BackendSQLite:
		return NewSQLiteStore(ctx, cfg.Store.SQLitePath, log)

	case config.BackendPostgres:
		db, err := database.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		store, err := NewPostgresStore(ctx, db, log)
		if err != nil {
			db.Close()
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Store.Backend)
	}
}
