package backend

import (
	"context"
	"fmt"
	"log/slog"

	"stocktake/internal/config"
	"stocktake/internal/store"
	gsheet "stocktake/internal/store/google"
	"stocktake/internal/store/memory"
	mongostore "stocktake/internal/store/mongo"
	"stocktake/internal/store/sqlite"
)

// Type selects which ledger store backs the service.
type Type string

const (
	Memory Type = "memory"
	Sheets Type = "sheets"
	SQLite Type = "sqlite"
	Mongo  Type = "mongo"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case Memory, Sheets, SQLite, Mongo:
		return true
	default:
		return false
	}
}

// CleanupFunc releases backend resources at shutdown
type CleanupFunc func(ctx context.Context) error

// Result contains the opened store and optional cleanup function
type Result struct {
	Store   store.Store
	Cleanup CleanupFunc
}

// Open builds the configured ledger store and wraps it in the TTL read
// cache. The caller runs Cleanup at shutdown when it is non-nil.
func Open(ctx context.Context, cfg *config.Config) (*Result, error) {
	t := Type(cfg.DataBackend)
	if !t.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.DataBackend)
	}

	var (
		inner   store.Store
		cleanup CleanupFunc
	)

	switch t {
	case Memory:
		inner = memory.New()
		slog.Info("Initialized memory backend")

	case Sheets:
		cli, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		inner = cli
		slog.Info("Initialized Google Sheets backend",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", cfg.GoogleSheetName)

	case SQLite:
		st, err := sqlite.New(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		inner = st
		cleanup = func(context.Context) error { return st.Close() }
		slog.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)

	case Mongo:
		st, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Mongo store: %w", err)
		}
		inner = st
		cleanup = st.Close
		slog.Info("Initialized Mongo backend", "database", cfg.MongoDBName)
	}

	return &Result{
		Store:   store.NewCached(inner, cfg.CacheTTL),
		Cleanup: cleanup,
	}, nil
}
