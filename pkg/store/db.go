// Package store persists the oil catalog, subscriptions and interaction
// history in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"aromabot/pkg/store/migrations"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// DB wraps the SQLite handle with the bot's queries.
type DB struct {
	*sql.DB
	now func() time.Time
}

// New opens the database at path and applies pending migrations.
func New(path string) (*DB, error) {
	return Open(context.Background(), path, nil)
}

// Open is New with a context and logger for the migration run.
func Open(ctx context.Context, path string, log *slog.Logger) (*DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("store path is required")
	}

	// WAL for concurrent readers, busy timeout to wait instead of failing.
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrations.Run(ctx, db, log); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &DB{
		DB:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// Ping verifies the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}

func (d *DB) Close() error {
	return d.DB.Close()
}
