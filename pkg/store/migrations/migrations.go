// Package migrations holds the versioned schema changes of the SQLite store.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
)

// Migration is one forward-only schema change.
type Migration struct {
	Version int
	Name    string
	Up      func(context.Context, *sql.DB) error
}

var registry []Migration

// Register adds a migration to the registry. Called from init functions.
func Register(m Migration) {
	registry = append(registry, m)
}

// Registered returns the known migrations ordered by version.
func Registered() []Migration {
	sorted := slices.Clone(registry)
	slices.SortFunc(sorted, func(a, b Migration) int { return a.Version - b.Version })
	return sorted
}

// Run applies every pending migration in version order.
func Run(ctx context.Context, db *sql.DB, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}

	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range Registered() {
		if applied[m.Version] {
			continue
		}

		log.Info("Running migration", "version", m.Version, "name", m.Name)

		if err := m.Up(ctx, db); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}

		if _, err := db.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
			m.Version, m.Name,
		); err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
	}

	return nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("query schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

// AddColumnIfNotExists adds a column unless the table already has it.
func AddColumnIfNotExists(ctx context.Context, db *sql.DB, table, column, columnDef string) error {
	exists, err := ColumnExists(ctx, db, table, column)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, columnDef))
	return err
}

// ColumnExists reports whether table has column.
func ColumnExists(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notnull   int
			dfltValue any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}

	return false, rows.Err()
}
