package migrations

import (
	"context"
	"database/sql"
)

func init() {
	Register(Migration{
		Version: 1,
		Name:    "initial_schema",
		Up:      createInitialSchema,
	})
}

func createInitialSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS oils (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			oil_name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			emotional_effect TEXT NOT NULL DEFAULT '',
			physical_effect TEXT NOT NULL DEFAULT '',
			applications TEXT NOT NULL DEFAULT '',
			safety_warning TEXT NOT NULL DEFAULT '',
			joke TEXT NOT NULL DEFAULT '',
			keywords TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL DEFAULT '',
			username TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT 1,
			notification_time TEXT NOT NULL DEFAULT '09:00',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS interactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id TEXT NOT NULL,
			user_id TEXT NOT NULL DEFAULT '',
			request_type TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
	}

	for _, statement := range statements {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return err
		}
	}

	return nil
}
