package migrations

import (
	"context"
	"database/sql"
)

func init() {
	Register(Migration{
		Version: 2,
		Name:    "notification_tracking",
		Up:      addNotificationTracking,
	})
}

// addNotificationTracking records the local day of the last daily tip so the
// scheduler sends at most one per day.
func addNotificationTracking(ctx context.Context, db *sql.DB) error {
	if err := AddColumnIfNotExists(ctx, db, "subscriptions", "last_notified_on", "TEXT NOT NULL DEFAULT ''"); err != nil {
		return err
	}

	statements := []string{
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_due ON subscriptions(is_active, notification_time)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_created_at ON interactions(created_at)`,
	}
	for _, statement := range statements {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return err
		}
	}

	return nil
}
