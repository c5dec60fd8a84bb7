package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// newTestDB opens an in-memory database that is closed with the test.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(MemoryPath)
	require.NoError(t, err, "failed to create test database")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// fixClock pins the database clock.
func fixClock(db *DB, at time.Time) {
	db.now = func() time.Time { return at }
}
