package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aromabot/pkg/store/migrations"
)

func TestDefaultCatalog(t *testing.T) {
	oils, err := DefaultCatalog()
	require.NoError(t, err)
	require.NotEmpty(t, oils)

	for _, oil := range oils {
		assert.NotEmpty(t, oil.Name)
		assert.NotEmpty(t, oil.EmotionalEffect, "oil %q needs an emotional effect", oil.Name)
		assert.NotEmpty(t, oil.SafetyWarning, "oil %q needs a safety warning", oil.Name)
	}
}

func TestParseCatalogRejectsDuplicates(t *testing.T) {
	_, err := ParseCatalog([]byte("oils:\n  - oil_name: Лаванда\n  - oil_name: лаванда\n"))
	require.ErrorContains(t, err, "duplicated")

	_, err = ParseCatalog([]byte("oils: []\n"))
	require.Error(t, err)

	_, err = ParseCatalog([]byte("oils:\n  - description: nameless\n"))
	require.ErrorContains(t, err, "no oil_name")
}

func TestEnsureSeededOnlyFillsEmptyCatalog(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	written, err := db.EnsureSeeded(ctx)
	require.NoError(t, err)
	assert.Positive(t, written)

	again, err := db.EnsureSeeded(ctx)
	require.NoError(t, err)
	assert.Zero(t, again)

	oil, err := db.SearchOil(ctx, "мята")
	require.NoError(t, err)
	assert.Equal(t, "Мята перечная", oil.Name)
}

func TestLoadCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oils.yaml")
	require.NoError(t, os.WriteFile(path, []byte("oils:\n  - oil_name: Пихта\n    joke: ёлка\n"), 0o600))

	oils, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, oils, 1)
	assert.Equal(t, "Пихта", oils[0].Name)

	db := newTestDB(t)
	written, err := db.Seed(context.Background(), oils)
	require.NoError(t, err)
	assert.Equal(t, 1, written)
}

func TestMigrationsAreRecorded(t *testing.T) {
	db := newTestDB(t)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, len(migrations.Registered()), count)

	exists, err := migrations.ColumnExists(context.Background(), db.DB, "subscriptions", "last_notified_on")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, migrations.Run(context.Background(), db.DB, nil), "rerun is a no-op")
}
