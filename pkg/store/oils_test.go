package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchOilIsCaseInsensitiveSubstring(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertOil(ctx, Oil{Name: "Мята перечная", Description: "свежесть"}))
	require.NoError(t, db.UpsertOil(ctx, Oil{Name: "Лаванда"}))

	oil, err := db.SearchOil(ctx, "  МЯТА ")
	require.NoError(t, err)
	assert.Equal(t, "Мята перечная", oil.Name)
	assert.Equal(t, "свежесть", oil.Description)

	oil, err = db.SearchOil(ctx, "лаванда")
	require.NoError(t, err)
	assert.Equal(t, "Лаванда", oil.Name)

	_, err = db.SearchOil(ctx, "ваниль")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = db.SearchOil(ctx, " ")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSearchOilReturnsFirstByID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertOil(ctx, Oil{Name: "Дикий апельсин"}))
	require.NoError(t, db.UpsertOil(ctx, Oil{Name: "Апельсин сладкий"}))

	oil, err := db.SearchOil(ctx, "апельсин")
	require.NoError(t, err)
	assert.Equal(t, "Дикий апельсин", oil.Name)
}

func TestUpsertOilReplacesByName(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertOil(ctx, Oil{Name: "Лимон", Joke: "old"}))
	require.NoError(t, db.UpsertOil(ctx, Oil{Name: "Лимон", Joke: "new"}))

	count, err := db.CountOils(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	oil, err := db.GetOilByName(ctx, "лимон")
	require.NoError(t, err)
	assert.Equal(t, "new", oil.Joke)

	require.Error(t, db.UpsertOil(ctx, Oil{Name: "  "}))
}

func TestListOilsAndRandomOil(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.RandomOil(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.UpsertOils(ctx, []Oil{{Name: "Лаванда"}, {Name: "Мята"}, {Name: "Лимон"}}))

	all, err := db.ListOils(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Лаванда", all[0].Name)

	limited, err := db.ListOils(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	random, err := db.RandomOil(ctx)
	require.NoError(t, err)
	assert.Contains(t, []string{"Лаванда", "Мята", "Лимон"}, random.Name)
}
