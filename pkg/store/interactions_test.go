package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInteractionStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	fixClock(db, base.Add(-48*time.Hour))
	require.NoError(t, db.RecordInteraction(ctx, Interaction{ChatID: "1", RequestType: "greeting"}))

	fixClock(db, base)
	for _, requestType := range []string{"oil_search", "oil_search", "mood_request"} {
		require.NoError(t, db.RecordInteraction(ctx, Interaction{ChatID: "1", UserID: "2", RequestType: requestType}))
	}

	stats, err := db.InteractionStats(ctx, base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []InteractionCount{
		{RequestType: "oil_search", Count: 2},
		{RequestType: "mood_request", Count: 1},
	}, stats)
}
