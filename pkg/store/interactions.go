package store

import (
	"context"
	"fmt"
	"time"
)

// Interaction is one classified inbound event.
type Interaction struct {
	ChatID      string
	UserID      string
	RequestType string
}

// InteractionCount is the number of interactions of one request type.
type InteractionCount struct {
	RequestType string `json:"request_type"`
	Count       int    `json:"count"`
}

// RecordInteraction appends one row to the interaction log.
func (d *DB) RecordInteraction(ctx context.Context, interaction Interaction) error {
	_, err := d.ExecContext(ctx, `
		INSERT INTO interactions (chat_id, user_id, request_type, created_at)
		VALUES (?, ?, ?, ?)
	`, interaction.ChatID, interaction.UserID, interaction.RequestType, d.now())
	if err != nil {
		return fmt.Errorf("record interaction: %w", err)
	}
	return nil
}

// InteractionStats counts interactions since the given time, most frequent
// request type first.
func (d *DB) InteractionStats(ctx context.Context, since time.Time) ([]InteractionCount, error) {
	rows, err := d.QueryContext(ctx, `
		SELECT request_type, COUNT(*) AS total
		FROM interactions
		WHERE created_at >= ?
		GROUP BY request_type
		ORDER BY total DESC, request_type
	`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query interaction stats: %w", err)
	}
	defer rows.Close()

	var stats []InteractionCount
	for rows.Next() {
		var stat InteractionCount
		if err := rows.Scan(&stat.RequestType, &stat.Count); err != nil {
			return nil, fmt.Errorf("scan interaction stats: %w", err)
		}
		stats = append(stats, stat)
	}

	return stats, rows.Err()
}
