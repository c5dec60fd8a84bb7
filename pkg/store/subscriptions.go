package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Subscription is one chat's daily tip subscription.
type Subscription struct {
	ID               int64     `json:"id"`
	ChatID           string    `json:"chat_id"`
	UserID           string    `json:"user_id"`
	Username         string    `json:"username"`
	Active           bool      `json:"is_active"`
	NotificationTime string    `json:"notification_time"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	LastNotifiedOn   string    `json:"last_notified_on,omitempty"`
}

const subscriptionColumns = `id, chat_id, user_id, username, is_active,
	notification_time, created_at, updated_at, last_notified_on`

// GetSubscription returns the subscription for chatID or ErrNotFound.
func (d *DB) GetSubscription(ctx context.Context, chatID string) (*Subscription, error) {
	row := d.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE chat_id = ?`, chatID)

	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sub, err
}

// UpsertSubscription creates the subscription or updates the existing row for
// the same chat. The original creation time is kept on update.
func (d *DB) UpsertSubscription(ctx context.Context, sub Subscription) (*Subscription, error) {
	if sub.ChatID == "" {
		return nil, errors.New("subscription chat id is required")
	}

	now := d.now()
	_, err := d.ExecContext(ctx, `
		INSERT INTO subscriptions (chat_id, user_id, username, is_active,
			notification_time, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			user_id = excluded.user_id,
			username = excluded.username,
			is_active = excluded.is_active,
			notification_time = excluded.notification_time,
			updated_at = excluded.updated_at
	`, sub.ChatID, sub.UserID, sub.Username, sub.Active, sub.NotificationTime, now, now)
	if err != nil {
		return nil, fmt.Errorf("upsert subscription: %w", err)
	}

	return d.GetSubscription(ctx, sub.ChatID)
}

// SetSubscriptionActive toggles delivery for chatID.
func (d *DB) SetSubscriptionActive(ctx context.Context, chatID string, active bool) error {
	return d.updateSubscription(ctx, chatID, `is_active = ?`, active)
}

// SetNotificationTime changes the local HH:MM delivery time for chatID.
func (d *DB) SetNotificationTime(ctx context.Context, chatID string, clock string) error {
	return d.updateSubscription(ctx, chatID, `notification_time = ?`, clock)
}

// MarkNotified records that chatID received its tip on day (YYYY-MM-DD).
func (d *DB) MarkNotified(ctx context.Context, chatID string, day string) error {
	return d.updateSubscription(ctx, chatID, `last_notified_on = ?`, day)
}

func (d *DB) updateSubscription(ctx context.Context, chatID string, assignment string, value any) error {
	result, err := d.ExecContext(ctx,
		`UPDATE subscriptions SET `+assignment+`, updated_at = ? WHERE chat_id = ?`,
		value, d.now(), chatID)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// DueSubscriptions lists active subscriptions scheduled at clock that have not
// been notified on day yet.
func (d *DB) DueSubscriptions(ctx context.Context, clock string, day string) ([]Subscription, error) {
	rows, err := d.QueryContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE is_active = 1 AND notification_time = ? AND last_notified_on <> ?
		ORDER BY id
	`, clock, day)
	if err != nil {
		return nil, fmt.Errorf("query due subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}

	return subs, rows.Err()
}

// CountActiveSubscriptions returns how many chats currently receive tips.
func (d *DB) CountActiveSubscriptions(ctx context.Context) (int, error) {
	var count int
	if err := d.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscriptions WHERE is_active = 1`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count subscriptions: %w", err)
	}
	return count, nil
}

func scanSubscription(row scanner) (*Subscription, error) {
	var sub Subscription
	err := row.Scan(&sub.ID, &sub.ChatID, &sub.UserID, &sub.Username, &sub.Active,
		&sub.NotificationTime, &sub.CreatedAt, &sub.UpdatedAt, &sub.LastNotifiedOn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	return &sub, nil
}
