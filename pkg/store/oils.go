package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Oil is one entry of the essential oil catalog.
type Oil struct {
	ID              int64  `json:"id" yaml:"-"`
	Name            string `json:"oil_name" yaml:"oil_name"`
	Description     string `json:"description" yaml:"description"`
	EmotionalEffect string `json:"emotional_effect" yaml:"emotional_effect"`
	PhysicalEffect  string `json:"physical_effect" yaml:"physical_effect"`
	Applications    string `json:"applications" yaml:"applications"`
	SafetyWarning   string `json:"safety_warning" yaml:"safety_warning"`
	Joke            string `json:"joke" yaml:"joke"`
	Keywords        string `json:"keywords" yaml:"keywords"`
}

const oilColumns = `id, oil_name, description, emotional_effect, physical_effect,
	applications, safety_warning, joke, keywords`

// SearchOil returns the first oil, by id, whose name contains name. The
// comparison folds case in Go since SQLite's LOWER only handles ASCII.
func (d *DB) SearchOil(ctx context.Context, name string) (*Oil, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil, ErrNotFound
	}

	oils, err := d.ListOils(ctx, 0)
	if err != nil {
		return nil, err
	}

	for i := range oils {
		if strings.Contains(strings.ToLower(oils[i].Name), needle) {
			return &oils[i], nil
		}
	}

	return nil, ErrNotFound
}

// GetOilByName returns the oil with exactly this name, ignoring case.
func (d *DB) GetOilByName(ctx context.Context, name string) (*Oil, error) {
	needle := strings.ToLower(strings.TrimSpace(name))

	oils, err := d.ListOils(ctx, 0)
	if err != nil {
		return nil, err
	}

	for i := range oils {
		if strings.ToLower(oils[i].Name) == needle {
			return &oils[i], nil
		}
	}

	return nil, ErrNotFound
}

// ListOils returns up to limit oils ordered by id. A non-positive limit
// returns all of them.
func (d *DB) ListOils(ctx context.Context, limit int) ([]Oil, error) {
	query := `SELECT ` + oilColumns + ` FROM oils ORDER BY id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list oils: %w", err)
	}
	defer rows.Close()

	var oils []Oil
	for rows.Next() {
		oil, err := scanOil(rows)
		if err != nil {
			return nil, err
		}
		oils = append(oils, *oil)
	}

	return oils, rows.Err()
}

// RandomOil picks one catalog entry at random.
func (d *DB) RandomOil(ctx context.Context) (*Oil, error) {
	row := d.QueryRowContext(ctx, `SELECT `+oilColumns+` FROM oils ORDER BY RANDOM() LIMIT 1`)

	oil, err := scanOil(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return oil, err
}

// CountOils returns the catalog size.
func (d *DB) CountOils(ctx context.Context) (int, error) {
	var count int
	if err := d.QueryRowContext(ctx, `SELECT COUNT(*) FROM oils`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count oils: %w", err)
	}
	return count, nil
}

// UpsertOil inserts the oil or replaces the entry with the same name.
func (d *DB) UpsertOil(ctx context.Context, oil Oil) error {
	return upsertOil(ctx, d.DB, oil)
}

// UpsertOils writes all oils in one transaction.
func (d *DB) UpsertOils(ctx context.Context, oils []Oil) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin oil upsert: %w", err)
	}
	defer tx.Rollback()

	for _, oil := range oils {
		if err := upsertOil(ctx, tx, oil); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit oil upsert: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertOil(ctx context.Context, exec execer, oil Oil) error {
	name := strings.TrimSpace(oil.Name)
	if name == "" {
		return errors.New("oil name is required")
	}

	_, err := exec.ExecContext(ctx, `
		INSERT INTO oils (oil_name, description, emotional_effect, physical_effect,
			applications, safety_warning, joke, keywords)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(oil_name) DO UPDATE SET
			description = excluded.description,
			emotional_effect = excluded.emotional_effect,
			physical_effect = excluded.physical_effect,
			applications = excluded.applications,
			safety_warning = excluded.safety_warning,
			joke = excluded.joke,
			keywords = excluded.keywords
	`, name, oil.Description, oil.EmotionalEffect, oil.PhysicalEffect,
		oil.Applications, oil.SafetyWarning, oil.Joke, oil.Keywords)
	if err != nil {
		return fmt.Errorf("upsert oil %q: %w", name, err)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOil(row scanner) (*Oil, error) {
	var oil Oil
	err := row.Scan(&oil.ID, &oil.Name, &oil.Description, &oil.EmotionalEffect,
		&oil.PhysicalEffect, &oil.Applications, &oil.SafetyWarning, &oil.Joke, &oil.Keywords)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan oil: %w", err)
	}
	return &oil, nil
}
