package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"camellia/internal/models"
)

// Day overrides are stored with a plain ISO date key; a row with
// is_available=0 closes the whole calendar day.

const dateKeyFormat = "2006-01-02"

// OverrideForDate returns the override row for the given day, or ErrNotFound.
func (db *DB) OverrideForDate(ctx context.Context, date time.Time) (*models.DayOverride, error) {
	query := `SELECT id, date, is_available, created_at FROM day_overrides WHERE date = ?`
	o, err := scanOverride(db.db.QueryRowContext(ctx, query, date.Format(dateKeyFormat)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get day override: %w", err)
	}
	return o, nil
}

func scanOverride(row interface{ Scan(...any) error }) (*models.DayOverride, error) {
	var o models.DayOverride
	var dateStr string
	if err := row.Scan(&o.ID, &dateStr, &o.IsAvailable, &o.CreatedAt); err != nil {
		return nil, err
	}
	parsed, err := time.Parse(dateKeyFormat, dateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid date key %q: %w", dateStr, err)
	}
	o.Date = parsed
	return &o, nil
}

// SetDayAvailability creates or returns the override marking a day open or
// closed. Repeating the same call is a no-op returning the existing record.
func (db *DB) SetDayAvailability(ctx context.Context, date time.Time, available bool) (*models.DayOverride, error) {
	existing, err := db.OverrideForDate(ctx, date)
	if err == nil {
		if existing.IsAvailable == available {
			return existing, nil
		}
		_, err = db.db.ExecContext(ctx,
			`UPDATE day_overrides SET is_available = ? WHERE id = ?`, available, existing.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to update day override: %w", err)
		}
		existing.IsAvailable = available
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	result, err := db.db.ExecContext(ctx,
		`INSERT INTO day_overrides (date, is_available, created_at) VALUES (?, ?, ?)`,
		date.Format(dateKeyFormat), available, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create day override: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	day, _ := time.Parse(dateKeyFormat, date.Format(dateKeyFormat))
	return &models.DayOverride{ID: id, Date: day, IsAvailable: available, CreatedAt: now}, nil
}

// CloseDate blocks a whole calendar day for booking. Idempotent.
func (db *DB) CloseDate(ctx context.Context, date time.Time) (*models.DayOverride, error) {
	return db.SetDayAvailability(ctx, date, false)
}

// OpenDate explicitly opens a day, clearing a previous block. Idempotent.
func (db *DB) OpenDate(ctx context.Context, date time.Time) (*models.DayOverride, error) {
	return db.SetDayAvailability(ctx, date, true)
}

// DeleteOverride removes an override row by id.
func (db *DB) DeleteOverride(ctx context.Context, id int64) error {
	result, err := db.db.ExecContext(ctx, `DELETE FROM day_overrides WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete day override: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// OverridesByRange returns overrides for days within [start, end), ordered by
// date.
func (db *DB) OverridesByRange(ctx context.Context, start, end time.Time) ([]*models.DayOverride, error) {
	query := `SELECT id, date, is_available, created_at FROM day_overrides
        WHERE date >= ? AND date < ? ORDER BY date ASC`
	rows, err := db.db.QueryContext(ctx, query, start.Format(dateKeyFormat), end.Format(dateKeyFormat))
	if err != nil {
		return nil, fmt.Errorf("failed to query day overrides: %w", err)
	}
	defer rows.Close()

	var overrides []*models.DayOverride
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan day override: %w", err)
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}
