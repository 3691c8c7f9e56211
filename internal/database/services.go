package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"camellia/internal/models"
)

const serviceColumns = `id, category_id, name, description, duration_minutes, price,
        image_url, is_active, sort_order, created_at, updated_at`

func scanService(row interface{ Scan(...any) error }) (*models.Service, error) {
	var s models.Service
	var categoryID sql.NullInt64
	var description, imageURL sql.NullString
	err := row.Scan(&s.ID, &categoryID, &s.Name, &description, &s.DurationMinutes, &s.Price,
		&imageURL, &s.IsActive, &s.SortOrder, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.CategoryID = categoryID.Int64
	s.Description = description.String
	s.ImageURL = imageURL.String
	return &s, nil
}

func (db *DB) GetService(ctx context.Context, id int64) (*models.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE id = ?`
	s, err := scanService(db.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return s, nil
}

func (db *DB) CreateService(ctx context.Context, s *models.Service) error {
	now := time.Now().UTC()
	if s.DurationMinutes <= 0 {
		s.DurationMinutes = models.DefaultDurationMinutes
	}
	result, err := db.db.ExecContext(ctx, `INSERT INTO services (
            category_id, name, description, duration_minutes, price, image_url,
            is_active, sort_order, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableID(s.CategoryID), s.Name, nullable(s.Description), s.DurationMinutes,
		s.Price, nullable(s.ImageURL), s.IsActive, s.SortOrder, now, now)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	s.ID = id
	s.CreatedAt = now
	s.UpdatedAt = now
	return nil
}

func (db *DB) UpdateService(ctx context.Context, s *models.Service) error {
	result, err := db.db.ExecContext(ctx, `UPDATE services SET
            category_id = ?, name = ?, description = ?, duration_minutes = ?,
            price = ?, image_url = ?, is_active = ?, sort_order = ?, updated_at = ?
        WHERE id = ?`,
		nullableID(s.CategoryID), s.Name, nullable(s.Description), s.DurationMinutes,
		s.Price, nullable(s.ImageURL), s.IsActive, s.SortOrder, time.Now().UTC(), s.ID)
	if err != nil {
		return fmt.Errorf("failed to update service: %w", err)
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

// DeactivateService hides a service from the public catalog without deleting
// booking history that references it.
func (db *DB) DeactivateService(ctx context.Context, id int64) error {
	result, err := db.db.ExecContext(ctx,
		`UPDATE services SET is_active = 0, updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate service: %w", err)
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

// ListServices returns catalog entries ordered for display. activeOnly
// filters to the public view; categoryID of 0 means all categories.
func (db *DB) ListServices(ctx context.Context, categoryID int64, activeOnly bool) ([]*models.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services`
	var clauses []string
	var args []any
	if categoryID != 0 {
		clauses = append(clauses, "category_id = ?")
		args = append(args, categoryID)
	}
	if activeOnly {
		clauses = append(clauses, "is_active = 1")
	}
	for i, clause := range clauses {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY sort_order ASC, id ASC"

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	var services []*models.Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

// CountServices reports how many catalog rows exist; used to decide seeding.
func (db *DB) CountServices(ctx context.Context) (int64, error) {
	var count int64
	err := db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM services`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count services: %w", err)
	}
	return count, nil
}

func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
