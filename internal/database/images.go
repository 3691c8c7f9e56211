package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"camellia/internal/models"
)

const imageColumns = `id, category, title, file_name, url, storage_backend,
        drive_file_id, width, height, sort_order, is_active, created_at`

func scanImage(row interface{ Scan(...any) error }) (*models.Image, error) {
	var img models.Image
	var title, driveFileID sql.NullString
	err := row.Scan(&img.ID, &img.Category, &title, &img.FileName, &img.URL, &img.StorageBackend,
		&driveFileID, &img.Width, &img.Height, &img.SortOrder, &img.IsActive, &img.CreatedAt)
	if err != nil {
		return nil, err
	}
	img.Title = title.String
	img.DriveFileID = driveFileID.String
	return &img, nil
}

func (db *DB) GetImage(ctx context.Context, id int64) (*models.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE id = ?`
	img, err := scanImage(db.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	return img, nil
}

func (db *DB) CreateImage(ctx context.Context, img *models.Image) error {
	now := time.Now().UTC()
	result, err := db.db.ExecContext(ctx, `INSERT INTO images (
            category, title, file_name, url, storage_backend, drive_file_id,
            width, height, sort_order, is_active, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		img.Category, nullable(img.Title), img.FileName, img.URL, img.StorageBackend,
		nullable(img.DriveFileID), img.Width, img.Height, img.SortOrder, img.IsActive, now)
	if err != nil {
		return fmt.Errorf("failed to create image: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	img.ID = id
	img.CreatedAt = now
	return nil
}

func (db *DB) DeleteImage(ctx context.Context, id int64) error {
	result, err := db.db.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
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

// ListImages returns gallery rows for a category ("" means all), active first
// in display order.
func (db *DB) ListImages(ctx context.Context, category string, activeOnly bool) ([]*models.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images`
	var clauses []string
	var args []any
	if category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, category)
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
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer rows.Close()

	var images []*models.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}
