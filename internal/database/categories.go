package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"camellia/internal/models"
)

func (db *DB) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	var c models.Category
	err := db.db.QueryRowContext(ctx,
		`SELECT id, name, slug, sort_order, created_at FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Slug, &c.SortOrder, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

func (db *DB) CreateCategory(ctx context.Context, c *models.Category) error {
	now := time.Now().UTC()
	result, err := db.db.ExecContext(ctx,
		`INSERT INTO categories (name, slug, sort_order, created_at) VALUES (?, ?, ?, ?)`,
		c.Name, c.Slug, c.SortOrder, now)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	c.ID = id
	c.CreatedAt = now
	return nil
}

func (db *DB) UpdateCategory(ctx context.Context, c *models.Category) error {
	result, err := db.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, slug = ?, sort_order = ? WHERE id = ?`,
		c.Name, c.Slug, c.SortOrder, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
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

func (db *DB) DeleteCategory(ctx context.Context, id int64) error {
	result, err := db.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
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

func (db *DB) ListCategories(ctx context.Context) ([]*models.Category, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT id, name, slug, sort_order, created_at FROM categories ORDER BY sort_order ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.SortOrder, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, &c)
	}
	return categories, rows.Err()
}
