package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"camellia/internal/models"
)

func (db *DB) GetReview(ctx context.Context, id int64) (*models.Review, error) {
	var r models.Review
	err := db.db.QueryRowContext(ctx,
		`SELECT id, author_name, rating, text, is_approved, created_at FROM reviews WHERE id = ?`, id).
		Scan(&r.ID, &r.AuthorName, &r.Rating, &r.Text, &r.IsApproved, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return &r, nil
}

// CreateReview stores a visitor review; it stays hidden until approved.
func (db *DB) CreateReview(ctx context.Context, r *models.Review) error {
	now := time.Now().UTC()
	result, err := db.db.ExecContext(ctx,
		`INSERT INTO reviews (author_name, rating, text, is_approved, created_at) VALUES (?, ?, ?, ?, ?)`,
		r.AuthorName, r.Rating, r.Text, r.IsApproved, now)
	if err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	r.ID = id
	r.CreatedAt = now
	return nil
}

func (db *DB) SetReviewApproval(ctx context.Context, id int64, approved bool) error {
	result, err := db.db.ExecContext(ctx,
		`UPDATE reviews SET is_approved = ? WHERE id = ?`, approved, id)
	if err != nil {
		return fmt.Errorf("failed to update review approval: %w", err)
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

func (db *DB) DeleteReview(ctx context.Context, id int64) error {
	result, err := db.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
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

// ListReviewsPaginated returns reviews newest-first. approvedOnly filters to
// the public view.
func (db *DB) ListReviewsPaginated(ctx context.Context, approvedOnly bool, params ListParams) ([]*models.Review, int64, error) {
	params.Normalize()

	where := ""
	if approvedOnly {
		where = ` WHERE is_approved = 1`
	}

	var total int64
	if err := db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews`+where).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}

	rows, err := db.db.QueryContext(ctx,
		`SELECT id, author_name, rating, text, is_approved, created_at FROM reviews`+where+
			` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		params.PerPage, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*models.Review
	for rows.Next() {
		var r models.Review
		if err := rows.Scan(&r.ID, &r.AuthorName, &r.Rating, &r.Text, &r.IsApproved, &r.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, &r)
	}
	return reviews, total, rows.Err()
}
