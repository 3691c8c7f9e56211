package database

import (
	"context"
	"fmt"
	"time"

	"camellia/internal/models"
)

func (db *DB) CreateNotification(ctx context.Context, n *models.Notification) error {
	now := time.Now().UTC()
	result, err := db.db.ExecContext(ctx,
		`INSERT INTO notifications (type, message, is_read, created_at) VALUES (?, ?, ?, ?)`,
		n.Type, n.Message, n.IsRead, now)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	n.ID = id
	n.CreatedAt = now
	return nil
}

func (db *DB) MarkNotificationRead(ctx context.Context, id int64) error {
	result, err := db.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
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

// ListNotifications returns notifications newest-first, optionally only the
// unread ones.
func (db *DB) ListNotifications(ctx context.Context, unreadOnly bool, params ListParams) ([]*models.Notification, int64, error) {
	params.Normalize()

	where := ""
	if unreadOnly {
		where = ` WHERE is_read = 0`
	}

	var total int64
	if err := db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications`+where).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}

	rows, err := db.db.QueryContext(ctx,
		`SELECT id, type, message, is_read, created_at FROM notifications`+where+
			` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		params.PerPage, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.Type, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}
	return notifications, total, rows.Err()
}
