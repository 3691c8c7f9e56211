package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"camellia/internal/models"
)

const appointmentColumns = `id, client_name, client_phone, client_email, service_id, service_name,
        start_at, duration_minutes, status, notes, created_at, updated_at, version`

func scanAppointment(row interface{ Scan(...any) error }) (*models.Appointment, error) {
	var a models.Appointment
	var email, notes sql.NullString
	err := row.Scan(
		&a.ID, &a.ClientName, &a.ClientPhone, &email, &a.ServiceID, &a.ServiceName,
		&a.StartAt, &a.DurationMinutes, &a.Status, &notes, &a.CreatedAt, &a.UpdatedAt, &a.Version,
	)
	if err != nil {
		return nil, err
	}
	a.ClientEmail = email.String
	a.Notes = notes.String
	return &a, nil
}

func (db *DB) GetAppointment(ctx context.Context, id int64) (*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = ?`
	a, err := scanAppointment(db.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return a, nil
}

// ActiveAppointmentsByRange returns every non-cancelled appointment whose
// start falls within [start, end), ordered by start time.
func (db *DB) ActiveAppointmentsByRange(ctx context.Context, start, end time.Time) ([]*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
        WHERE start_at >= ? AND start_at < ? AND status != ?
        ORDER BY start_at ASC`
	rows, err := db.db.QueryContext(ctx, query, start.UTC(), end.UTC(), models.StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	var appointments []*models.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appointments = append(appointments, a)
	}
	return appointments, rows.Err()
}

// CreateAppointment inserts without any availability check. Used by tests and
// admin imports; the booking path goes through CreateAppointmentWithLock.
func (db *DB) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	return db.insertAppointment(ctx, db.db, a)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (db *DB) insertAppointment(ctx context.Context, ex execer, a *models.Appointment) error {
	query := `INSERT INTO appointments (
                client_name, client_phone, client_email, service_id, service_name,
                start_at, duration_minutes, status, notes, created_at, updated_at, version
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	if a.Status == "" {
		a.Status = models.StatusPending
	}
	if a.DurationMinutes <= 0 {
		a.DurationMinutes = models.DefaultDurationMinutes
	}
	result, err := ex.ExecContext(ctx, query,
		a.ClientName,
		a.ClientPhone,
		nullable(a.ClientEmail),
		a.ServiceID,
		a.ServiceName,
		a.StartAt.UTC(),
		a.DurationMinutes,
		a.Status,
		nullable(a.Notes),
		now,
		now,
		1,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	a.ID = id
	a.CreatedAt = now
	a.UpdatedAt = now
	a.Version = 1
	return nil
}

// CreateAppointmentWithLock re-checks slot overlap and inserts inside a single
// transaction, so two concurrent booking requests for the same window cannot
// both succeed.
func (db *DB) CreateAppointmentWithLock(ctx context.Context, a *models.Appointment) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	dayStart := time.Date(a.StartAt.Year(), a.StartAt.Month(), a.StartAt.Day(), 0, 0, 0, 0, a.StartAt.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	query := `SELECT start_at, duration_minutes FROM appointments
        WHERE start_at >= ? AND start_at < ? AND status != ?`
	rows, err := tx.QueryContext(ctx, query, dayStart.UTC(), dayEnd.UTC(), models.StatusCancelled)
	if err != nil {
		return fmt.Errorf("failed to query existing appointments: %w", err)
	}

	newStart := a.StartAt.UTC()
	newEnd := newStart.Add(a.Duration())
	for rows.Next() {
		var start time.Time
		var minutes int
		if err := rows.Scan(&start, &minutes); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan appointment: %w", err)
		}
		if minutes <= 0 {
			minutes = models.DefaultDurationMinutes
		}
		end := start.Add(time.Duration(minutes) * time.Minute)
		// Half-open intervals: [newStart,newEnd) vs [start,end).
		if newStart.Before(end) && start.Before(newEnd) {
			rows.Close()
			return ErrSlotTaken
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("failed to iterate appointments: %w", err)
	}
	rows.Close()

	if err := db.insertAppointment(ctx, tx, a); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit appointment: %w", err)
	}
	return nil
}

// UpdateAppointmentStatusWithVersion applies an optimistic-concurrency status
// change. Returns ErrVersionConflict when the row moved underneath the caller.
func (db *DB) UpdateAppointmentStatusWithVersion(ctx context.Context, id, version int64, status string) error {
	query := `UPDATE appointments
        SET status = ?, updated_at = ?, version = version + 1
        WHERE id = ? AND version = ?`
	result, err := db.db.ExecContext(ctx, query, status, time.Now().UTC(), id, version)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		var exists int64
		if err := db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM appointments WHERE id = ?`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check appointment existence: %w", err)
		}
		if exists == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

// RescheduleAppointmentWithVersion moves an appointment to a new start time,
// holding the same overlap guarantees as creation.
func (db *DB) RescheduleAppointmentWithVersion(ctx context.Context, id, version int64, newStart time.Time) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var minutes int
	err = tx.QueryRowContext(ctx, `SELECT duration_minutes FROM appointments WHERE id = ?`, id).Scan(&minutes)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load appointment: %w", err)
	}
	if minutes <= 0 {
		minutes = models.DefaultDurationMinutes
	}

	start := newStart.UTC()
	end := start.Add(time.Duration(minutes) * time.Minute)
	dayStart := time.Date(newStart.Year(), newStart.Month(), newStart.Day(), 0, 0, 0, 0, newStart.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	rows, err := tx.QueryContext(ctx, `SELECT start_at, duration_minutes FROM appointments
        WHERE start_at >= ? AND start_at < ? AND status != ? AND id != ?`,
		dayStart.UTC(), dayEnd.UTC(), models.StatusCancelled, id)
	if err != nil {
		return fmt.Errorf("failed to query existing appointments: %w", err)
	}
	for rows.Next() {
		var otherStart time.Time
		var otherMinutes int
		if err := rows.Scan(&otherStart, &otherMinutes); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan appointment: %w", err)
		}
		if otherMinutes <= 0 {
			otherMinutes = models.DefaultDurationMinutes
		}
		otherEnd := otherStart.Add(time.Duration(otherMinutes) * time.Minute)
		if start.Before(otherEnd) && otherStart.Before(end) {
			rows.Close()
			return ErrSlotTaken
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("failed to iterate appointments: %w", err)
	}
	rows.Close()

	result, err := tx.ExecContext(ctx, `UPDATE appointments
        SET start_at = ?, updated_at = ?, version = version + 1
        WHERE id = ? AND version = ?`,
		start, time.Now().UTC(), id, version)
	if err != nil {
		return fmt.Errorf("failed to reschedule appointment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reschedule: %w", err)
	}
	return nil
}

// ListAppointmentsPaginated returns appointments newest-first with an
// optional status filter.
func (db *DB) ListAppointmentsPaginated(ctx context.Context, params ListParams) ([]*models.Appointment, int64, error) {
	params.Normalize()

	where := ""
	args := []any{}
	if params.Status != "" {
		where = ` WHERE status = ?`
		args = append(args, params.Status)
	}

	var total int64
	if err := db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM appointments`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count appointments: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments` + where +
		` ORDER BY start_at DESC LIMIT ? OFFSET ?`
	args = append(args, params.PerPage, params.Offset())

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	var appointments []*models.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appointments = append(appointments, a)
	}
	return appointments, total, rows.Err()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	// mattn/go-sqlite3 exposes sqlite3.Error, but matching on the message
	// covers both the table and index UNIQUE variants without type asserts.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
