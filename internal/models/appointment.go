package models

import "time"

type Appointment struct {
	ID              int64     `json:"id"`
	ClientName      string    `json:"client_name"`
	ClientPhone     string    `json:"client_phone"`
	ClientEmail     string    `json:"client_email,omitempty"`
	ServiceID       int64     `json:"service_id"`
	ServiceName     string    `json:"service_name"`
	StartAt         time.Time `json:"start_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"` // pending, confirmed, cancelled, completed
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Version         int64     `json:"version"`
}

// Duration returns the booked span, falling back to the default when the
// linked service carried no duration.
func (a *Appointment) Duration() time.Duration {
	minutes := a.DurationMinutes
	if minutes <= 0 {
		minutes = DefaultDurationMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// EndAt is the exclusive end of the appointment interval.
func (a *Appointment) EndAt() time.Time {
	return a.StartAt.Add(a.Duration())
}

// Blocks reports whether the appointment occupies its slot: cancelled
// appointments free the time, everything else keeps it.
func (a *Appointment) Blocks() bool {
	return a.Status != StatusCancelled
}
