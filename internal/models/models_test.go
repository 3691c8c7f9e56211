package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppointmentDuration(t *testing.T) {
	a := Appointment{DurationMinutes: 90}
	assert.Equal(t, 90*time.Minute, a.Duration())

	// Missing duration falls back to the default.
	a = Appointment{}
	assert.Equal(t, time.Duration(DefaultDurationMinutes)*time.Minute, a.Duration())
}

func TestAppointmentEndAt(t *testing.T) {
	start := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)
	a := Appointment{StartAt: start, DurationMinutes: 45}
	assert.Equal(t, start.Add(45*time.Minute), a.EndAt())
}

func TestAppointmentBlocks(t *testing.T) {
	for status, blocks := range map[string]bool{
		StatusPending:   true,
		StatusConfirmed: true,
		StatusCompleted: true,
		StatusCancelled: false,
	} {
		a := Appointment{Status: status}
		assert.Equal(t, blocks, a.Blocks(), "status %s", status)
	}
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(StatusPending))
	assert.True(t, ValidStatus(StatusCompleted))
	assert.False(t, ValidStatus("archived"))
	assert.False(t, ValidStatus(""))
}

func TestDayOverrideDateOnly(t *testing.T) {
	o := DayOverride{Date: time.Date(2026, 9, 10, 15, 30, 0, 0, time.UTC)}
	assert.Equal(t, "2026-09-10", o.DateOnly())
}
