package schedule

import (
	"context"
	"fmt"
	"time"

	"camellia/internal/models"

	"github.com/rs/zerolog"
)

// Store is the slice of the database the engine reads. It never writes.
type Store interface {
	ActiveAppointmentsByRange(ctx context.Context, start, end time.Time) ([]*models.Appointment, error)
	OverridesByRange(ctx context.Context, start, end time.Time) ([]*models.DayOverride, error)
}

// Engine computes bookable slots from business hours, day overrides and
// existing appointments.
type Engine struct {
	store  Store
	hours  Hours
	logger zerolog.Logger
}

func NewEngine(store Store, hours Hours, logger *zerolog.Logger) *Engine {
	return &Engine{
		store:  store,
		hours:  hours,
		logger: logger.With().Str("component", "schedule").Logger(),
	}
}

// Hours exposes the configured schedule to callers that validate requests.
func (e *Engine) Hours() Hours {
	return e.hours
}

// AvailableSlots returns the ordered bookable slots of the given calendar day
// for a service of the given duration. A non-positive duration falls back to
// the configured default.
func (e *Engine) AvailableSlots(ctx context.Context, day time.Time, duration time.Duration) ([]Interval, error) {
	if duration <= 0 {
		duration = e.hours.DefaultDuration
	}

	if e.hours.IsClosedDay(day) {
		return nil, nil
	}

	dayStart, dayEnd := e.hours.DayWindow(day)

	overrides, err := e.store.OverridesByRange(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("load day overrides: %w", err)
	}
	for _, o := range overrides {
		if !o.IsAvailable {
			// A closed override blocks the whole day.
			return nil, nil
		}
	}

	appointments, err := e.store.ActiveAppointmentsByRange(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	busy := make([]Interval, 0, len(appointments)+1)
	if br := e.hours.BreakInterval(day); !br.IsZero() {
		busy = append(busy, br)
	}
	for _, a := range appointments {
		busy = append(busy, Interval{Start: a.StartAt.In(e.hours.Location), End: a.EndAt().In(e.hours.Location)})
	}

	openAt, closeAt := e.hours.OpenWindow(day)
	slots := Slots(openAt, closeAt, duration, e.hours.Step, busy)

	e.logger.Debug().
		Str("day", dayStart.Format("2006-01-02")).
		Dur("duration", duration).
		Int("appointments", len(appointments)).
		Int("slots", len(slots)).
		Msg("computed availability")

	return slots, nil
}

// IsBookable reports whether a concrete [start, start+duration) window is
// free: open weekday, inside business hours, clear of the break, overrides
// and existing appointments.
func (e *Engine) IsBookable(ctx context.Context, start time.Time, duration time.Duration) (bool, error) {
	if duration <= 0 {
		duration = e.hours.DefaultDuration
	}

	slots, err := e.AvailableSlots(ctx, start, duration)
	if err != nil {
		return false, err
	}
	local := start.In(e.hours.Location)
	for _, s := range slots {
		if s.Start.Equal(local) {
			return true, nil
		}
	}
	return false, nil
}

// AvailableDates lists the ISO dates of the month that accept bookings: open
// weekdays without a closed override, today or later.
func (e *Engine) AvailableDates(ctx context.Context, year int, month time.Month, now time.Time) ([]string, error) {
	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, e.hours.Location)
	monthEnd := monthStart.AddDate(0, 1, 0)

	overrides, err := e.store.OverridesByRange(ctx, monthStart, monthEnd)
	if err != nil {
		return nil, fmt.Errorf("load day overrides: %w", err)
	}
	blocked := make(map[string]bool, len(overrides))
	for _, o := range overrides {
		if !o.IsAvailable {
			blocked[o.DateOnly()] = true
		}
	}

	today := now.In(e.hours.Location)
	todayKey := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, e.hours.Location)

	dates := make([]string, 0, 31)
	for day := monthStart; day.Before(monthEnd); day = day.AddDate(0, 0, 1) {
		if day.Before(todayKey) {
			continue
		}
		if e.hours.IsClosedDay(day) {
			continue
		}
		key := day.Format("2006-01-02")
		if blocked[key] {
			continue
		}
		dates = append(dates, key)
	}
	return dates, nil
}
