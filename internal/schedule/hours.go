package schedule

import (
	"fmt"
	"time"

	"camellia/internal/config"
)

// Hours is the salon's fixed weekly schedule: daily open/close boundary, the
// lunch break, closed weekdays and slot generation parameters. All clock
// values are offsets from local midnight.
type Hours struct {
	Open            time.Duration
	Close           time.Duration
	BreakStart      time.Duration
	BreakEnd        time.Duration
	Step            time.Duration
	DefaultDuration time.Duration
	ClosedWeekdays  map[time.Weekday]bool
	Location        *time.Location
}

// HoursFromConfig parses the business section. Config validation has already
// checked the clock strings, so parse errors here mean a programming error.
func HoursFromConfig(cfg config.BusinessConfig) (Hours, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Hours{}, fmt.Errorf("load timezone: %w", err)
	}

	closed := make(map[time.Weekday]bool, len(cfg.ClosedWeekdays))
	for _, name := range cfg.ClosedWeekdays {
		day, err := config.ParseWeekday(name)
		if err != nil {
			return Hours{}, err
		}
		closed[day] = true
	}

	h := Hours{
		Open:            config.Clock(cfg.Open),
		Close:           config.Clock(cfg.Close),
		BreakStart:      config.Clock(cfg.BreakStart),
		BreakEnd:        config.Clock(cfg.BreakEnd),
		Step:            time.Duration(cfg.SlotStepMinutes) * time.Minute,
		DefaultDuration: time.Duration(cfg.DefaultDurationMinutes) * time.Minute,
		ClosedWeekdays:  closed,
		Location:        loc,
	}
	return h, nil
}

// IsClosedDay reports whether the weekday belongs to the fixed closed set.
func (h Hours) IsClosedDay(day time.Time) bool {
	return h.ClosedWeekdays[day.In(h.Location).Weekday()]
}

// DayWindow returns the midnight-to-midnight bounds of the calendar day in
// the business timezone.
func (h Hours) DayWindow(day time.Time) (time.Time, time.Time) {
	local := day.In(h.Location)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, h.Location)
	return start, start.AddDate(0, 0, 1)
}

// OpenWindow returns the bookable bounds of the day.
func (h Hours) OpenWindow(day time.Time) (time.Time, time.Time) {
	midnight, _ := h.DayWindow(day)
	return midnight.Add(h.Open), midnight.Add(h.Close)
}

// BreakInterval returns the lunch break as a busy interval, or a zero
// interval when no break is configured.
func (h Hours) BreakInterval(day time.Time) Interval {
	if h.BreakEnd <= h.BreakStart {
		return Interval{}
	}
	midnight, _ := h.DayWindow(day)
	return Interval{Start: midnight.Add(h.BreakStart), End: midnight.Add(h.BreakEnd)}
}
