package schedule

import "time"

// Interval is a half-open [Start, End) time span.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether two half-open intervals intersect.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// IsZero reports whether the interval is unset.
func (i Interval) IsZero() bool {
	return i.Start.IsZero() && i.End.IsZero()
}

// Slots walks a cursor from windowStart to windowEnd in step increments and
// returns every candidate [cursor, cursor+duration) that fits inside the
// window and overlaps none of the busy intervals. The walk order makes the
// result sorted by start time ascending.
//
// The cursor advances by step regardless of duration, so longer services
// produce overlapping candidates (a 90-minute slot may start at 9:00 and
// 9:15). All times are expected to share one location.
func Slots(windowStart, windowEnd time.Time, duration, step time.Duration, busy []Interval) []Interval {
	if duration <= 0 || step <= 0 {
		return nil
	}
	if !windowEnd.After(windowStart) {
		return nil
	}

	var slots []Interval
	for cursor := windowStart; !cursor.Add(duration).After(windowEnd); cursor = cursor.Add(step) {
		candidate := Interval{Start: cursor, End: cursor.Add(duration)}
		if !overlapsAny(candidate, busy) {
			slots = append(slots, candidate)
		}
	}
	return slots
}

func overlapsAny(candidate Interval, busy []Interval) bool {
	for _, b := range busy {
		if b.IsZero() {
			continue
		}
		if candidate.Overlaps(b) {
			return true
		}
	}
	return false
}
