package database

import "errors"

var (
	ErrNotFound        = errors.New("record not found")
	ErrSlotTaken       = errors.New("time slot is already booked")
	ErrPastDate        = errors.New("date is in the past")
	ErrDateTooFar      = errors.New("date is beyond the booking horizon")
	ErrClosedDay       = errors.New("salon is closed on this day")
	ErrVersionConflict = errors.New("version conflict, record was modified")
)
