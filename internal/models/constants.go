package models

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

const (
	BackendDrive = "drive"
	BackendLocal = "local"
)

const (
	// DefaultDurationMinutes is assumed when a service row carries no duration.
	DefaultDurationMinutes = 60

	// SlotStepMinutes is the walk granularity of the slot generator. A longer
	// service still starts on these boundaries, producing overlapping
	// candidate windows on purpose (existing bookings rely on it).
	SlotStepMinutes = 15

	// PublicURLCacheTTL время жизни кэша публичных ссылок Drive
	PublicURLCacheTTL = 24 * 60 * 60 // 24 hours in seconds

	// DefaultMaxBookingDays ограничивает горизонт бронирования
	DefaultMaxBookingDays = 60

	// DefaultPerPage размер страницы списков по умолчанию
	DefaultPerPage = 20

	// MaxPerPage верхняя граница размера страницы
	MaxPerPage = 100

	// BookingRateLimit запросов на бронирование в окне
	BookingRateLimit = 5

	// BookingRateWindow окно ограничения частоты бронирований
	BookingRateWindow = 60 // seconds
)

// ValidStatus reports whether s is a known appointment status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}
