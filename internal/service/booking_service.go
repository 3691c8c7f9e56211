package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"camellia/internal/database"
	"camellia/internal/events"
	"camellia/internal/metrics"
	"camellia/internal/models"
	"camellia/internal/schedule"

	"github.com/rs/zerolog"
)

// Repository is the slice of the database the booking flow writes through.
type Repository interface {
	GetService(ctx context.Context, id int64) (*models.Service, error)
	GetAppointment(ctx context.Context, id int64) (*models.Appointment, error)
	CreateAppointmentWithLock(ctx context.Context, a *models.Appointment) error
	UpdateAppointmentStatusWithVersion(ctx context.Context, id, version int64, status string) error
	RescheduleAppointmentWithVersion(ctx context.Context, id, version int64, newStart time.Time) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// SlotChecker is satisfied by *schedule.Engine.
type SlotChecker interface {
	IsBookable(ctx context.Context, start time.Time, duration time.Duration) (bool, error)
	Hours() schedule.Hours
}

// ValidationError carries field-level messages for 400 responses.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "validation failed: " + strings.Join(keys, ", ")
}

// BookingRequest is the public booking form payload.
type BookingRequest struct {
	ClientName  string
	ClientPhone string
	ClientEmail string
	ServiceID   int64
	StartAt     time.Time
	Notes       string
}

type BookingService struct {
	repo           Repository
	engine         SlotChecker
	eventBus       EventPublisher
	maxBookingDays int
	logger         *zerolog.Logger
}

func NewBookingService(repo Repository, engine SlotChecker, eventBus EventPublisher, maxBookingDays int, logger *zerolog.Logger) *BookingService {
	if maxBookingDays <= 0 {
		maxBookingDays = models.DefaultMaxBookingDays
	}
	return &BookingService{
		repo:           repo,
		engine:         engine,
		eventBus:       eventBus,
		maxBookingDays: maxBookingDays,
		logger:         logger,
	}
}

// ValidateStart checks the requested start against the booking horizon and
// the weekly schedule.
func (s *BookingService) ValidateStart(start time.Time) error {
	now := time.Now()
	if start.Before(now) {
		return database.ErrPastDate
	}
	if start.After(now.AddDate(0, 0, s.maxBookingDays)) {
		return database.ErrDateTooFar
	}
	if s.engine.Hours().IsClosedDay(start) {
		return database.ErrClosedDay
	}
	return nil
}

// RequestAppointment handles a public booking request end to end: field
// validation, slot availability, and the locked insert.
func (s *BookingService) RequestAppointment(ctx context.Context, req BookingRequest) (*models.Appointment, error) {
	fields := map[string]string{}
	if strings.TrimSpace(req.ClientName) == "" {
		fields["client_name"] = "name is required"
	}
	if strings.TrimSpace(req.ClientPhone) == "" {
		fields["client_phone"] = "phone is required"
	}
	if req.ServiceID == 0 {
		fields["service_id"] = "service is required"
	}
	if req.StartAt.IsZero() {
		fields["start_at"] = "start time is required"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	svc, err := s.repo.GetService(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}

	if err := s.ValidateStart(req.StartAt); err != nil {
		return nil, err
	}

	duration := time.Duration(svc.DurationMinutes) * time.Minute
	bookable, err := s.engine.IsBookable(ctx, req.StartAt, duration)
	if err != nil {
		return nil, err
	}
	if !bookable {
		return nil, database.ErrSlotTaken
	}

	appointment := &models.Appointment{
		ClientName:      strings.TrimSpace(req.ClientName),
		ClientPhone:     strings.TrimSpace(req.ClientPhone),
		ClientEmail:     strings.TrimSpace(req.ClientEmail),
		ServiceID:       svc.ID,
		ServiceName:     svc.Name,
		StartAt:         req.StartAt,
		DurationMinutes: svc.DurationMinutes,
		Status:          models.StatusPending,
		Notes:           strings.TrimSpace(req.Notes),
	}

	if err := s.repo.CreateAppointmentWithLock(ctx, appointment); err != nil {
		return nil, err
	}

	metrics.IncAppointmentCreated()
	s.publishEvent(events.EventAppointmentRequested, appointment)

	s.logger.Info().
		Int64("appointment_id", appointment.ID).
		Str("service", appointment.ServiceName).
		Time("start_at", appointment.StartAt).
		Msg("appointment requested")

	return appointment, nil
}

func (s *BookingService) ConfirmAppointment(ctx context.Context, id, version int64) error {
	return s.updateStatus(ctx, id, version, models.StatusConfirmed, events.EventAppointmentConfirmed)
}

func (s *BookingService) CancelAppointment(ctx context.Context, id, version int64) error {
	return s.updateStatus(ctx, id, version, models.StatusCancelled, events.EventAppointmentCancelled)
}

func (s *BookingService) CompleteAppointment(ctx context.Context, id, version int64) error {
	return s.updateStatus(ctx, id, version, models.StatusCompleted, events.EventAppointmentCompleted)
}

func (s *BookingService) updateStatus(ctx context.Context, id, version int64, status, eventType string) error {
	if err := s.repo.UpdateAppointmentStatusWithVersion(ctx, id, version, status); err != nil {
		return err
	}

	appointment, err := s.repo.GetAppointment(ctx, id)
	if err == nil {
		s.publishEvent(eventType, appointment)
	}
	return nil
}

// RescheduleAppointment moves a booking to a new start, holding the same
// availability guarantees as creation.
func (s *BookingService) RescheduleAppointment(ctx context.Context, id, version int64, newStart time.Time) error {
	if err := s.ValidateStart(newStart); err != nil {
		return err
	}

	appointment, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return err
	}

	bookable, err := s.engine.IsBookable(ctx, newStart, appointment.Duration())
	if err != nil {
		return err
	}
	if !bookable {
		return database.ErrSlotTaken
	}

	if err := s.repo.RescheduleAppointmentWithVersion(ctx, id, version, newStart); err != nil {
		return err
	}

	s.logger.Info().
		Int64("appointment_id", id).
		Time("new_start", newStart).
		Msg("appointment rescheduled")
	return nil
}

func (s *BookingService) publishEvent(eventType string, a *models.Appointment) {
	if s.eventBus == nil {
		return
	}
	payload := events.AppointmentEventPayload{
		AppointmentID: a.ID,
		ClientName:    a.ClientName,
		ClientPhone:   a.ClientPhone,
		ServiceID:     a.ServiceID,
		ServiceName:   a.ServiceName,
		StartAt:       a.StartAt,
		Status:        a.Status,
		Notes:         a.Notes,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Msg("publish event failed")
	}
}
