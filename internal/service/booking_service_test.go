package service

import (
	"context"
	"io"
	"testing"
	"time"

	"camellia/internal/database"
	"camellia/internal/models"
	"camellia/internal/schedule"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	services     map[int64]*models.Service
	appointments map[int64]*models.Appointment
	nextID       int64
	createErr    error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		services:     make(map[int64]*models.Service),
		appointments: make(map[int64]*models.Appointment),
	}
}

func (f *fakeRepo) GetService(_ context.Context, id int64) (*models.Service, error) {
	svc, ok := f.services[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return svc, nil
}

func (f *fakeRepo) GetAppointment(_ context.Context, id int64) (*models.Appointment, error) {
	a, ok := f.appointments[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return a, nil
}

func (f *fakeRepo) CreateAppointmentWithLock(_ context.Context, a *models.Appointment) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	a.ID = f.nextID
	a.Version = 1
	f.appointments[a.ID] = a
	return nil
}

func (f *fakeRepo) UpdateAppointmentStatusWithVersion(_ context.Context, id, version int64, status string) error {
	a, ok := f.appointments[id]
	if !ok {
		return database.ErrNotFound
	}
	if a.Version != version {
		return database.ErrVersionConflict
	}
	a.Status = status
	a.Version++
	return nil
}

func (f *fakeRepo) RescheduleAppointmentWithVersion(_ context.Context, id, version int64, newStart time.Time) error {
	a, ok := f.appointments[id]
	if !ok {
		return database.ErrNotFound
	}
	if a.Version != version {
		return database.ErrVersionConflict
	}
	a.StartAt = newStart
	a.Version++
	return nil
}

type fakeChecker struct {
	bookable bool
}

func (f *fakeChecker) IsBookable(context.Context, time.Time, time.Duration) (bool, error) {
	return f.bookable, nil
}

func (f *fakeChecker) Hours() schedule.Hours {
	return schedule.Hours{
		Open:            8 * time.Hour,
		Close:           18 * time.Hour,
		Step:            15 * time.Minute,
		DefaultDuration: time.Hour,
		ClosedWeekdays:  map[time.Weekday]bool{time.Sunday: true},
		Location:        time.UTC,
	}
}

type recordingBus struct {
	events []string
}

func (b *recordingBus) PublishJSON(eventType string, _ interface{}) error {
	b.events = append(b.events, eventType)
	return nil
}

func newTestService(repo *fakeRepo, checker *fakeChecker, bus *recordingBus) *BookingService {
	logger := zerolog.New(io.Discard)
	return NewBookingService(repo, checker, bus, 60, &logger)
}

// nextOpenDay returns a bookable weekday roughly a week out.
func nextOpenDay(t *testing.T) time.Time {
	t.Helper()
	day := time.Now().UTC().AddDate(0, 0, 7)
	for day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, 1)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 10, 0, 0, 0, time.UTC)
}

func TestRequestAppointmentSuccess(t *testing.T) {
	repo := newFakeRepo()
	repo.services[1] = &models.Service{ID: 1, Name: "Classic manicure", DurationMinutes: 45, IsActive: true}
	bus := &recordingBus{}
	svc := newTestService(repo, &fakeChecker{bookable: true}, bus)

	start := nextOpenDay(t)
	a, err := svc.RequestAppointment(context.Background(), BookingRequest{
		ClientName:  "  Anna ",
		ClientPhone: "+70000000001",
		ServiceID:   1,
		StartAt:     start,
	})
	require.NoError(t, err)
	require.NotNil(t, a)

	assert.Equal(t, "Anna", a.ClientName)
	assert.Equal(t, "Classic manicure", a.ServiceName)
	assert.Equal(t, 45, a.DurationMinutes)
	assert.Equal(t, models.StatusPending, a.Status)
	assert.Equal(t, []string{"appointment_requested"}, bus.events)
}

func TestRequestAppointmentFieldValidation(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeChecker{bookable: true}, &recordingBus{})

	_, err := svc.RequestAppointment(context.Background(), BookingRequest{})

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Fields, "client_name")
	assert.Contains(t, validation.Fields, "client_phone")
	assert.Contains(t, validation.Fields, "service_id")
	assert.Contains(t, validation.Fields, "start_at")
}

func TestRequestAppointmentUnknownService(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeChecker{bookable: true}, &recordingBus{})

	_, err := svc.RequestAppointment(context.Background(), BookingRequest{
		ClientName:  "Anna",
		ClientPhone: "+70000000001",
		ServiceID:   99,
		StartAt:     nextOpenDay(t),
	})
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestRequestAppointmentStartValidation(t *testing.T) {
	repo := newFakeRepo()
	repo.services[1] = &models.Service{ID: 1, Name: "Manicure", DurationMinutes: 60}
	svc := newTestService(repo, &fakeChecker{bookable: true}, &recordingBus{})
	ctx := context.Background()

	base := BookingRequest{ClientName: "Anna", ClientPhone: "+70000000001", ServiceID: 1}

	past := base
	past.StartAt = time.Now().UTC().Add(-time.Hour)
	_, err := svc.RequestAppointment(ctx, past)
	assert.ErrorIs(t, err, database.ErrPastDate)

	far := base
	far.StartAt = time.Now().UTC().AddDate(0, 0, 90)
	_, err = svc.RequestAppointment(ctx, far)
	assert.ErrorIs(t, err, database.ErrDateTooFar)

	sunday := base
	day := nextOpenDay(t)
	for day.Weekday() != time.Sunday {
		day = day.AddDate(0, 0, 1)
	}
	sunday.StartAt = day
	_, err = svc.RequestAppointment(ctx, sunday)
	assert.ErrorIs(t, err, database.ErrClosedDay)
}

func TestRequestAppointmentSlotTaken(t *testing.T) {
	repo := newFakeRepo()
	repo.services[1] = &models.Service{ID: 1, Name: "Manicure", DurationMinutes: 60}
	bus := &recordingBus{}
	svc := newTestService(repo, &fakeChecker{bookable: false}, bus)

	_, err := svc.RequestAppointment(context.Background(), BookingRequest{
		ClientName:  "Anna",
		ClientPhone: "+70000000001",
		ServiceID:   1,
		StartAt:     nextOpenDay(t),
	})
	assert.ErrorIs(t, err, database.ErrSlotTaken)
	assert.Empty(t, bus.events)
}

func TestStatusTransitionsPublishEvents(t *testing.T) {
	repo := newFakeRepo()
	repo.services[1] = &models.Service{ID: 1, Name: "Manicure", DurationMinutes: 60}
	bus := &recordingBus{}
	svc := newTestService(repo, &fakeChecker{bookable: true}, bus)
	ctx := context.Background()

	a, err := svc.RequestAppointment(ctx, BookingRequest{
		ClientName:  "Anna",
		ClientPhone: "+70000000001",
		ServiceID:   1,
		StartAt:     nextOpenDay(t),
	})
	require.NoError(t, err)

	require.NoError(t, svc.ConfirmAppointment(ctx, a.ID, 1))
	require.NoError(t, svc.CompleteAppointment(ctx, a.ID, 2))

	assert.Equal(t, []string{
		"appointment_requested",
		"appointment_confirmed",
		"appointment_completed",
	}, bus.events)

	err = svc.CancelAppointment(ctx, a.ID, 1)
	assert.ErrorIs(t, err, database.ErrVersionConflict)
}

func TestRescheduleAppointment(t *testing.T) {
	repo := newFakeRepo()
	repo.services[1] = &models.Service{ID: 1, Name: "Manicure", DurationMinutes: 60}
	svc := newTestService(repo, &fakeChecker{bookable: true}, &recordingBus{})
	ctx := context.Background()

	a, err := svc.RequestAppointment(ctx, BookingRequest{
		ClientName:  "Anna",
		ClientPhone: "+70000000001",
		ServiceID:   1,
		StartAt:     nextOpenDay(t),
	})
	require.NoError(t, err)

	newStart := nextOpenDay(t).Add(2 * time.Hour)
	require.NoError(t, svc.RescheduleAppointment(ctx, a.ID, 1, newStart))
	assert.True(t, repo.appointments[a.ID].StartAt.Equal(newStart))

	err = svc.RescheduleAppointment(ctx, 4242, 1, newStart)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"b": "x", "a": "y"}}
	assert.Equal(t, "validation failed: a, b", err.Error())
}
