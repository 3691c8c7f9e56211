package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"camellia/internal/config"
	"camellia/internal/database"
	"camellia/internal/drive"
	"camellia/internal/events"
	"camellia/internal/export"
	"camellia/internal/models"
	"camellia/internal/repository"
	"camellia/internal/schedule"
	"camellia/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-admin-key"

type testEnv struct {
	db     *database.DB
	cache  repository.CacheRepository
	server *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)

	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	hours, err := schedule.HoursFromConfig(config.BusinessConfig{
		Open:                   "08:00",
		Close:                  "18:00",
		BreakStart:             "13:00",
		BreakEnd:               "14:00",
		ClosedWeekdays:         []string{"Sunday"},
		SlotStepMinutes:        15,
		DefaultDurationMinutes: 60,
		Timezone:               "UTC",
		MaxBookingDays:         60,
	})
	require.NoError(t, err)
	engine := schedule.NewEngine(db, hours, &logger)

	bus := events.NewEventBus()
	bookings := service.NewBookingService(db, engine, bus, 60, &logger)

	uploadsDir := t.TempDir()
	uploader := drive.NewUploader(nil, drive.NewLocalStore(uploadsDir, "/uploads"),
		config.DriveConfig{MaxRetries: 0}, &logger)

	apiCfg := config.APIConfig{
		Port: 0,
		Auth: config.APIAuthConfig{
			Enabled:      true,
			HeaderAPIKey: "x-api-key",
			APIKeys:      []config.APIClientKey{{Key: testAPIKey, Name: "tests"}},
		},
	}

	cache := repository.NewMemoryCacheRepository()
	srv := NewHTTPServer(apiCfg, Deps{
		DB:       db,
		Engine:   engine,
		Bookings: bookings,
		Uploader: uploader,
		Exporter: export.NewExporter(db),
		Cache:    cache,
		Bus:      bus,
		Uploads:  config.UploadsConfig{Dir: uploadsDir, BaseURL: "/uploads"},
	}, &logger)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{db: db, cache: cache, server: ts}
}

func (e *testEnv) request(t *testing.T, method, path string, body any, admin bool) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if admin {
		req.Header.Set("x-api-key", testAPIKey)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

func seedService(t *testing.T, db *database.DB) *models.Service {
	t.Helper()
	svc := &models.Service{Name: "Classic manicure", DurationMinutes: 60, Price: 1200, IsActive: true}
	require.NoError(t, db.CreateService(context.Background(), svc))
	return svc
}

// bookableStart is a slot-aligned weekday morning about a week out.
func bookableStart() time.Time {
	day := time.Now().UTC().AddDate(0, 0, 7)
	for day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, 1)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 10, 0, 0, 0, time.UTC)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodGet, "/healthz", nil, false)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestAvailabilityEndpoint(t *testing.T) {
	env := newTestEnv(t)
	svc := seedService(t, env.db)

	day := bookableStart()
	path := fmt.Sprintf("/api/availability?date=%s&service_id=%d", day.Format("2006-01-02"), svc.ID)

	resp := env.request(t, http.MethodGet, path, nil, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var slots []slotResponse
	decodeBody(t, resp, &slots)
	// Full day, hourly service, lunch break excluded.
	require.Len(t, slots, 30)
	first := slots[0]
	assert.Equal(t, day.Format("2006-01-02"), first.Date)
	assert.Equal(t, "08:00", first.StartTime)
	assert.Equal(t, "09:00", first.EndTime)
	assert.True(t, first.Available)
	assert.Equal(t, "17:00", slots[len(slots)-1].StartTime)
}

func TestAvailabilityRequiresDate(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodGet, "/api/availability", nil, false)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAvailableDatesEndpoint(t *testing.T) {
	env := newTestEnv(t)

	target := bookableStart()
	path := fmt.Sprintf("/api/availability/dates?year=%d&month=%d", target.Year(), int(target.Month()))
	resp := env.request(t, http.MethodGet, path, nil, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var dates []string
	decodeBody(t, resp, &dates)
	assert.Contains(t, dates, target.Format("2006-01-02"))
}

func TestBookingFlow(t *testing.T) {
	env := newTestEnv(t)
	svc := seedService(t, env.db)
	start := bookableStart()

	payload := map[string]any{
		"client_name":  "Anna",
		"client_phone": "+70000000001",
		"service_id":   svc.ID,
		"start_at":     start.Format(time.RFC3339),
	}

	resp := env.request(t, http.MethodPost, "/api/appointments", payload, false)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Appointment
	decodeBody(t, resp, &created)
	require.NotZero(t, created.ID)
	assert.Equal(t, models.StatusPending, created.Status)

	// Same slot again: taken.
	resp = env.request(t, http.MethodPost, "/api/appointments", payload, false)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Admin confirms.
	resp = env.request(t, http.MethodPatch, fmt.Sprintf("/api/appointments/%d", created.ID),
		map[string]any{"status": "confirmed", "version": created.Version}, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var confirmed models.Appointment
	decodeBody(t, resp, &confirmed)
	assert.Equal(t, models.StatusConfirmed, confirmed.Status)
	assert.Equal(t, created.Version+1, confirmed.Version)

	// Stale version conflicts.
	resp = env.request(t, http.MethodPatch, fmt.Sprintf("/api/appointments/%d", created.ID),
		map[string]any{"status": "cancelled", "version": created.Version}, true)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestBookingValidation(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/api/appointments", map[string]any{}, false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "validation failed", body.Error)
	assert.Contains(t, body.Fields, "client_name")
	assert.Contains(t, body.Fields, "service_id")
}

func TestBookingRateLimit(t *testing.T) {
	env := newTestEnv(t)

	// The per-IP window admits five booking attempts, valid or not.
	for i := 0; i < models.BookingRateLimit; i++ {
		resp := env.request(t, http.MethodPost, "/api/appointments", map[string]any{}, false)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}

	resp := env.request(t, http.MethodPost, "/api/appointments", map[string]any{}, false)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestAdminEndpointsRequireKey(t *testing.T) {
	env := newTestEnv(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/appointments"},
		{http.MethodGet, "/api/notifications"},
		{http.MethodPost, "/api/availability/admin"},
		{http.MethodGet, "/api/appointments/export"},
	}
	for _, p := range paths {
		resp := env.request(t, p.method, p.path, nil, false)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", p.method, p.path)
	}
}

func TestDayOverrideBlocksBooking(t *testing.T) {
	env := newTestEnv(t)
	svc := seedService(t, env.db)
	start := bookableStart()

	resp := env.request(t, http.MethodPost, "/api/availability/admin",
		map[string]any{"date": start.Format("2006-01-02"), "is_available": false}, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var override models.DayOverride
	decodeBody(t, resp, &override)
	require.NotZero(t, override.ID)

	// The whole day is gone from availability.
	path := fmt.Sprintf("/api/availability?date=%s", start.Format("2006-01-02"))
	resp = env.request(t, http.MethodGet, path, nil, false)
	var slots []slotResponse
	decodeBody(t, resp, &slots)
	assert.Empty(t, slots)

	// And bookings on it are rejected.
	resp = env.request(t, http.MethodPost, "/api/appointments", map[string]any{
		"client_name":  "Anna",
		"client_phone": "+70000000001",
		"service_id":   svc.ID,
		"start_at":     start.Format(time.RFC3339),
	}, false)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Removing the override restores the schedule.
	resp = env.request(t, http.MethodDelete, fmt.Sprintf("/api/availability/admin/%d", override.ID), nil, true)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.request(t, http.MethodGet, path, nil, false)
	decodeBody(t, resp, &slots)
	assert.NotEmpty(t, slots)
}

func TestServicesCRUDOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/api/services",
		map[string]any{"name": "Nail art", "duration_minutes": 30, "price": 800}, true)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.Service
	decodeBody(t, resp, &created)
	require.NotZero(t, created.ID)

	// Name is required.
	resp = env.request(t, http.MethodPost, "/api/services", map[string]any{"price": 100}, true)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.request(t, http.MethodGet, fmt.Sprintf("/api/services/%d", created.ID), nil, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched models.Service
	decodeBody(t, resp, &fetched)
	assert.Equal(t, "Nail art", fetched.Name)

	resp = env.request(t, http.MethodDelete, fmt.Sprintf("/api/services/%d", created.ID), nil, true)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Deactivated services disappear from the public list.
	resp = env.request(t, http.MethodGet, "/api/services", nil, false)
	var list struct {
		Services []models.Service `json:"services"`
	}
	decodeBody(t, resp, &list)
	assert.Empty(t, list.Services)
}

func TestReviewsModerationFlow(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/api/reviews",
		map[string]any{"author_name": "Maria", "rating": 5, "text": "Great salon"}, false)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var review models.Review
	decodeBody(t, resp, &review)
	require.NotZero(t, review.ID)
	assert.False(t, review.IsApproved)

	// Bad rating.
	resp = env.request(t, http.MethodPost, "/api/reviews",
		map[string]any{"author_name": "Maria", "rating": 9, "text": "x"}, false)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Hidden until approved.
	resp = env.request(t, http.MethodGet, "/api/reviews", nil, false)
	var list struct {
		Reviews []models.Review `json:"reviews"`
		Total   int64           `json:"total"`
	}
	decodeBody(t, resp, &list)
	assert.Zero(t, list.Total)

	resp = env.request(t, http.MethodPatch, fmt.Sprintf("/api/reviews/%d", review.ID),
		map[string]any{"is_approved": true}, true)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(t, http.MethodGet, "/api/reviews", nil, false)
	decodeBody(t, resp, &list)
	assert.Equal(t, int64(1), list.Total)
}

func TestImageURLServedFromCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	img := &models.Image{
		Category:       "gallery",
		FileName:       "photo_ab12cd34.jpg",
		URL:            "https://drive.google.com/uc?export=view&id=stale",
		StorageBackend: models.BackendDrive,
		DriveFileID:    "stale",
		IsActive:       true,
	}
	require.NoError(t, env.db.CreateImage(ctx, img))

	fresh := "https://drive.google.com/uc?export=view&id=fresh"
	require.NoError(t, env.cache.SetURL(ctx, img.FileName, fresh, time.Minute))

	resp := env.request(t, http.MethodGet, fmt.Sprintf("/api/images/%d", img.ID), nil, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched models.Image
	decodeBody(t, resp, &fetched)
	assert.Equal(t, fresh, fetched.URL)

	// Locally stored uploads keep the persisted URL.
	local := &models.Image{
		Category:       "gallery",
		FileName:       "local.jpg",
		URL:            "/uploads/local.jpg",
		StorageBackend: models.BackendLocal,
		IsActive:       true,
	}
	require.NoError(t, env.db.CreateImage(ctx, local))

	resp = env.request(t, http.MethodGet, fmt.Sprintf("/api/images/%d", local.ID), nil, false)
	decodeBody(t, resp, &fetched)
	assert.Equal(t, "/uploads/local.jpg", fetched.URL)
}

func TestNotFoundMapping(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodGet, "/api/services/4242", nil, false)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.request(t, http.MethodGet, "/api/appointments/4242", nil, true)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAppointmentsExport(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodGet, "/api/appointments/export?year=2026&month=9", nil, true)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "appointments_2026-09.xlsx")

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
