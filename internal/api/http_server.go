package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"camellia/internal/config"
	"camellia/internal/database"
	"camellia/internal/drive"
	"camellia/internal/export"
	"camellia/internal/repository"
	"camellia/internal/schedule"
	"camellia/internal/service"

	"github.com/rs/zerolog"
)

// Deps collects everything the HTTP layer serves.
type Deps struct {
	DB       *database.DB
	Engine   *schedule.Engine
	Bookings *service.BookingService
	Uploader *drive.Uploader
	Exporter *export.Exporter
	Cache    repository.CacheRepository
	Bus      service.EventPublisher
	Uploads  config.UploadsConfig
}

// HTTPServer exposes the public booking API and the admin API.
type HTTPServer struct {
	cfg      config.APIConfig
	db       *database.DB
	engine   *schedule.Engine
	bookings *service.BookingService
	uploader *drive.Uploader
	exporter *export.Exporter
	cache    repository.CacheRepository
	bus      service.EventPublisher
	server   *http.Server
	auth     *AdminAuth
	logger   zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, deps Deps, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:      cfg,
		db:       deps.DB,
		engine:   deps.Engine,
		bookings: deps.Bookings,
		uploader: deps.Uploader,
		exporter: deps.Exporter,
		cache:    deps.Cache,
		bus:      deps.Bus,
		auth:     NewAdminAuth(cfg),
		logger:   logger.With().Str("component", "http").Logger(),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/api/availability", srv.handleAvailability)
	mux.HandleFunc("/api/availability/dates", srv.handleAvailableDates)
	mux.HandleFunc("/api/availability/admin", srv.handleOverrides)
	mux.HandleFunc("/api/availability/admin/", srv.handleOverrideByID)

	mux.HandleFunc("/api/appointments", srv.handleAppointments)
	mux.HandleFunc("/api/appointments/export", srv.handleAppointmentsExport)
	mux.HandleFunc("/api/appointments/", srv.handleAppointmentByID)

	mux.HandleFunc("/api/services", srv.handleServices)
	mux.HandleFunc("/api/services/", srv.handleServiceByID)
	mux.HandleFunc("/api/categories", srv.handleCategories)
	mux.HandleFunc("/api/categories/", srv.handleCategoryByID)

	mux.HandleFunc("/api/images", srv.handleImages)
	mux.HandleFunc("/api/images/", srv.handleImageByID)

	mux.HandleFunc("/api/reviews", srv.handleReviews)
	mux.HandleFunc("/api/reviews/", srv.handleReviewByID)

	mux.HandleFunc("/api/notifications", srv.handleNotifications)
	mux.HandleFunc("/api/notifications/", srv.handleNotificationByID)

	mux.HandleFunc("/healthz", srv.handleHealth)

	// Locally stored gallery images (Drive fallback) are served directly.
	if deps.Uploads.Dir != "" {
		prefix := deps.Uploads.BaseURL
		if prefix == "" {
			prefix = "/uploads"
		}
		mux.Handle(prefix+"/", http.StripPrefix(prefix+"/", http.FileServer(http.Dir(deps.Uploads.Dir))))
	}

	handler := loggingMiddleware(&srv.logger, mux)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

// Handler exposes the routed handler for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
