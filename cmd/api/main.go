package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"camellia/internal/api"
	"camellia/internal/config"
	"camellia/internal/database"
	"camellia/internal/drive"
	"camellia/internal/events"
	"camellia/internal/export"
	"camellia/internal/logging"
	"camellia/internal/metrics"
	"camellia/internal/models"
	"camellia/internal/notify"
	"camellia/internal/repository"
	"camellia/internal/schedule"
	"camellia/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	if err := seedCatalog(db, &logger); err != nil {
		return err
	}

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	cache := buildCache(redisClient, &logger)

	hours, err := schedule.HoursFromConfig(cfg.Business)
	if err != nil {
		return fmt.Errorf("parse business hours: %w", err)
	}
	engine := schedule.NewEngine(db, hours, &logger)

	bus := events.NewEventBus()
	bookings := service.NewBookingService(db, engine, bus, cfg.Business.MaxBookingDays, &logger)

	driveService := initDrive(cfg, cache, &logger)
	if driveService != nil {
		defer driveService.Stop()
	}
	localStore := drive.NewLocalStore(cfg.Uploads.Dir, cfg.Uploads.BaseURL)
	uploader := drive.NewUploader(driveService, localStore, cfg.Drive, &logger)

	initNotifier(cfg, db, bus, &logger)

	httpServer := api.NewHTTPServer(cfg.API, api.Deps{
		DB:       db,
		Engine:   engine,
		Bookings: bookings,
		Uploader: uploader,
		Exporter: export.NewExporter(db),
		Cache:    cache,
		Bus:      bus,
		Uploads:  cfg.Uploads,
	}, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startMetrics(ctx, cfg, &logger)

	return startServer(ctx, httpServer, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

// seedCatalog loads the initial service catalog into an empty database so a
// fresh deployment has something to book.
func seedCatalog(db *database.DB, logger *zerolog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := db.CountServices(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	catalogPath := os.Getenv("CATALOG_PATH")
	if catalogPath == "" {
		catalogPath = "configs/catalog.yaml"
	}
	data, err := os.ReadFile(catalogPath)
	if err != nil {
		logger.Warn().Err(err).Str("catalog_path", catalogPath).Msg("no catalog seed, starting with empty catalog")
		return nil
	}

	var catalog struct {
		Categories []struct {
			Name     string           `yaml:"name"`
			Slug     string           `yaml:"slug"`
			Services []models.Service `yaml:"services"`
		} `yaml:"categories"`
	}
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}

	for i, entry := range catalog.Categories {
		category := &models.Category{Name: entry.Name, Slug: entry.Slug, SortOrder: int64(i)}
		if err := db.CreateCategory(ctx, category); err != nil {
			return fmt.Errorf("seed category %q: %w", entry.Name, err)
		}
		for j := range entry.Services {
			svc := entry.Services[j]
			svc.CategoryID = category.ID
			svc.IsActive = true
			if svc.SortOrder == 0 {
				svc.SortOrder = int64(j)
			}
			if err := db.CreateService(ctx, &svc); err != nil {
				return fmt.Errorf("seed service %q: %w", svc.Name, err)
			}
		}
	}

	logger.Info().Int("categories", len(catalog.Categories)).Msg("catalog seeded")
	return nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(context.Background(), redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// buildCache wires the URL/rate-limit cache: redis with in-memory failover
// when available, plain memory otherwise.
func buildCache(redisClient *redis.Client, logger *zerolog.Logger) repository.CacheRepository {
	memory := repository.NewMemoryCacheRepository()
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverCacheRepository(
		repository.NewRedisCacheRepository(redisClient), memory, logger)
}

func initDrive(cfg *config.Config, cache repository.CacheRepository, logger *zerolog.Logger) *drive.Service {
	if cfg.Drive.CredentialsFile == "" {
		return nil
	}

	driveService, err := drive.NewService(context.Background(), cfg.Drive, cache, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("drive init failed, uploads will use local storage")
		return nil
	}

	logger.Info().Msg("google drive connected")
	return driveService
}

func initNotifier(cfg *config.Config, db *database.DB, bus *events.EventBus, logger *zerolog.Logger) {
	var sender notify.TelegramSender
	if cfg.Telegram.BotToken != "" {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
		if err != nil {
			logger.Warn().Err(err).Msg("telegram init failed, notifications stay in-app only")
		} else {
			logger.Info().Str("bot", bot.Self.UserName).Msg("telegram connected")
			sender = bot
		}
	}

	notifier := notify.New(db, sender, cfg.Telegram.AdminChatID, logger)
	notifier.Subscribe(bus)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
