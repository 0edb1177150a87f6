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

	"carbook/internal/api"
	"carbook/internal/auth"
	"carbook/internal/config"
	"carbook/internal/database"
	"carbook/internal/domain"
	"carbook/internal/events"
	"carbook/internal/export"
	"carbook/internal/logging"
	"carbook/internal/metrics"
	"carbook/internal/repository"
	"carbook/internal/service"
	"carbook/internal/storage"
	"carbook/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
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

	db, err := database.NewDB(cfg.Database.Path, &logger, database.WithAllowOverlap(cfg.Booking.AllowOverlap))
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer (func() { _ = repository.Close(redisClient) })()
	}
	state := initState(cfg, redisClient, &logger)

	objects, storagePing := initStorage(cfg, &logger)

	bus := events.NewEventBus(logging.Component(&logger, "events"))
	if publisher := initKafka(cfg, &logger); publisher != nil {
		defer (func() { _ = publisher.Close() })()
		delivery := worker.NewEventWorker(publisher.Handle, redisClient,
			worker.RetryPolicy{MaxRetries: cfg.Kafka.MaxRetries},
			cfg.Kafka.QueueSize, logging.Component(&logger, "event-worker"))
		bus.SubscribeAll(delivery.Enqueue)
		go delivery.Start(ctx)
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	authSvc := auth.NewService(db, state, tokens, auth.RateLimit{
		Attempts: cfg.Auth.LoginRateLimit,
		Window:   cfg.Auth.LoginRateLimitSpan,
	}, logging.Component(&logger, "auth"))

	bookingLogger := logging.Component(&logger, "bookings")
	bookings := service.NewBookingService(db, objects, state, bus, cfg.Storage.MaxImageWidth, bookingLogger)
	services := api.Services{
		Bookings: bookings,
		Cars:     service.NewCarService(db, objects, bookings, bus, cfg.Storage.MaxImageWidth, logging.Component(&logger, "cars")),
		Users:    service.NewUserService(db, auth.DefaultCost, logging.Component(&logger, "users")),
		Drafts:   service.NewDraftService(state, bookings, bookingLogger),
		Auth:     authSvc,
		Exporter: export.NewExporter(cfg.Exports.Path, &logger),
	}

	checks := map[string]api.HealthCheck{"database": db.Ping}
	if storagePing != nil {
		checks["storage"] = storagePing
	}
	httpServer := api.NewHTTPServer(cfg.API, cfg.Auth, services, checks, &logger)

	if cfg.Database.Backup.Enabled {
		backups := database.NewBackupService(db, cfg.Database.Backup, logging.Component(&logger, "backup"))
		go backups.Start(ctx)
	}

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

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := repository.Ping(pingCtx, redisClient); err != nil {
		// клиент оставляем: failover вернётся на Redis, когда он поднимется
		logger.Warn().Err(err).Msg("redis connection failed, starting on in-memory state")
		return redisClient
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initState(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.StateRepository {
	memory := repository.NewMemoryStateRepository(cfg.Booking.DraftTTL, cfg.Booking.CalendarCacheTTL)
	if redisClient == nil {
		return memory
	}
	primary := repository.NewRedisStateRepository(redisClient, cfg.Booking.DraftTTL, cfg.Booking.CalendarCacheTTL)
	return repository.NewFailoverStateRepository(primary, memory, logging.Component(logger, "state"))
}

func initStorage(cfg *config.Config, logger *zerolog.Logger) (domain.ObjectStore, api.HealthCheck) {
	if !cfg.Storage.Enabled {
		logger.Warn().Msg("object storage disabled, uploaded images will be dropped")
		return storage.NoopStore{}, nil
	}

	client, err := storage.NewClient(cfg.Storage, logging.Component(logger, "storage"))
	if err != nil {
		logger.Error().Err(err).Msg("object storage init failed, uploaded images will be dropped")
		return storage.NoopStore{}, nil
	}
	return client, client.Ping
}

func initKafka(cfg *config.Config, logger *zerolog.Logger) *events.KafkaPublisher {
	if !cfg.Kafka.Enabled {
		return nil
	}
	publisher, err := events.NewKafkaPublisher(cfg.Kafka, logging.Component(logger, "kafka"))
	if err != nil {
		logger.Warn().Err(err).Msg("kafka init failed, events stay in-process")
		return nil
	}
	logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka connected")
	return publisher
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
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Str("http_addr", httpServer.Addr()).Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
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
