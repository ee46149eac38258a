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

	"aforo/internal/backend"
	"aforo/internal/config"
	"aforo/internal/events"
	"aforo/internal/google"
	"aforo/internal/logging"
	"aforo/internal/metrics"
	"aforo/internal/pages"
	"aforo/internal/session"
	"aforo/internal/web"
	"aforo/internal/worker"

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
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("could not create exports directory")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, sessions := initSessions(ctx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	bus := events.NewBus()
	startAttendanceWorker(ctx, cfg, bus, redisClient, logger)

	client := backend.New(cfg.Backend, logger)
	svc := pages.NewService(client, sessions, bus, logger)

	if cfg.Monitoring.PrometheusEnabled {
		startMetrics(cfg, logger)
	}

	server := web.NewServer(cfg, svc, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server error")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown error")
	}

	logger.Info().Msg("shutdown complete")
	return nil
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, closer, nil
}

// initSessions builds the session manager over redis with an in-memory
// fallback. A missing or unreachable redis degrades, never blocks.
func initSessions(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, *session.Manager) {
	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = session.NewRedisClient(cfg.Redis)
		if err := session.Ping(ctx, redisClient); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, sessions degrade to memory")
		}
	}

	memory := session.NewMemoryStore(cfg.Session.TTL)

	var store session.Store = memory
	if redisClient != nil {
		primary := session.NewRedisStore(redisClient, cfg.Session.TTL)
		store = session.NewFailoverStore(primary, memory, logger)
	}

	return redisClient, session.NewManager(store, cfg.Session, logger)
}

// startAttendanceWorker wires the Sheets worker when credentials are
// configured; without them attendance events are simply not exported.
func startAttendanceWorker(ctx context.Context, cfg *config.Config, bus *events.Bus, redisClient *redis.Client, logger *zerolog.Logger) {
	if cfg.Google.CredentialsFile == "" || cfg.Google.AttendanceSpreadsheetID == "" {
		logger.Info().Msg("google sheets not configured, attendance export disabled")
		return
	}

	sheets, err := google.NewSheetsService(ctx, cfg.Google.CredentialsFile, cfg.Google.AttendanceSpreadsheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, attendance export disabled")
		return
	}
	if err := sheets.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets connection test failed")
	}

	w := worker.NewAttendanceWorker(sheets, redisClient, worker.RetryPolicy{}, logger)
	w.SubscribeTo(bus)
	go w.Start(ctx)
}

func startMetrics(cfg *config.Config, logger *zerolog.Logger) {
	metrics.Register()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort)
	go func() {
		logger.Info().Str("addr", addr).Msg("metrics listening")
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()
}
