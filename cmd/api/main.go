package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/user/backlink-service/internal/adapter/postgres"
	redis_adapter "github.com/user/backlink-service/internal/adapter/redis"
	"github.com/user/backlink-service/internal/analyzer"
	"github.com/user/backlink-service/internal/delivery/http/handler"
	"github.com/user/backlink-service/internal/delivery/http/router"
	"github.com/user/backlink-service/internal/fetcher"
	"github.com/user/backlink-service/internal/notify"
	"github.com/user/backlink-service/internal/provider"
	"github.com/user/backlink-service/internal/telemetry"
	"github.com/user/backlink-service/internal/usecase"
	"github.com/user/backlink-service/pkg/config"
	"github.com/user/backlink-service/pkg/logger"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Unable to load configuration", "error", err)
		os.Exit(1)
	}

	// --- Logger ---
	logLevel := slog.LevelInfo
	if cfg.LogLevel == "debug" {
		logLevel = slog.LevelDebug
	}
	logger.Init(os.Stdout, logLevel)
	slog.Info("Logger initialized", "level", logLevel.String())

	// --- Database Connections ---
	ctx := context.Background()

	dbpool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		slog.Error("Unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	slog.Info("PostgreSQL connection pool established")

	if err := postgres.Migrate(ctx, dbpool); err != nil {
		slog.Error("Unable to apply migrations", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		slog.Error("Unable to connect to Redis", "error", err)
		os.Exit(1)
	}
	slog.Info("Redis connection established")

	// --- Repositories ---
	scanRepo := postgres.NewScanRepo(dbpool)
	metricsCache := redis_adapter.NewMetricsCache(rdb)

	// --- Outbound clients ---
	httpClient := fetcher.New(fetcher.Options{
		ConnectTimeout: cfg.ScanConnectTimeout(),
		Timeout:        cfg.ScanTimeout(),
		MaxRedirects:   cfg.ScanMaxRedirects,
		UserAgent:      cfg.ScanUserAgent,
		AllowPrivate:   cfg.ScanAllowPrivate,
	})
	metricsProvider, err := provider.New(cfg.MetricsProvider, cfg, httpClient, metricsCache)
	if err != nil {
		slog.Error("Unable to configure metrics provider", "error", err)
		os.Exit(1)
	}

	// --- Use Cases ---
	orchestrator := usecase.NewScanOrchestrator(
		scanRepo,
		analyzer.New(httpClient),
		metricsProvider,
		notify.NewLogNotifier(),
		telemetry.New(cfg.TelemetryEnabled),
		cfg,
	)

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(orchestrator, metricsProvider)
	httpRouter := router.New(apiHandler)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      httpRouter,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	slog.Info("Starting server", "port", cfg.ServerPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Could not listen on port", "port", cfg.ServerPort, "error", err)
		os.Exit(1)
	}
}
