package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/visionclaim/claims-engine/internal/auth"
	"github.com/visionclaim/claims-engine/internal/cache"
	"github.com/visionclaim/claims-engine/internal/catalog"
	"github.com/visionclaim/claims-engine/internal/config"
	"github.com/visionclaim/claims-engine/internal/database"
	"github.com/visionclaim/claims-engine/internal/detection"
	"github.com/visionclaim/claims-engine/internal/estimator"
	"github.com/visionclaim/claims-engine/internal/handlers"
	"github.com/visionclaim/claims-engine/internal/metrics"
	"github.com/visionclaim/claims-engine/internal/report"
	"github.com/visionclaim/claims-engine/internal/scheduler"
	"github.com/visionclaim/claims-engine/internal/upload"
)

const serviceName = "claims-engine"

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogging(cfg)
	logger.Info("Starting claims engine",
		"service", serviceName,
		"environment", cfg.Environment)

	// Pricing catalog is a hard dependency: refuse to start without it
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		logger.Error("Failed to load pricing catalog", "path", cfg.Catalog.Path, "error", err)
		os.Exit(1)
	}
	catalogStore := catalog.NewStore(cat)
	logger.Info("Pricing catalog loaded",
		"parts", len(cat.Parts),
		"base_currency", cat.BaseCurrency,
		"currencies", len(cat.ExchangeRates))

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", "error", err)
		}
	}()

	if err := database.RunMigrations(cfg.Database, logger); err != nil {
		logger.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	reportCache, err := cache.New(cfg.Redis, logger)
	if err != nil {
		logger.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer reportCache.Close()

	detector, err := detection.NewDetector(cfg.Detection, logger)
	if err != nil {
		logger.Error("Failed to create damage detector", "error", err)
		os.Exit(1)
	}

	uploads, err := upload.NewManager(cfg.Uploads)
	if err != nil {
		logger.Error("Failed to prepare upload directory", "error", err)
		os.Exit(1)
	}

	reportRepo := database.NewReportRepository(db, logger)
	userRepo := database.NewUserRepository(db, logger)
	authService := auth.NewService(cfg.Auth)
	collector := metrics.NewCollector()
	est := estimator.New(catalogStore, logger)
	assembler := report.NewAssembler(logger)

	taskScheduler := scheduler.New(cfg, logger, reportRepo, catalogStore)
	if err := taskScheduler.Start(); err != nil {
		logger.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer taskScheduler.Stop()

	httpHandlers := handlers.NewHTTPHandler(
		cfg,
		logger,
		detector,
		est,
		assembler,
		catalogStore,
		reportRepo,
		userRepo,
		reportCache,
		authService,
		uploads,
		collector,
	)

	router := mux.NewRouter()
	httpHandlers.RegisterRoutes(router)
	router.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("Starting HTTP server", "port", cfg.Server.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Received shutdown signal", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown HTTP server gracefully", "error", err)
	}

	logger.Info("Service shutdown complete")
}

// setupLogging configures structured logging
func setupLogging(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if cfg.Debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.Debug}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
