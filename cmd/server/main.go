package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bikeshare-platform/internal/config"
	"bikeshare-platform/internal/handlers"
	"bikeshare-platform/internal/repository"
	"bikeshare-platform/internal/services"
	"bikeshare-platform/pkg/database"
	"bikeshare-platform/pkg/logging"
	"bikeshare-platform/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := logging.NewStructuredLogger("bikeshare-api", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting bikeshare API server", logging.Fields{
		"version":     "1.0.0",
		"server_host": cfg.Server.Host,
		"server_port": cfg.Server.Port,
		"data_source": cfg.Data.Source,
		"data_dir":    cfg.Data.Dir,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("bikeshare_platform", prometheus.DefaultRegisterer)

	// Pick the dataset loader
	var (
		loader      services.Loader
		healthCheck func(ctx context.Context) error
	)

	switch cfg.Data.Source {
	case config.SourceDatabase:
		db, err := database.Open(cfg.Database.Connection(), logger, metricsCollector)
		if err != nil {
			logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{
				"driver": cfg.Database.Driver,
			}, err)
		}
		defer db.Close()

		tripRepo := repository.NewTripRepository(db, logger, metricsCollector)
		loader = services.NewRepositoryLoader(tripRepo)
		healthCheck = tripRepo.HealthCheck
	default:
		loader = services.NewCSVLoader(cfg.Data.Dir, cfg.Data.Cities, logger, metricsCollector)
	}

	// Initialize services
	cities := make([]string, 0, len(cfg.Data.Cities))
	for city := range cfg.Data.Cities {
		cities = append(cities, city)
	}
	datasetService := services.NewDatasetService(loader, cities, logger)
	statsService := services.NewStatisticsService(logger, metricsCollector, cfg.Analysis.Parallel)

	// Initialize handlers
	tripHandler := handlers.NewTripHandler(datasetService, statsService, cfg.Analysis.PageSize, healthCheck, logger, metricsCollector)

	// Setup router
	router := mux.NewRouter()

	// Register routes
	tripHandler.RegisterRoutes(router)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
