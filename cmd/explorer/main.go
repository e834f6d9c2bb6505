package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"bikeshare-platform/internal/cli"
	"bikeshare-platform/internal/config"
	"bikeshare-platform/internal/repository"
	"bikeshare-platform/internal/services"
	"bikeshare-platform/pkg/database"
	"bikeshare-platform/pkg/logging"
	"bikeshare-platform/pkg/metrics"
)

func main() {
	dataDir := flag.String("data-dir", "", "Directory containing city CSV files (default: data.dir)")
	flag.Parse()

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

	if *dataDir != "" {
		cfg.Data.Dir = *dataDir
	}

	// Logs go to a file or stderr so they never mix with the session on stdout
	logger := logging.NewStructuredLogger("bikeshare-explorer", "1.0.0", logging.ParseLevel(cfg.Logging.Level))
	logger.SetOutput(os.Stderr)
	if cfg.Logging.File != "" {
		logFile, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer logFile.Close()
		logger.SetOutput(logFile)
	}

	metricsCollector := metrics.NewCollector("bikeshare_explorer", prometheus.NewRegistry())

	// The first interrupt ends the session; later ones get the default behaviour
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	context.AfterFunc(ctx, stop)

	var loader services.Loader
	switch cfg.Data.Source {
	case config.SourceDatabase:
		db, err := database.Open(cfg.Database.Connection(), logger, metricsCollector)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()
		loader = services.NewRepositoryLoader(repository.NewTripRepository(db, logger, metricsCollector))
	default:
		loader = services.NewCSVLoader(cfg.Data.Dir, cfg.Data.Cities, logger, metricsCollector)
	}

	cities := make([]string, 0, len(cfg.Data.Cities))
	for city := range cfg.Data.Cities {
		cities = append(cities, city)
	}

	controller := cli.NewController(
		os.Stdin,
		os.Stdout,
		services.NewDatasetService(loader, cities, logger),
		services.NewStatisticsService(logger, metricsCollector, cfg.Analysis.Parallel),
		cfg.Analysis.PageSize,
		logger,
		metricsCollector,
	)

	logger.Info(ctx, "[EXPLORER_START] Interactive session started", logging.Fields{
		"data_source": cfg.Data.Source,
		"cities":      len(cities),
	})

	if err := controller.Run(ctx); err != nil {
		logger.Error(ctx, "[EXPLORER_ERROR] Session ended with an error", logging.Fields{}, err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
