package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"bikeshare-platform/internal/config"
	"bikeshare-platform/internal/repository"
	"bikeshare-platform/internal/services"
	"bikeshare-platform/pkg/database"
	"bikeshare-platform/pkg/logging"
	"bikeshare-platform/pkg/metrics"
)

func main() {
	// Parse command-line flags
	dataDir := flag.String("data-dir", "", "Directory containing city CSV files (default: data.dir)")
	batchSize := flag.Int("batch-size", 1000, "Number of trips to insert in each batch")
	cityList := flag.String("cities", "", "Comma-separated cities to import (default: every configured city)")
	migrate := flag.Bool("migrate", false, "Create the trip store schema before importing")
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

	if *dataDir == "" {
		*dataDir = cfg.Data.Dir
	}

	cities := make([]string, 0, len(cfg.Data.Cities))
	if *cityList != "" {
		for _, c := range strings.Split(*cityList, ",") {
			cities = append(cities, strings.ToLower(strings.TrimSpace(c)))
		}
	} else {
		for c := range cfg.Data.Cities {
			cities = append(cities, c)
		}
		slices.Sort(cities)
	}

	// Initialize logger
	logger := logging.NewStructuredLogger("bikeshare-ingester", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[INGESTER_START] Starting trip import", logging.Fields{
		"version":    "1.0.0",
		"data_dir":   *dataDir,
		"batch_size": *batchSize,
		"cities":     cities,
		"driver":     cfg.Database.Driver,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("bikeshare_ingester", prometheus.DefaultRegisterer)

	// Initialize database
	db, err := database.Open(cfg.Database.Connection(), logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[INGESTER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	if *migrate {
		if err := repository.Migrate(ctx, db, "up"); err != nil {
			logger.Fatal(ctx, "[INGESTER_ERROR] Failed to create schema", logging.Fields{}, err)
		}
	}

	// Initialize repository and services
	tripRepo := repository.NewTripRepository(db, logger, metricsCollector)
	loader := services.NewCSVLoader(*dataDir, cfg.Data.Cities, logger, metricsCollector)
	ingestionService := services.NewIngestionService(loader, tripRepo, logger, metricsCollector)

	// Import data
	result, err := ingestionService.ImportCities(ctx, cities, *batchSize)
	if err != nil {
		logger.Fatal(ctx, "[INGESTION_ERROR] Import failed", logging.Fields{
			"error": err.Error(),
		}, err)
	}

	// Print results
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("IMPORT COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Cities Imported: %d of %d\n", result.ImportedCities, result.TotalCities)
	fmt.Printf("Total Rows:      %d\n", result.TotalRows)
	fmt.Printf("Loaded Trips:    %d\n", result.LoadedRecords)
	fmt.Printf("Failed Rows:     %d\n", result.FailedRows)
	fmt.Printf("Duration:        %v\n", result.Duration)
	if seconds := result.Duration.Seconds(); seconds > 0 {
		fmt.Printf("Trips/Second:    %.2f\n", float64(result.LoadedRecords)/seconds)
	}

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(result.Errors))
		for _, errMsg := range result.Errors {
			fmt.Printf("  - %s\n", errMsg)
		}
	}

	logger.Info(ctx, "[INGESTER_COMPLETE] Import finished", logging.Fields{
		"imported_cities": result.ImportedCities,
		"loaded_records":  result.LoadedRecords,
		"failed_rows":     result.FailedRows,
		"duration_ms":     result.Duration.Milliseconds(),
	})

	if len(result.Errors) > 0 {
		os.Exit(1)
	}
}
