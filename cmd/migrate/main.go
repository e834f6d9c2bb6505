package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"bikeshare-platform/internal/config"
	"bikeshare-platform/internal/repository"
	"bikeshare-platform/pkg/database"
	"bikeshare-platform/pkg/logging"
	"bikeshare-platform/pkg/metrics"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
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

	logger := logging.NewStructuredLogger("bikeshare-migrate", "1.0.0", logging.ParseLevel(cfg.Logging.Level))
	metricsCollector := metrics.NewCollector("bikeshare_migrate", prometheus.NewRegistry())

	// Connect to database
	db, err := database.Open(cfg.Database.Connection(), logger, metricsCollector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Printf("Connected to %s database successfully\n", db.Driver())
	fmt.Printf("Running migration: %s\n", *direction)

	if err := repository.Migrate(context.Background(), db, *direction); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute migration: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Migration completed successfully")
}
