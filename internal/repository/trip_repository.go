package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bikeshare-platform/internal/models"
	"bikeshare-platform/pkg/database"
	"bikeshare-platform/pkg/logging"
	"bikeshare-platform/pkg/metrics"
)

// TripRepository provides data access for imported city datasets
type TripRepository interface {
	// Dataset operations
	UpsertDataset(ctx context.Context, dataset *models.Dataset) error
	GetDataset(ctx context.Context, city string) (*models.Dataset, error)
	ListDatasets(ctx context.Context) ([]*models.Dataset, error)

	// Trip operations
	ReplaceTrips(ctx context.Context, city string, trips []models.TripRecord, batchSize int) error
	ListTrips(ctx context.Context, city string) ([]models.TripRecord, error)
	CountTrips(ctx context.Context, city string) (int, error)

	// Utility operations
	HealthCheck(ctx context.Context) error
}

// tripRepository implements TripRepository
type tripRepository struct {
	db      *database.DB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewTripRepository creates a new trip repository
func NewTripRepository(db *database.DB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) TripRepository {
	return &tripRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// UpsertDataset creates a dataset row or refreshes its schema flags
func (r *tripRepository) UpsertDataset(ctx context.Context, dataset *models.Dataset) error {
	query := `
		INSERT INTO datasets (city, has_gender, has_birth_year, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (city) DO UPDATE SET
			has_gender = excluded.has_gender,
			has_birth_year = excluded.has_birth_year,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, "upsert_dataset", query,
		dataset.City,
		dataset.HasGender,
		dataset.HasBirthYear,
		dataset.CreatedAt,
		dataset.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert dataset: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_UPSERT_DATASET] Dataset saved", logging.Fields{
		"city":           dataset.City,
		"has_gender":     dataset.HasGender,
		"has_birth_year": dataset.HasBirthYear,
	})

	return nil
}

// GetDataset retrieves a dataset by city name
func (r *tripRepository) GetDataset(ctx context.Context, city string) (*models.Dataset, error) {
	query := `
		SELECT city, has_gender, has_birth_year, created_at, updated_at
		FROM datasets
		WHERE city = ?
	`

	var dataset models.Dataset
	err := r.db.GetContext(ctx, "get_dataset", &dataset, query, city)

	if err == sql.ErrNoRows {
		return nil, &NotFoundError{
			Resource: "dataset",
			ID:       city,
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}

	return &dataset, nil
}

// ListDatasets retrieves every imported dataset ordered by city
func (r *tripRepository) ListDatasets(ctx context.Context) ([]*models.Dataset, error) {
	query := `
		SELECT city, has_gender, has_birth_year, created_at, updated_at
		FROM datasets
		ORDER BY city
	`

	var datasets []*models.Dataset
	if err := r.db.SelectContext(ctx, "list_datasets", &datasets, query); err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}

	return datasets, nil
}

// ReplaceTrips swaps a city's stored trips for the given ones in a single
// transaction, inserting in batches of batchSize
func (r *tripRepository) ReplaceTrips(ctx context.Context, city string, trips []models.TripRecord, batchSize int) error {
	if batchSize < 1 {
		batchSize = len(trips) + 1
	}

	timer := time.Now()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM trips WHERE city = ?`), city); err != nil {
		return fmt.Errorf("failed to delete trips: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
		INSERT INTO trips (
			city, seq, start_time, end_time,
			start_station, end_station, user_type, gender, birth_year
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for start := 0; start < len(trips); start += batchSize {
		batch := trips[start:min(start+batchSize, len(trips))]
		for _, t := range batch {
			_, err := stmt.ExecContext(ctx,
				city,
				t.Seq,
				t.StartTime,
				t.EndTime,
				t.StartStation,
				t.EndStation,
				t.UserType,
				t.Gender,
				t.BirthYear,
			)
			if err != nil {
				return fmt.Errorf("failed to insert trip %d: %w", t.Seq, err)
			}
		}
		r.metrics.ImportBatchSize.Observe(float64(len(batch)))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_REPLACE_TRIPS] Trips replaced", logging.Fields{
		"city":        city,
		"count":       len(trips),
		"batch_size":  batchSize,
		"duration_ms": time.Since(timer).Milliseconds(),
	})

	return nil
}

// ListTrips retrieves a city's trips in original file order
func (r *tripRepository) ListTrips(ctx context.Context, city string) ([]models.TripRecord, error) {
	query := `
		SELECT seq, start_time, end_time, start_station, end_station,
		       user_type, gender, birth_year
		FROM trips
		WHERE city = ?
		ORDER BY seq
	`

	var trips []models.TripRecord
	if err := r.db.SelectContext(ctx, "list_trips", &trips, query, city); err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}

	return trips, nil
}

// CountTrips returns the number of stored trips of a city
func (r *tripRepository) CountTrips(ctx context.Context, city string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, "count_trips", &count, `SELECT COUNT(*) FROM trips WHERE city = ?`, city); err != nil {
		return 0, fmt.Errorf("failed to count trips: %w", err)
	}
	return count, nil
}

// HealthCheck performs a repository health check
func (r *tripRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// IsTransient returns false as a missing resource stays missing
func (e *NotFoundError) IsTransient() bool {
	return false
}
