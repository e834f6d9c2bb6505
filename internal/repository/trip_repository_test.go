package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"bikeshare-platform/internal/models"
	"bikeshare-platform/pkg/database"
	"bikeshare-platform/pkg/logging"
	"bikeshare-platform/pkg/metrics"
)

func newTestRepository(t *testing.T) TripRepository {
	t.Helper()

	logger := logging.NewStructuredLogger("test", "0.0.1", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	collector := metrics.NewCollector("test", prometheus.NewRegistry())

	db, err := database.Open(&database.Config{
		Driver:       database.DriverSQLite,
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, logger, collector)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := Migrate(context.Background(), db, "up"); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return NewTripRepository(db, logger, collector)
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func sampleTrips() []models.TripRecord {
	base := time.Date(2017, time.June, 23, 15, 9, 32, 0, time.UTC)
	return []models.TripRecord{
		{
			Seq:          0,
			StartTime:    base,
			EndTime:      base.Add(5*time.Minute + 21*time.Second),
			StartStation: "Wood St & Hubbard St",
			EndStation:   "Damen Ave & Chicago Ave",
			UserType:     "Subscriber",
			Gender:       strPtr("Male"),
			BirthYear:    intPtr(1992),
		},
		{
			Seq:          1,
			StartTime:    base.Add(time.Hour),
			EndTime:      base.Add(time.Hour + 10*time.Minute),
			StartStation: "Damen Ave & Chicago Ave",
			EndStation:   "Wood St & Hubbard St",
			UserType:     "Customer",
		},
	}
}

func TestTripRepository_DatasetLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dataset := &models.Dataset{
		City:      "chicago",
		Schema:    models.Schema{HasGender: true, HasBirthYear: true},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.UpsertDataset(ctx, dataset); err != nil {
		t.Fatalf("UpsertDataset: %v", err)
	}

	dataset.HasBirthYear = false
	dataset.UpdatedAt = now.Add(time.Hour)
	if err := repo.UpsertDataset(ctx, dataset); err != nil {
		t.Fatalf("UpsertDataset (update): %v", err)
	}

	got, err := repo.GetDataset(ctx, "chicago")
	if err != nil {
		t.Fatalf("GetDataset: %v", err)
	}
	if !got.HasGender || got.HasBirthYear {
		t.Errorf("schema = %+v, want gender only", got.Schema)
	}
	if !got.UpdatedAt.Equal(now.Add(time.Hour)) {
		t.Errorf("UpdatedAt = %v", got.UpdatedAt)
	}

	list, err := repo.ListDatasets(ctx)
	if err != nil {
		t.Fatalf("ListDatasets: %v", err)
	}
	if len(list) != 1 || list[0].City != "chicago" {
		t.Errorf("ListDatasets = %+v", list)
	}
}

func TestTripRepository_GetDatasetNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetDataset(context.Background(), "atlantis")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error = %v, want NotFoundError", err)
	}
	if nf.IsTransient() {
		t.Error("NotFoundError should not be transient")
	}
}

func TestTripRepository_TripsRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	now := time.Now().UTC()
	if err := repo.UpsertDataset(ctx, &models.Dataset{City: "chicago", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("UpsertDataset: %v", err)
	}

	trips := sampleTrips()
	if err := repo.ReplaceTrips(ctx, "chicago", trips, 1); err != nil {
		t.Fatalf("ReplaceTrips: %v", err)
	}

	count, err := repo.CountTrips(ctx, "chicago")
	if err != nil || count != 2 {
		t.Fatalf("CountTrips = %d, %v; want 2", count, err)
	}

	got, err := repo.ListTrips(ctx, "chicago")
	if err != nil {
		t.Fatalf("ListTrips: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListTrips returned %d trips", len(got))
	}

	first := got[0]
	if first.Seq != 0 || first.StartStation != trips[0].StartStation {
		t.Errorf("first trip = %+v", first)
	}
	if first.Duration() != 5*time.Minute+21*time.Second {
		t.Errorf("Duration = %v", first.Duration())
	}
	if first.Gender == nil || *first.Gender != "Male" {
		t.Errorf("Gender = %v", first.Gender)
	}
	if first.BirthYear == nil || *first.BirthYear != 1992 {
		t.Errorf("BirthYear = %v", first.BirthYear)
	}

	second := got[1]
	if second.Gender != nil || second.BirthYear != nil {
		t.Errorf("second trip optional fields should be NULL: %+v", second)
	}

	// a re-import replaces rather than appends
	if err := repo.ReplaceTrips(ctx, "chicago", trips[1:], 0); err != nil {
		t.Fatalf("ReplaceTrips (again): %v", err)
	}
	count, err = repo.CountTrips(ctx, "chicago")
	if err != nil || count != 1 {
		t.Errorf("CountTrips after replace = %d, %v; want 1", count, err)
	}

	if err := repo.ReplaceTrips(ctx, "chicago", nil, 10); err != nil {
		t.Fatalf("ReplaceTrips (empty): %v", err)
	}
	count, err = repo.CountTrips(ctx, "chicago")
	if err != nil || count != 0 {
		t.Errorf("CountTrips after clearing = %d, %v", count, err)
	}
}

func TestMigrate(t *testing.T) {
	tests := []struct {
		name      string
		direction string
		wantErr   bool
	}{
		{name: "up is idempotent", direction: "up"},
		{name: "down", direction: "down"},
		{name: "unknown", direction: "sideways", wantErr: true},
	}

	logger := logging.NewStructuredLogger("test", "0.0.1", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	db, err := database.Open(&database.Config{
		Driver:       database.DriverSQLite,
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, logger, metrics.NewCollector("test", prometheus.NewRegistry()))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	if err := Migrate(context.Background(), db, "up"); err != nil {
		t.Fatalf("initial migrate: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Migrate(context.Background(), db, tt.direction)
			if (err != nil) != tt.wantErr {
				t.Errorf("Migrate(%q) error = %v, wantErr %v", tt.direction, err, tt.wantErr)
			}
		})
	}
}
