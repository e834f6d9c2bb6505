package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"bikeshare-platform/internal/analytics"
	"bikeshare-platform/internal/models"
	"bikeshare-platform/pkg/logging"
)

func sampleCollection(t *testing.T) *models.Collection {
	t.Helper()
	start := time.Date(2017, time.June, 5, 9, 0, 0, 0, time.UTC) // Monday
	male, female := "Male", "Female"
	y1980, y1990 := 1980, 1990

	records := []models.TripRecord{
		{Seq: 0, StartTime: start, EndTime: start.Add(10 * time.Minute), StartStation: "A", EndStation: "B", UserType: "Subscriber", Gender: &male, BirthYear: &y1990},
		{Seq: 1, StartTime: start.Add(24 * time.Hour), EndTime: start.Add(24*time.Hour + 20*time.Minute), StartStation: "A", EndStation: "C", UserType: "Customer", Gender: &female, BirthYear: &y1980},
		{Seq: 2, StartTime: start.AddDate(0, 1, 0), EndTime: start.AddDate(0, 1, 0).Add(30 * time.Minute), StartStation: "B", EndStation: "A", UserType: "Subscriber", Gender: &male},
	}
	return models.NewCollection(models.Schema{HasGender: true, HasBirthYear: true}, records)
}

func TestStatisticsService_Analyze(t *testing.T) {
	tests := []struct {
		name     string
		parallel bool
	}{
		{name: "sequential", parallel: false},
		{name: "parallel", parallel: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, collector := newTestDeps()
			service := NewStatisticsService(logger, collector, tt.parallel)

			criteria, err := analytics.ParseCriteria("june", "all")
			if err != nil {
				t.Fatalf("ParseCriteria: %v", err)
			}

			report, err := service.Analyze(context.Background(), "chicago", sampleCollection(t), criteria)
			if err != nil {
				t.Fatalf("Analyze: %v", err)
			}

			if report.ID == "" || report.City != "chicago" {
				t.Errorf("report header = %q %q", report.ID, report.City)
			}
			if report.Records.Len() != 2 {
				t.Fatalf("selection = %d records, want 2", report.Records.Len())
			}

			if report.Time.Err != nil || report.Time.Stats.MostCommonMonth != time.June || report.Time.Stats.MostCommonHour != 9 {
				t.Errorf("time section = %+v", report.Time)
			}
			if report.Station.Err != nil || report.Station.Stats.MostCommonStart != "A" {
				t.Errorf("station section = %+v", report.Station)
			}
			if report.Duration.Err != nil || report.Duration.Stats.Total != 30*time.Minute || report.Duration.Stats.Mean != 15*time.Minute {
				t.Errorf("duration section = %+v", report.Duration)
			}
			if report.User.Err != nil || report.User.Stats.BirthYears == nil || report.User.Stats.BirthYears.Earliest != 1980 {
				t.Errorf("user section = %+v", report.User)
			}

			if got := testutil.CollectAndCount(collector.StatsCalculationDuration); got != 4 {
				t.Errorf("stats_calculation_duration_seconds series = %d, want 4", got)
			}
		})
	}
}

func TestStatisticsService_EmptySelection(t *testing.T) {
	logger, collector := newTestDeps()
	service := NewStatisticsService(logger, collector, false)

	criteria, _ := analytics.ParseCriteria("december", "sunday")
	report, err := service.Analyze(context.Background(), "chicago", sampleCollection(t), criteria)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	for name, sectionErr := range map[string]error{
		SectionTime:     report.Time.Err,
		SectionStation:  report.Station.Err,
		SectionDuration: report.Duration.Err,
	} {
		if !errors.Is(sectionErr, analytics.ErrEmptyInput) {
			t.Errorf("%s section error = %v, want ErrEmptyInput", name, sectionErr)
		}
		if got := testutil.ToFloat64(collector.StatsFailuresTotal.WithLabelValues(name, "empty_input")); got != 1 {
			t.Errorf("stats_failures_total{%s} = %v, want 1", name, got)
		}
	}

	if report.User.Err != nil || report.User.Stats == nil {
		t.Errorf("user section should still report on empty input: %+v", report.User)
	}
}

func TestStatisticsService_KeepsSessionID(t *testing.T) {
	logger, collector := newTestDeps()
	service := NewStatisticsService(logger, collector, false)

	ctx := logging.WithSessionID(context.Background(), "01HZSESSION")
	report, err := service.Analyze(ctx, "chicago", sampleCollection(t), analytics.AllRecords)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.ID != "01HZSESSION" {
		t.Errorf("ID = %q, want session id from context", report.ID)
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := service.Analyze(cancelled, "chicago", sampleCollection(t), analytics.AllRecords); !errors.Is(err, context.Canceled) {
		t.Errorf("Analyze on cancelled context error = %v", err)
	}
}

func TestDatasetService(t *testing.T) {
	logger, _ := newTestDeps()
	loader := &countingLoader{collection: sampleCollection(t)}
	service := NewDatasetService(loader, []string{"Washington", "chicago", "new york city"}, logger)

	if got := service.Cities(); len(got) != 3 || got[0] != "chicago" || got[2] != "washington" {
		t.Errorf("Cities() = %v", got)
	}

	city, err := service.ResolveCity("  New York City ")
	if err != nil || city != "new york city" {
		t.Errorf("ResolveCity = %q, %v", city, err)
	}

	var unknown *UnknownCityError
	if _, err := service.Collection(context.Background(), "boston"); !errors.As(err, &unknown) {
		t.Errorf("Collection(boston) error = %v, want UnknownCityError", err)
	}

	for i := 0; i < 3; i++ {
		c, err := service.Collection(context.Background(), "CHICAGO")
		if err != nil || c.Len() != 3 {
			t.Fatalf("Collection = %v, %v", c, err)
		}
	}
	if loader.calls != 1 {
		t.Errorf("loader called %d times, want 1", loader.calls)
	}
}

type countingLoader struct {
	collection *models.Collection
	calls      int
}

func (l *countingLoader) Load(ctx context.Context, city string) (*models.Collection, error) {
	l.calls++
	return l.collection, nil
}

func TestDatasetService_SlowLoadLeavesCachedCitiesAvailable(t *testing.T) {
	logger, _ := newTestDeps()
	loader := &blockingLoader{
		collection: sampleCollection(t),
		slowCity:   "washington",
		started:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	service := NewDatasetService(loader, []string{"chicago", "washington"}, logger)

	if _, err := service.Collection(context.Background(), "chicago"); err != nil {
		t.Fatalf("Collection(chicago): %v", err)
	}

	slow := make(chan error, 1)
	go func() {
		_, err := service.Collection(context.Background(), "washington")
		slow <- err
	}()
	<-loader.started

	cached := make(chan error, 1)
	go func() {
		_, err := service.Collection(context.Background(), "chicago")
		cached <- err
	}()

	select {
	case err := <-cached:
		if err != nil {
			t.Errorf("Collection(chicago) during slow load: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cached city blocked behind a slow load")
	}

	close(loader.release)
	if err := <-slow; err != nil {
		t.Errorf("Collection(washington): %v", err)
	}
}

type blockingLoader struct {
	collection *models.Collection
	slowCity   string
	started    chan struct{}
	release    chan struct{}
}

func (l *blockingLoader) Load(ctx context.Context, city string) (*models.Collection, error) {
	if city == l.slowCity {
		close(l.started)
		<-l.release
	}
	return l.collection, nil
}
