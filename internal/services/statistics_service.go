package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"bikeshare-platform/internal/analytics"
	"bikeshare-platform/internal/models"
	"bikeshare-platform/pkg/logging"
	"bikeshare-platform/pkg/metrics"
)

// Statistics section names, used as log tags and metric labels
const (
	SectionTime     = "time"
	SectionStation  = "station"
	SectionDuration = "duration"
	SectionUser     = "user"
)

// SectionResult is the outcome of one statistics section.
// Exactly one of Stats and Err is set.
type SectionResult[T any] struct {
	Stats   *T
	Err     error
	Elapsed time.Duration
}

// Report gathers the four statistics sections computed over one selection
type Report struct {
	ID       string
	City     string
	Criteria analytics.Criteria
	Schema   models.Schema

	// Records is the filtered selection, in original order
	Records *models.Collection

	Time     SectionResult[analytics.TimeStats]
	Station  SectionResult[analytics.StationStats]
	Duration SectionResult[analytics.DurationStats]
	User     SectionResult[analytics.UserStats]
}

// StatisticsService filters a city collection and runs the statistics sections
type StatisticsService struct {
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector
	parallel bool
}

// NewStatisticsService creates a new statistics service. With parallel set
// the four sections run concurrently over the same immutable selection.
func NewStatisticsService(logger *logging.StructuredLogger, metricsCollector *metrics.Collector, parallel bool) *StatisticsService {
	return &StatisticsService{
		logger:   logger,
		metrics:  metricsCollector,
		parallel: parallel,
	}
}

// Analyze filters records by criteria and computes every section.
// A failing section is recorded in the report and does not stop the others.
func (s *StatisticsService) Analyze(ctx context.Context, city string, records *models.Collection, criteria analytics.Criteria) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := logging.SessionID(ctx)
	if id == "" {
		id = ulid.Make().String()
		ctx = logging.WithSessionID(ctx, id)
	}

	startTime := time.Now()
	selection := criteria.Apply(records)
	s.metrics.FilteredRecords.Observe(float64(selection.Len()))

	s.logger.Info(ctx, "[STATS_START] Starting statistics calculation", logging.Fields{
		"city":             city,
		"filter":           criteria.String(),
		"total_records":    records.Len(),
		"selected_records": selection.Len(),
		"parallel":         s.parallel,
		"stage":            "INITIALIZATION",
	})

	report := &Report{
		ID:       id,
		City:     city,
		Criteria: criteria,
		Schema:   selection.Schema(),
		Records:  selection,
	}

	tasks := []func(){
		func() { report.Time = runSection(ctx, s, SectionTime, selection, analytics.ComputeTimeStats) },
		func() { report.Station = runSection(ctx, s, SectionStation, selection, analytics.ComputeStationStats) },
		func() { report.Duration = runSection(ctx, s, SectionDuration, selection, analytics.ComputeDurationStats) },
		func() { report.User = runSection(ctx, s, SectionUser, selection, analytics.ComputeUserStats) },
	}

	if s.parallel {
		var wg sync.WaitGroup
		for _, task := range tasks {
			wg.Add(1)
			go func() {
				defer wg.Done()
				task()
			}()
		}
		wg.Wait()
	} else {
		for _, task := range tasks {
			task()
		}
	}

	s.logger.Info(ctx, "[STATS_COMPLETE] Statistics calculation completed", logging.Fields{
		"city":        city,
		"filter":      criteria.String(),
		"duration_ms": time.Since(startTime).Milliseconds(),
		"stage":       "COMPLETE",
	})

	return report, nil
}

// runSection times one statistics component and records its outcome
func runSection[T any](ctx context.Context, s *StatisticsService, section string, records *models.Collection, compute func(*models.Collection) (*T, error)) SectionResult[T] {
	timer := s.metrics.NewTimer(s.metrics.StatsCalculationDuration.WithLabelValues(section))
	stats, err := compute(records)
	elapsed := timer.ObserveDuration()

	tag := strings.ToUpper(section)
	if err != nil {
		reason := "error"
		if errors.Is(err, analytics.ErrEmptyInput) {
			reason = "empty_input"
		}
		s.metrics.RecordStatsFailure(section, reason)
		s.logger.Warn(ctx, "[STATS_"+tag+"_FAILED] Statistics section produced no result", logging.Fields{
			"section": section,
			"reason":  reason,
			"error":   err.Error(),
		})
		return SectionResult[T]{Err: err, Elapsed: elapsed}
	}

	s.logger.Debug(ctx, "[STATS_"+tag+"_COMPLETE] Statistics section calculated", logging.Fields{
		"section":     section,
		"records":     records.Len(),
		"duration_us": elapsed.Microseconds(),
	})

	return SectionResult[T]{Stats: stats, Elapsed: elapsed}
}
