package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bikeshare-platform/internal/models"
	"bikeshare-platform/internal/repository"
	"bikeshare-platform/pkg/logging"
	"bikeshare-platform/pkg/metrics"
)

// City file column headers
const (
	columnStartTime    = "Start Time"
	columnEndTime      = "End Time"
	columnStartStation = "Start Station"
	columnEndStation   = "End Station"
	columnUserType     = "User Type"
	columnGender       = "Gender"
	columnBirthYear    = "Birth Year"
)

var requiredColumns = []string{
	columnStartTime,
	columnEndTime,
	columnStartStation,
	columnEndStation,
	columnUserType,
}

// LoadResult contains per-file loading statistics
type LoadResult struct {
	City          string
	File          string
	Schema        models.Schema
	TotalRows     int
	LoadedRecords int
	FailedRows    int
	Duration      time.Duration
}

// CSVLoader reads city trip files from a data directory
type CSVLoader struct {
	dataDir string
	files   map[string]string
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewCSVLoader creates a loader for the given city → file name mapping
func NewCSVLoader(dataDir string, files map[string]string, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *CSVLoader {
	return &CSVLoader{
		dataDir: dataDir,
		files:   files,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Load implements Loader
func (l *CSVLoader) Load(ctx context.Context, city string) (*models.Collection, error) {
	collection, _, err := l.Read(ctx, city)
	return collection, err
}

// Read loads a city file and reports how many rows were usable
func (l *CSVLoader) Read(ctx context.Context, city string) (*models.Collection, *LoadResult, error) {
	fileName, ok := l.files[city]
	if !ok {
		return nil, nil, &UnknownCityError{City: city}
	}

	startTime := time.Now()
	filePath := filepath.Join(l.dataDir, fileName)

	l.logger.Info(ctx, "[LOAD_START] Loading city file", logging.Fields{
		"city":      city,
		"file_path": filePath,
		"stage":     "INITIALIZATION",
	})

	file, err := os.Open(filePath)
	if err != nil {
		l.metrics.RecordLoadError("file_error")
		return nil, nil, fmt.Errorf("failed to open city file: %w", err)
	}
	defer file.Close()

	collection, result, err := readTrips(ctx, file)
	if err != nil {
		l.metrics.RecordLoadError("file_error")
		l.logger.Error(ctx, "[LOAD_FILE_ERROR] City file could not be read", logging.Fields{
			"city":      city,
			"file_path": filePath,
			"stage":     "PARSING",
		}, err)
		return nil, nil, fmt.Errorf("failed to read %s: %w", fileName, err)
	}

	result.City = city
	result.File = filePath
	result.Duration = time.Since(startTime)

	l.metrics.LoadDuration.Observe(result.Duration.Seconds())
	l.metrics.RecordsLoadedTotal.WithLabelValues(city).Add(float64(result.LoadedRecords))
	if result.FailedRows > 0 {
		l.metrics.LoadErrorsTotal.WithLabelValues("row_error").Add(float64(result.FailedRows))
	}

	l.logger.Info(ctx, "[LOAD_COMPLETE] City file loaded", logging.Fields{
		"city":           city,
		"total_rows":     result.TotalRows,
		"loaded_records": result.LoadedRecords,
		"failed_rows":    result.FailedRows,
		"has_gender":     result.Schema.HasGender,
		"has_birth_year": result.Schema.HasBirthYear,
		"duration_ms":    result.Duration.Milliseconds(),
		"stage":          "COMPLETE",
	})

	return collection, result, nil
}

// readTrips parses a city file. The header row decides which columns are
// read and whether the dataset carries Gender and Birth Year. Rows that
// cannot be converted are skipped and counted.
func readTrips(ctx context.Context, r io.Reader) (*models.Collection, *LoadResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, errors.New("file is empty")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}

	lastRequired := 0
	for _, name := range requiredColumns {
		col, ok := index[name]
		if !ok {
			return nil, nil, fmt.Errorf("missing required column %q", name)
		}
		lastRequired = max(lastRequired, col)
	}

	genderCol, hasGender := index[columnGender]
	birthYearCol, hasBirthYear := index[columnBirthYear]

	result := &LoadResult{
		Schema: models.Schema{HasGender: hasGender, HasBirthYear: hasBirthYear},
	}

	field := func(row []string, col int) string {
		if col < len(row) {
			return row[col]
		}
		return ""
	}

	records := make([]models.TripRecord, 0, 1024)
	for row := 0; ; row++ {
		if row%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}

		fields, err := reader.Read()
		if err == io.EOF {
			break
		}

		result.TotalRows++

		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			result.FailedRows++
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("error reading row %d: %w", row+1, err)
		}

		if len(fields) <= lastRequired {
			result.FailedRows++
			continue
		}

		raw := models.RawTripRecord{
			StartTime:    field(fields, index[columnStartTime]),
			EndTime:      field(fields, index[columnEndTime]),
			StartStation: field(fields, index[columnStartStation]),
			EndStation:   field(fields, index[columnEndStation]),
			UserType:     field(fields, index[columnUserType]),
		}
		if hasGender {
			raw.Gender = field(fields, genderCol)
		}
		if hasBirthYear {
			raw.BirthYear = field(fields, birthYearCol)
		}

		trip, err := raw.ToTrip(row)
		if err != nil {
			result.FailedRows++
			continue
		}

		records = append(records, *trip)
	}

	result.LoadedRecords = len(records)

	return models.NewCollection(result.Schema, records), result, nil
}

// IngestionService imports city files into the trip store
type IngestionService struct {
	loader  *CSVLoader
	repo    repository.TripRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// IngestionResult contains ingestion statistics
type IngestionResult struct {
	TotalCities    int
	ImportedCities int
	TotalRows      int
	LoadedRecords  int
	FailedRows     int
	Duration       time.Duration
	Errors         []string
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(loader *CSVLoader, repo repository.TripRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	return &IngestionService{
		loader:  loader,
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ImportCities imports every listed city, continuing past per-city failures
func (s *IngestionService) ImportCities(ctx context.Context, cities []string, batchSize int) (*IngestionResult, error) {
	startTime := time.Now()

	s.logger.Info(ctx, "[INGEST_START] Starting trip import", logging.Fields{
		"cities":     cities,
		"batch_size": batchSize,
		"stage":      "INITIALIZATION",
	})

	if len(cities) == 0 {
		return nil, errors.New("no cities to import")
	}

	result := &IngestionResult{
		TotalCities: len(cities),
		Errors:      make([]string, 0),
	}

	for _, city := range cities {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cityResult, err := s.ImportCity(ctx, city, batchSize)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to import %s: %v", city, err))
			s.logger.Error(ctx, "[INGEST_CITY_ERROR] City import failed", logging.Fields{
				"city":  city,
				"stage": "CITY_PROCESSING",
			}, err)
			s.metrics.RecordLoadError("import_error")
			continue
		}

		result.ImportedCities++
		result.TotalRows += cityResult.TotalRows
		result.LoadedRecords += cityResult.LoadedRecords
		result.FailedRows += cityResult.FailedRows
	}

	result.Duration = time.Since(startTime)

	s.logger.Info(ctx, "[INGEST_COMPLETE] Trip import completed", logging.Fields{
		"total_cities":    result.TotalCities,
		"imported_cities": result.ImportedCities,
		"total_rows":      result.TotalRows,
		"loaded_records":  result.LoadedRecords,
		"failed_rows":     result.FailedRows,
		"duration_ms":     result.Duration.Milliseconds(),
		"error_count":     len(result.Errors),
		"stage":           "COMPLETE",
	})

	return result, nil
}

// ImportCity loads one city file and replaces its stored trips
func (s *IngestionService) ImportCity(ctx context.Context, city string, batchSize int) (*LoadResult, error) {
	collection, result, err := s.loader.Read(ctx, city)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	dataset := &models.Dataset{
		City:      city,
		Schema:    collection.Schema(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.UpsertDataset(ctx, dataset); err != nil {
		return nil, fmt.Errorf("failed to save dataset: %w", err)
	}

	trips := collection.Slice(0, collection.Len())
	if err := s.repo.ReplaceTrips(ctx, city, trips, batchSize); err != nil {
		return nil, fmt.Errorf("failed to store trips: %w", err)
	}

	s.logger.Info(ctx, "[INGEST_CITY_SUCCESS] City imported", logging.Fields{
		"city":           city,
		"loaded_records": result.LoadedRecords,
		"failed_rows":    result.FailedRows,
		"stage":          "CITY_COMPLETE",
	})

	return result, nil
}
