package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"bikeshare-platform/internal/models"
	"bikeshare-platform/internal/repository"
	"bikeshare-platform/pkg/logging"
)

// Loader produces the full record collection of one city
type Loader interface {
	Load(ctx context.Context, city string) (*models.Collection, error)
}

// RepositoryLoader reads previously imported cities from the trip store
type RepositoryLoader struct {
	repo repository.TripRepository
}

// NewRepositoryLoader creates a loader backed by the trip store
func NewRepositoryLoader(repo repository.TripRepository) *RepositoryLoader {
	return &RepositoryLoader{repo: repo}
}

// Load implements Loader
func (l *RepositoryLoader) Load(ctx context.Context, city string) (*models.Collection, error) {
	dataset, err := l.repo.GetDataset(ctx, city)
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}

	trips, err := l.repo.ListTrips(ctx, city)
	if err != nil {
		return nil, err
	}

	return models.NewCollection(dataset.Schema, trips), nil
}

// DatasetService resolves city names and caches loaded collections.
// Collections are immutable, so a cached one is shared by every caller.
type DatasetService struct {
	loader Loader
	cities []string
	logger *logging.StructuredLogger

	mu    sync.Mutex
	cache map[string]*models.Collection
}

// NewDatasetService creates a dataset service for the given city names
func NewDatasetService(loader Loader, cities []string, logger *logging.StructuredLogger) *DatasetService {
	names := make([]string, 0, len(cities))
	for _, c := range cities {
		names = append(names, strings.ToLower(strings.TrimSpace(c)))
	}
	slices.Sort(names)

	return &DatasetService{
		loader: loader,
		cities: slices.Compact(names),
		logger: logger,
		cache:  make(map[string]*models.Collection),
	}
}

// Cities returns the available city names in alphabetical order
func (s *DatasetService) Cities() []string {
	return slices.Clone(s.cities)
}

// ResolveCity maps a case-insensitive city name to its canonical form
func (s *DatasetService) ResolveCity(name string) (string, error) {
	city := strings.ToLower(strings.TrimSpace(name))
	if _, found := slices.BinarySearch(s.cities, city); !found {
		return "", &UnknownCityError{City: name}
	}
	return city, nil
}

// Collection returns the full record collection of a city, loading it on first use
func (s *DatasetService) Collection(ctx context.Context, name string) (*models.Collection, error) {
	city, err := s.ResolveCity(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	c, ok := s.cache[city]
	s.mu.Unlock()

	if ok {
		s.logger.Debug(ctx, "[DATASET_CACHE_HIT] Using cached collection", logging.Fields{
			"city":    city,
			"records": c.Len(),
		})
		return c, nil
	}

	// Loading runs unlocked so other cities stay available
	loaded, err := s.loader.Load(ctx, city)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", city, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A concurrent load may have finished first; keep a single collection per city
	if c, ok := s.cache[city]; ok {
		return c, nil
	}
	s.cache[city] = loaded
	return loaded, nil
}

// UnknownCityError is returned for a city name with no configured dataset
type UnknownCityError struct {
	City string
}

func (e *UnknownCityError) Error() string {
	return fmt.Sprintf("unknown city %q", e.City)
}

// IsTransient returns false as the city list is fixed at startup
func (e *UnknownCityError) IsTransient() bool {
	return false
}
