package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/oklog/ulid/v2"

	"bikeshare-platform/internal/analytics"
	"bikeshare-platform/internal/models"
	"bikeshare-platform/internal/presentation"
	"bikeshare-platform/internal/services"
	"bikeshare-platform/pkg/logging"
	"bikeshare-platform/pkg/metrics"
)

const maxPageLimit = 1000

// TripHandler handles bikeshare API endpoints
type TripHandler struct {
	datasets     *services.DatasetService
	statsService *services.StatisticsService
	pageSize     int
	healthCheck  func(ctx context.Context) error
	logger       *logging.StructuredLogger
	metrics      *metrics.Collector
}

// NewTripHandler creates a new trip handler. healthCheck may be nil when
// no backing store is in use.
func NewTripHandler(
	datasets *services.DatasetService,
	statsService *services.StatisticsService,
	pageSize int,
	healthCheck func(ctx context.Context) error,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *TripHandler {
	if pageSize < 1 {
		pageSize = analytics.DefaultPageSize
	}
	return &TripHandler{
		datasets:     datasets,
		statsService: statsService,
		pageSize:     pageSize,
		healthCheck:  healthCheck,
		logger:       logger,
		metrics:      metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// CityResponse describes one available city dataset
type CityResponse struct {
	Name    string `json:"name"`
	Records int    `json:"records"`
	models.Schema
	Error string `json:"error,omitempty"`
}

// SectionResponse is one statistics section: raw values, rendered lines,
// or the reason it produced nothing
type SectionResponse struct {
	Stats          interface{} `json:"stats,omitempty"`
	Lines          []string    `json:"lines,omitempty"`
	Error          string      `json:"error,omitempty"`
	ElapsedSeconds float64     `json:"elapsed_seconds"`
}

// StatsResponse is the full statistics report of one selection
type StatsResponse struct {
	ID       string          `json:"id"`
	City     string          `json:"city"`
	Filter   string          `json:"filter"`
	Records  int             `json:"records"`
	Schema   models.Schema   `json:"schema"`
	Time     SectionResponse `json:"time"`
	Station  SectionResponse `json:"station"`
	Duration SectionResponse `json:"duration"`
	User     SectionResponse `json:"user"`
}

// ListCities handles GET /api/cities
func (h *TripHandler) ListCities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		h.metrics.APIRequestDuration.WithLabelValues("/api/cities").Observe(time.Since(startTime).Seconds())
	}()

	cities := h.datasets.Cities()
	response := make([]CityResponse, 0, len(cities))
	for _, city := range cities {
		entry := CityResponse{Name: city}

		collection, err := h.datasets.Collection(ctx, city)
		if err != nil {
			h.logger.Warn(ctx, "[API_LIST_CITIES_WARNING] City dataset unavailable", logging.Fields{
				"city":  city,
				"error": err.Error(),
			})
			entry.Error = "dataset unavailable"
		} else {
			entry.Records = collection.Len()
			entry.Schema = collection.Schema()
		}

		response = append(response, entry)
	}

	h.metrics.RecordAPIRequest("/api/cities", "GET", "200")
	h.sendJSON(w, response, http.StatusOK)
}

// GetStatistics handles GET /api/cities/{city}/stats
func (h *TripHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()
	const endpoint = "/api/cities/{city}/stats"

	defer func() {
		h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	city, collection, criteria, ok := h.selection(w, r, endpoint)
	if !ok {
		return
	}

	report, err := h.statsService.Analyze(ctx, city, collection, criteria)
	if err != nil {
		h.logger.Error(ctx, "[API_GET_STATISTICS_ERROR] Failed to calculate statistics", logging.Fields{
			"city":   city,
			"filter": criteria.String(),
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, r, "failed to calculate statistics", http.StatusInternalServerError)
		return
	}

	response := StatsResponse{
		ID:       report.ID,
		City:     report.City,
		Filter:   criteria.String(),
		Records:  report.Records.Len(),
		Schema:   report.Schema,
		Time:     sectionResponse(report.Time, presentation.TimeSection),
		Station:  sectionResponse(report.Station, presentation.StationSection),
		Duration: sectionResponse(report.Duration, presentation.DurationSection),
		User:     sectionResponse(report.User, presentation.UserSection),
	}

	h.metrics.RecordAPIRequest(endpoint, "GET", "200")
	h.sendJSON(w, response, http.StatusOK)
}

// GetTrips handles GET /api/cities/{city}/trips
func (h *TripHandler) GetTrips(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	const endpoint = "/api/cities/{city}/trips"

	defer func() {
		h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	_, collection, criteria, ok := h.selection(w, r, endpoint)
	if !ok {
		return
	}

	pageStr := r.URL.Query().Get("page")
	limitStr := r.URL.Query().Get("limit")

	// Default pagination
	page := 1
	limit := h.pageSize

	if pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= maxPageLimit {
			limit = l
		}
	}

	selection := criteria.Apply(collection)
	total := selection.Len()

	// Pages past the end start at total; this also keeps (page-1)*limit from overflowing
	offset := total
	if page-1 <= total/limit {
		offset = (page - 1) * limit
	}

	response := PaginatedResponse{
		Data:       selection.Slice(offset, limit),
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}

	h.metrics.RecordPageServed("api")
	h.metrics.RecordAPIRequest(endpoint, "GET", "200")
	h.sendJSON(w, response, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *TripHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	statusCode := http.StatusOK
	if h.healthCheck != nil {
		if err := h.healthCheck(ctx); err != nil {
			h.logger.Error(ctx, "[HEALTH_CHECK_ERROR] Store health check failed", logging.Fields{}, err)
			status["status"] = "unhealthy"
			statusCode = http.StatusServiceUnavailable
		}
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, statusCode)
}

// selection resolves the city and month/day query of a request, writing
// the error response itself when ok is false
func (h *TripHandler) selection(w http.ResponseWriter, r *http.Request, endpoint string) (city string, collection *models.Collection, criteria analytics.Criteria, ok bool) {
	ctx := r.Context()

	city, err := h.datasets.ResolveCity(mux.Vars(r)["city"])
	if err != nil {
		h.metrics.RecordAPIError("unknown_city", endpoint)
		h.sendError(w, r, err.Error(), http.StatusNotFound)
		return "", nil, criteria, false
	}

	criteria, err = analytics.ParseCriteria(queryOrAll(r, "month"), queryOrAll(r, "day"))
	if err != nil {
		h.metrics.RecordAPIError("invalid_filter", endpoint)
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
		return "", nil, criteria, false
	}

	collection, err = h.datasets.Collection(ctx, city)
	if err != nil {
		var unknown *services.UnknownCityError
		if errors.As(err, &unknown) {
			h.sendError(w, r, err.Error(), http.StatusNotFound)
			return "", nil, criteria, false
		}
		h.logger.Error(ctx, "[API_LOAD_ERROR] Failed to load city dataset", logging.Fields{
			"city": city,
		}, err)
		h.metrics.RecordAPIError("load_error", endpoint)
		h.sendError(w, r, "failed to load city dataset", http.StatusInternalServerError)
		return "", nil, criteria, false
	}

	return city, collection, criteria, true
}

func queryOrAll(r *http.Request, key string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return analytics.All
}

func sectionResponse[T any](result services.SectionResult[T], render func(*T) []string) SectionResponse {
	response := SectionResponse{ElapsedSeconds: result.Elapsed.Seconds()}
	if result.Err != nil {
		response.Error = result.Err.Error()
		return response
	}
	response.Stats = result.Stats
	response.Lines = render(result.Stats)
	return response
}

// sendJSON sends a JSON response
func (h *TripHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *TripHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	endpoint := r.URL.Path
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			endpoint = tmpl
		}
	}
	h.metrics.RecordAPIRequest(endpoint, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RequestID tags every request with a ULID request id, echoed in the
// X-Request-ID header and carried in the request context for logging
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = ulid.Make().String()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

// RegisterRoutes registers all bikeshare API routes
func (h *TripHandler) RegisterRoutes(router *mux.Router) {
	router.Use(RequestID)
	router.HandleFunc("/api/cities", h.ListCities).Methods("GET")
	router.HandleFunc("/api/cities/{city}/stats", h.GetStatistics).Methods("GET")
	router.HandleFunc("/api/cities/{city}/trips", h.GetTrips).Methods("GET")
	router.HandleFunc("/api/docs", h.SwaggerUI).Methods("GET")
	router.HandleFunc(openAPIDocPath, OpenAPISpec).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
