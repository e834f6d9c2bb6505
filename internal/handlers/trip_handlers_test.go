package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"bikeshare-platform/internal/models"
	"bikeshare-platform/internal/services"
	"bikeshare-platform/pkg/logging"
	"bikeshare-platform/pkg/metrics"
)

type stubLoader struct {
	collections map[string]*models.Collection
}

func (l *stubLoader) Load(ctx context.Context, city string) (*models.Collection, error) {
	c, ok := l.collections[city]
	if !ok {
		return nil, errors.New("file missing")
	}
	return c, nil
}

// juneTrips returns twelve trips on Mondays and Tuesdays of June 2017
func juneTrips() *models.Collection {
	monday := time.Date(2017, time.June, 5, 8, 0, 0, 0, time.UTC)
	records := make([]models.TripRecord, 0, 12)
	for i := 0; i < 12; i++ {
		start := monday.AddDate(0, 0, 7*((i/2)%3)+i%2)
		records = append(records, models.TripRecord{
			Seq:          i,
			StartTime:    start,
			EndTime:      start.Add(15 * time.Minute),
			StartStation: "Canal St & Adams St",
			EndStation:   "Clinton St & Madison St",
			UserType:     "Subscriber",
		})
	}
	return models.NewCollection(models.Schema{}, records)
}

func newTestRouter(t *testing.T, health func(context.Context) error) (*mux.Router, *metrics.Collector) {
	t.Helper()

	logger := logging.NewStructuredLogger("test", "0.0.1", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	collector := metrics.NewCollector("test", prometheus.NewRegistry())

	loader := &stubLoader{collections: map[string]*models.Collection{"washington": juneTrips()}}
	datasets := services.NewDatasetService(loader, []string{"chicago", "washington"}, logger)
	stats := services.NewStatisticsService(logger, collector, true)

	router := mux.NewRouter()
	NewTripHandler(datasets, stats, 5, health, logger, collector).RegisterRoutes(router)
	return router, collector
}

func doRequest(router http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetStatistics(t *testing.T) {
	router, collector := newTestRouter(t, nil)

	tests := []struct {
		name        string
		target      string
		wantStatus  int
		checkValues func(t *testing.T, body []byte)
	}{
		{
			name:       "all records",
			target:     "/api/cities/Washington/stats",
			wantStatus: http.StatusOK,
			checkValues: func(t *testing.T, body []byte) {
				var resp StatsResponse
				if err := json.Unmarshal(body, &resp); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if resp.City != "washington" || resp.Records != 12 || resp.Filter != "all/all" {
					t.Errorf("header = %+v", resp)
				}
				if resp.Time.Error != "" || len(resp.Time.Lines) != 3 {
					t.Errorf("time section = %+v", resp.Time)
				}
				if !strings.Contains(strings.Join(resp.User.Lines, "\n"), "Gender data is not available") {
					t.Errorf("user lines = %v", resp.User.Lines)
				}
			},
		},
		{
			name:       "empty selection reports per section",
			target:     "/api/cities/washington/stats?month=january&day=sunday",
			wantStatus: http.StatusOK,
			checkValues: func(t *testing.T, body []byte) {
				var resp StatsResponse
				if err := json.Unmarshal(body, &resp); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if resp.Records != 0 || resp.Time.Error == "" || resp.Station.Error == "" || resp.Duration.Error == "" {
					t.Errorf("expected section errors, got %+v", resp)
				}
			},
		},
		{
			name:       "invalid month",
			target:     "/api/cities/washington/stats?month=smarch",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown city",
			target:     "/api/cities/boston/stats",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "configured city without data",
			target:     "/api/cities/chicago/stats",
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(router, tt.target)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Error("missing X-Request-ID header")
			}
			if tt.checkValues != nil {
				tt.checkValues(t, rec.Body.Bytes())
			}
		})
	}

	if got := testutil.ToFloat64(collector.APIErrorsTotal.WithLabelValues("invalid_filter", "/api/cities/{city}/stats")); got != 1 {
		t.Errorf("api_errors_total{invalid_filter} = %v, want 1", got)
	}
}

func TestGetTrips_Pagination(t *testing.T) {
	router, collector := newTestRouter(t, nil)

	tests := []struct {
		target   string
		wantLen  int
		wantPage int
		wantSeq  int
	}{
		{target: "/api/cities/washington/trips", wantLen: 5, wantPage: 1, wantSeq: 0},
		{target: "/api/cities/washington/trips?page=3", wantLen: 2, wantPage: 3, wantSeq: 10},
		{target: "/api/cities/washington/trips?page=4", wantLen: 0, wantPage: 4},
		{target: "/api/cities/washington/trips?page=3689348814741910325&limit=5", wantLen: 0, wantPage: 3689348814741910325},
		{target: "/api/cities/washington/trips?page=9223372036854775807&limit=1000", wantLen: 0, wantPage: 9223372036854775807},
		{target: "/api/cities/washington/trips?limit=100", wantLen: 12, wantPage: 1, wantSeq: 0},
		{target: "/api/cities/washington/trips?limit=5000", wantLen: 5, wantPage: 1, wantSeq: 0},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := doRequest(router, tt.target)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}

			var resp struct {
				Data       []models.TripRecord `json:"data"`
				Total      int                 `json:"total"`
				Page       int                 `json:"page"`
				TotalPages int                 `json:"total_pages"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}

			if len(resp.Data) != tt.wantLen || resp.Page != tt.wantPage || resp.Total != 12 {
				t.Errorf("got %d records, page %d, total %d", len(resp.Data), resp.Page, resp.Total)
			}
			if tt.wantLen > 0 && resp.Data[0].Seq != tt.wantSeq {
				t.Errorf("first seq = %d, want %d", resp.Data[0].Seq, tt.wantSeq)
			}
		})
	}

	if got := testutil.ToFloat64(collector.PagesServedTotal.WithLabelValues("api")); got != float64(len(tests)) {
		t.Errorf("pages_served_total{api} = %v, want %d", got, len(tests))
	}
}

func TestListCities(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := doRequest(router, "/api/cities")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var cities []CityResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &cities); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cities) != 2 {
		t.Fatalf("got %d cities", len(cities))
	}
	if cities[0].Name != "chicago" || cities[0].Error == "" {
		t.Errorf("chicago = %+v, want unavailable", cities[0])
	}
	if cities[1].Name != "washington" || cities[1].Records != 12 || cities[1].HasGender {
		t.Errorf("washington = %+v", cities[1])
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		health     func(context.Context) error
		wantStatus int
	}{
		{name: "no store", wantStatus: http.StatusOK},
		{name: "store up", health: func(context.Context) error { return nil }, wantStatus: http.StatusOK},
		{name: "store down", health: func(context.Context) error { return errors.New("down") }, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(t, tt.health)
			if rec := doRequest(router, "/health"); rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestDocs(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := doRequest(router, "/api/docs/openapi.json")
	var spec map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &spec); err != nil {
		t.Fatalf("openapi document is not JSON: %v", err)
	}
	paths, _ := spec["paths"].(map[string]interface{})
	if _, ok := paths["/api/cities/{city}/stats"]; !ok {
		t.Errorf("paths = %v", paths)
	}

	rec = doRequest(router, "/api/docs")
	if rec.Code != http.StatusOK {
		t.Fatalf("docs page status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	page := rec.Body.String()
	for _, want := range []string{"swagger-ui", "<title>Bikeshare Platform API Documentation</title>", "openapi.json", "swagger-ui-dist@5.10.0/swagger-ui-bundle.js"} {
		if !strings.Contains(page, want) {
			t.Errorf("docs page missing %q", want)
		}
	}
}
