package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"bikeshare-platform/internal/models"
	"bikeshare-platform/internal/services"
	"bikeshare-platform/pkg/logging"
	"bikeshare-platform/pkg/metrics"
)

type stubLoader struct{}

// Load returns twelve June trips for washington and fails for any other city
func (stubLoader) Load(ctx context.Context, city string) (*models.Collection, error) {
	if city != "washington" {
		return nil, errors.New("no such file")
	}
	start := time.Date(2017, time.June, 1, 7, 30, 0, 0, time.UTC)
	records := make([]models.TripRecord, 12)
	for i := range records {
		s := start.AddDate(0, 0, i)
		records[i] = models.TripRecord{
			Seq:          i,
			StartTime:    s,
			EndTime:      s.Add(12 * time.Minute),
			StartStation: "Thomas Circle",
			EndStation:   "15th & K St NW",
			UserType:     "Customer",
		}
	}
	return models.NewCollection(models.Schema{}, records), nil
}

func newTestController(in io.Reader, out io.Writer) (*Controller, *metrics.Collector) {
	logger := logging.NewStructuredLogger("test", "0.0.1", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	collector := metrics.NewCollector("test", prometheus.NewRegistry())

	datasets := services.NewDatasetService(stubLoader{}, []string{"chicago", "new york city", "washington"}, logger)
	stats := services.NewStatisticsService(logger, collector, false)

	return NewController(in, out, datasets, stats, 5, logger, collector), collector
}

func runScript(t *testing.T, script string) (string, *metrics.Collector) {
	t.Helper()

	var out bytes.Buffer
	controller, collector := newTestController(strings.NewReader(script), &out)
	if err := controller.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out.String(), collector
}

// cancelOnWrite cancels a context once a given text has been written
type cancelOnWrite struct {
	bytes.Buffer
	trigger string
	cancel  context.CancelFunc
}

func (w *cancelOnWrite) Write(p []byte) (int, error) {
	n, err := w.Buffer.Write(p)
	if strings.Contains(w.String(), w.trigger) {
		w.cancel()
	}
	return n, err
}

func TestController_FullSession(t *testing.T) {
	script := strings.Join([]string{
		"boston",
		"Washington",
		"smarch",
		"JUNE",
		"all",
		"maybe",
		"yes",
		"yep",
		"ok",
		"nope",
	}, "\n") + "\n"

	out, collector := runScript(t, script)

	wants := []string{
		"Would you like to look at data for Chicago, New York City or Washington?",
		"Your response could not be recognised.",
		"Calculating The Most Frequent Times of Travel...",
		"Most common month: June",
		"Most common start hour: 7am",
		"Calculating The Most Popular Stations and Trip...",
		"Calculating Trip Duration...",
		"Calculating User Stats...",
		"Gender data is not available",
		"Birth year data is not available",
		"This took ",
		"Would you like to look at 5 rows of individual trip data? (yes or no)",
		"Would you like to look at the next 5 rows of individual trip data?",
		"Trip #0",
		"Trip #11",
		"There is no more trip data for this selection.",
		"Would you like to look at the data with a new city/time filter?",
		"Program terminating",
	}
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}

	if strings.Count(out, "This took ") != 4 {
		t.Errorf("expected four timed sections, got %d", strings.Count(out, "This took "))
	}
	if got := testutil.ToFloat64(collector.PagesServedTotal.WithLabelValues("cli")); got != 3 {
		t.Errorf("pages_served_total{cli} = %v, want 3", got)
	}
}

func TestController_EmptySelectionAndRestart(t *testing.T) {
	script := strings.Join([]string{
		"washington", "january", "all",
		"y",
		"washington", "june", "all",
		"n",
		"no",
	}, "\n") + "\n"

	out, _ := runScript(t, script)

	if !strings.Contains(out, "There is no data for this selection.") {
		t.Error("empty selection not reported")
	}
	if strings.Count(out, "Calculating Trip Duration...") != 1 {
		t.Error("statistics should be printed for the second session only")
	}
	if strings.Contains(out, "Trip #0") {
		t.Error("records shown although paging was declined")
	}
}

func TestController_LoadFailureAndInputEnd(t *testing.T) {
	out, _ := runScript(t, "chicago\nall\nall\n")

	if !strings.Contains(out, "The data for Chicago could not be loaded") {
		t.Errorf("load failure not reported:\n%s", out)
	}
	if !strings.Contains(out, "Program terminating") {
		t.Error("controller should end cleanly when input runs out")
	}
}

func TestController_CancelWhileWaitingForInput(t *testing.T) {
	// The input never delivers a line, like a terminal nobody types into
	in, writer := io.Pipe()
	t.Cleanup(func() { writer.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &cancelOnWrite{trigger: "Would you like to look at data for", cancel: cancel}

	controller, _ := newTestController(in, out)

	done := make(chan error, 1)
	go func() { done <- controller.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run after cancel = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run kept waiting for input after the context was cancelled")
	}

	if !strings.Contains(out.String(), "Program terminating") {
		t.Errorf("cancelled session should say goodbye:\n%s", out.String())
	}
}

func TestListChoices(t *testing.T) {
	tests := []struct {
		names []string
		want  string
	}{
		{names: []string{"chicago"}, want: "Chicago"},
		{names: []string{"chicago", "washington"}, want: "Chicago or Washington"},
		{names: []string{"chicago", "new york city", "washington"}, want: "Chicago, New York City or Washington"},
		{names: []string{"évora", "zürich"}, want: "Évora or Zürich"},
	}
	for _, tt := range tests {
		if got := listChoices(tt.names); got != tt.want {
			t.Errorf("listChoices(%v) = %q, want %q", tt.names, got, tt.want)
		}
	}
}
