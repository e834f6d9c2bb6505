package analytics

import (
	"time"

	"bikeshare-platform/internal/models"
)

// DurationStats holds total and mean trip duration.
// Trips that end before they start contribute negative durations.
type DurationStats struct {
	Total time.Duration `json:"total"`
	Mean  time.Duration `json:"mean"`
	Count int           `json:"count"`
}

// ComputeDurationStats sums EndTime - StartTime over records
func ComputeDurationStats(records *models.Collection) (*DurationStats, error) {
	n := records.Len()
	if n == 0 {
		return nil, &EmptyInputError{Component: "duration"}
	}

	var total time.Duration
	for _, r := range records.All() {
		total += r.Duration()
	}

	return &DurationStats{
		Total: total,
		Mean:  total / time.Duration(n),
		Count: n,
	}, nil
}
