package analytics

import (
	"time"

	"bikeshare-platform/internal/models"
)

// TimeStats holds the most frequent travel times
// MostCommonHour is on a 24-hour clock (0-23)
type TimeStats struct {
	MostCommonMonth   time.Month   `json:"most_common_month"`
	MostCommonWeekday time.Weekday `json:"most_common_weekday"`
	MostCommonHour    int          `json:"most_common_hour"`
}

// ComputeTimeStats finds the most common start month, weekday and hour
func ComputeTimeStats(records *models.Collection) (*TimeStats, error) {
	if records.Len() == 0 {
		return nil, &EmptyInputError{Component: "time"}
	}

	months := newTally[time.Month]()
	weekdays := newTally[time.Weekday]()
	hours := newTally[int]()

	for _, r := range records.All() {
		months.add(r.Month())
		weekdays.add(r.Weekday())
		hours.add(r.Hour())
	}

	month, _, _ := months.mode()
	weekday, _, _ := weekdays.mode()
	hour, _, _ := hours.mode()

	return &TimeStats{
		MostCommonMonth:   month,
		MostCommonWeekday: weekday,
		MostCommonHour:    hour,
	}, nil
}
