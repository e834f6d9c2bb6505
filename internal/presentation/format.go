// Package presentation turns analytics results into display text.
package presentation

import (
	"fmt"
	"strings"
	"time"

	"bikeshare-platform/internal/analytics"
	"bikeshare-platform/internal/models"
)

// HourLabel renders a 0-23 hour on a 12-hour clock: 0 -> "12am", 12 -> "12pm"
func HourLabel(hour int) string {
	suffix := "am"
	if hour >= 12 {
		suffix = "pm"
	}
	h := hour % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d%s", h, suffix)
}

// MonthLabel returns the title-case month name
func MonthLabel(m time.Month) string {
	return m.String()
}

// Breakdown is a duration decomposed into whole days, hours, minutes and seconds
type Breakdown struct {
	Negative bool
	Days     int64
	Hours    int64
	Minutes  int64
	Seconds  int64
}

// Decompose splits d into calendar-style components. Negative durations
// are decomposed by magnitude with Negative set.
func Decompose(d time.Duration) Breakdown {
	var b Breakdown
	if d < 0 {
		b.Negative = true
		d = -d
	}

	secs := int64(d / time.Second)
	b.Days = secs / 86400
	secs %= 86400
	b.Hours = secs / 3600
	secs %= 3600
	b.Minutes = secs / 60
	b.Seconds = secs % 60
	return b
}

func sign(neg bool) string {
	if neg {
		return "-"
	}
	return ""
}

// TotalDurationText renders "D days, H hours, M minutes & S seconds"
func TotalDurationText(d time.Duration) string {
	b := Decompose(d)
	return fmt.Sprintf("%s%d days, %d hours, %d minutes & %d seconds",
		sign(b.Negative), b.Days, b.Hours, b.Minutes, b.Seconds)
}

// MeanDurationText renders "M minutes & S seconds" with minutes unbounded
func MeanDurationText(d time.Duration) string {
	b := Decompose(d)
	minutes := b.Days*24*60 + b.Hours*60 + b.Minutes
	return fmt.Sprintf("%s%d minutes & %d seconds", sign(b.Negative), minutes, b.Seconds)
}

// TimeSection renders the most frequent travel times
func TimeSection(s *analytics.TimeStats) []string {
	return []string{
		"Most common month: " + MonthLabel(s.MostCommonMonth),
		"Most common day: " + s.MostCommonWeekday.String(),
		"Most common start hour: " + HourLabel(s.MostCommonHour),
	}
}

// StationSection renders the most popular stations and trip
func StationSection(s *analytics.StationStats) []string {
	return []string{
		"Most commonly used start station: " + s.MostCommonStart,
		"Most commonly used end station: " + s.MostCommonEnd,
		fmt.Sprintf("The most frequent station combination is for trips from %s to %s",
			s.MostCommonRoute.Start, s.MostCommonRoute.End),
	}
}

// DurationSection renders total and mean travel time
func DurationSection(s *analytics.DurationStats) []string {
	return []string{
		"The total travel time is " + TotalDurationText(s.Total),
		"The mean travel time is " + MeanDurationText(s.Mean) + ".",
	}
}

// UserSection renders user type, gender and birth year statistics
func UserSection(s *analytics.UserStats) []string {
	lines := []string{"User types:"}
	lines = append(lines, countLines(s.UserTypes)...)

	if s.Genders == nil {
		lines = append(lines, "Gender data is not available")
	} else {
		lines = append(lines, "Genders:")
		lines = append(lines, countLines(s.Genders)...)
	}

	if s.BirthYears == nil {
		lines = append(lines, "Birth year data is not available")
	} else {
		lines = append(lines, fmt.Sprintf(
			"The earliest birth year is %d, the most recent birth year is %d & the most common birth year is %d.",
			s.BirthYears.Earliest, s.BirthYears.MostRecent, s.BirthYears.MostCommon))
	}

	return lines
}

func countLines(counts analytics.CategoryCounts) []string {
	width := 0
	for _, c := range counts {
		width = max(width, len(categoryLabel(c.Value)))
	}

	lines := make([]string, 0, len(counts))
	for _, c := range counts {
		lines = append(lines, fmt.Sprintf("  %-*s %d", width, categoryLabel(c.Value), c.Count))
	}
	return lines
}

func categoryLabel(v string) string {
	if v == "" {
		return "(blank)"
	}
	return v
}

// RecordLines renders one trip field by field; index is its position in
// the filtered collection
func RecordLines(index int, r models.TripRecord) []string {
	lines := []string{
		fmt.Sprintf("Trip #%d", index),
		"  Start Time:    " + r.StartTime.Format(models.TimestampLayout),
		"  End Time:      " + r.EndTime.Format(models.TimestampLayout),
		fmt.Sprintf("  Trip Duration: %d", int64(r.Duration()/time.Second)),
		"  Start Station: " + r.StartStation,
		"  End Station:   " + r.EndStation,
		"  User Type:     " + r.UserType,
	}
	if r.Gender != nil {
		lines = append(lines, "  Gender:        "+*r.Gender)
	}
	if r.BirthYear != nil {
		lines = append(lines, fmt.Sprintf("  Birth Year:    %d", *r.BirthYear))
	}
	return lines
}

// PageText renders every record of a page separated by blank lines
func PageText(p analytics.Page) string {
	var b strings.Builder
	for i, r := range p.Records {
		b.WriteString("\n")
		for _, line := range RecordLines(p.Offset+i, r) {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}
