package models

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Accepted birth year range
const (
	minBirthYear = 0
	maxBirthYear = 9999
)

// TimestampLayout is the layout of Start Time / End Time values in the city files
const TimestampLayout = "2006-01-02 15:04:05"

// TripRecord represents a single bicycle rental
// Gender and BirthYear are nil when the source row left them blank
type TripRecord struct {
	Seq          int       `json:"seq" db:"seq"`
	StartTime    time.Time `json:"start_time" db:"start_time"`
	EndTime      time.Time `json:"end_time" db:"end_time"`
	StartStation string    `json:"start_station" db:"start_station"`
	EndStation   string    `json:"end_station" db:"end_station"`
	UserType     string    `json:"user_type" db:"user_type"`
	Gender       *string   `json:"gender,omitempty" db:"gender"`
	BirthYear    *int      `json:"birth_year,omitempty" db:"birth_year"`
}

// Month returns the calendar month the trip started in
func (t TripRecord) Month() time.Month {
	return t.StartTime.Month()
}

// Weekday returns the day of the week the trip started on
func (t TripRecord) Weekday() time.Weekday {
	return t.StartTime.Weekday()
}

// Hour returns the start hour on a 24-hour clock (0-23)
func (t TripRecord) Hour() int {
	return t.StartTime.Hour()
}

// Duration returns EndTime - StartTime. The result is negative for
// records whose end precedes their start; callers receive it unchanged.
func (t TripRecord) Duration() time.Duration {
	return t.EndTime.Sub(t.StartTime)
}

// Route returns the directed (start, end) station pair of the trip
func (t TripRecord) Route() StationPair {
	return StationPair{Start: t.StartStation, End: t.EndStation}
}

// StationPair is a directed station combination; A->B differs from B->A
type StationPair struct {
	Start string `json:"start_station"`
	End   string `json:"end_station"`
}

// RawTripRecord represents a single row from a city file before conversion
type RawTripRecord struct {
	StartTime    string
	EndTime      string
	StartStation string
	EndStation   string
	UserType     string
	Gender       string
	BirthYear    string
}

// ToTrip converts a RawTripRecord to a TripRecord
// Blank Gender / BirthYear become nil; birth years written as floats ("1992.0")
// are truncated to whole years.
func (r *RawTripRecord) ToTrip(seq int) (*TripRecord, error) {
	start, err := time.Parse(TimestampLayout, strings.TrimSpace(r.StartTime))
	if err != nil {
		return nil, &ValidationError{
			Field:   "start_time",
			Value:   r.StartTime,
			Message: "invalid start time, expected YYYY-MM-DD HH:MM:SS",
		}
	}

	end, err := time.Parse(TimestampLayout, strings.TrimSpace(r.EndTime))
	if err != nil {
		return nil, &ValidationError{
			Field:   "end_time",
			Value:   r.EndTime,
			Message: "invalid end time, expected YYYY-MM-DD HH:MM:SS",
		}
	}

	trip := &TripRecord{
		Seq:          seq,
		StartTime:    start,
		EndTime:      end,
		StartStation: strings.TrimSpace(r.StartStation),
		EndStation:   strings.TrimSpace(r.EndStation),
		UserType:     strings.TrimSpace(r.UserType),
	}

	if gender := strings.TrimSpace(r.Gender); gender != "" {
		trip.Gender = &gender
	}

	if raw := strings.TrimSpace(r.BirthYear); raw != "" {
		year, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(year) || year < minBirthYear || year >= maxBirthYear+1 {
			return nil, &ValidationError{
				Field:   "birth_year",
				Value:   r.BirthYear,
				Message: "invalid birth year",
			}
		}
		y := int(year)
		trip.BirthYear = &y
	}

	return trip, nil
}

// ValidationError represents a row that could not be converted
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}
