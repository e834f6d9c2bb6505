package analytics

import (
	"strings"
	"time"

	"bikeshare-platform/internal/models"
)

// All disables a month or weekday constraint
const All = "all"

// Months lists the accepted month names in calendar order
var Months = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// Weekdays lists the accepted weekday names, Monday first
var Weekdays = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

// Criteria is a parsed month / weekday selection.
// A zero month or a negative weekday means that dimension is unconstrained.
type Criteria struct {
	month   time.Month
	weekday time.Weekday
}

// AllRecords matches every record
var AllRecords = Criteria{weekday: -1}

// ParseCriteria maps case-insensitive month and weekday names (or "all")
// to a Criteria
func ParseCriteria(month, weekday string) (Criteria, error) {
	c := AllRecords

	m, err := parseMonth(month)
	if err != nil {
		return c, err
	}
	c.month = m

	d, err := parseWeekday(weekday)
	if err != nil {
		return c, err
	}
	c.weekday = d

	return c, nil
}

func parseMonth(name string) (time.Month, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == All {
		return 0, nil
	}
	for i, m := range Months {
		if m == name {
			return time.Month(i + 1), nil
		}
	}
	return 0, &InvalidFilterError{Field: "month", Value: name}
}

func parseWeekday(name string) (time.Weekday, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == All {
		return -1, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == name {
			return d, nil
		}
	}
	return -1, &InvalidFilterError{Field: "day", Value: name}
}

// Month returns the constrained month, if any
func (c Criteria) Month() (time.Month, bool) {
	return c.month, c.month != 0
}

// Weekday returns the constrained weekday, if any
func (c Criteria) Weekday() (time.Weekday, bool) {
	return c.weekday, c.weekday >= 0
}

// Matches reports whether r satisfies every active constraint
func (c Criteria) Matches(r models.TripRecord) bool {
	if c.month != 0 && r.Month() != c.month {
		return false
	}
	if c.weekday >= 0 && r.Weekday() != c.weekday {
		return false
	}
	return true
}

// Apply returns a new collection holding the matching records in their
// original order. With no active constraint the result is a full copy.
func (c Criteria) Apply(records *models.Collection) *models.Collection {
	return records.Where(c.Matches)
}

// Filter narrows records to those started in month and on weekday.
// Either argument may be "all".
func Filter(records *models.Collection, month, weekday string) (*models.Collection, error) {
	c, err := ParseCriteria(month, weekday)
	if err != nil {
		return nil, err
	}
	return c.Apply(records), nil
}

// String renders the selection as "month/day", with "all" for an open dimension
func (c Criteria) String() string {
	month, day := All, All
	if m, ok := c.Month(); ok {
		month = Months[m-1]
	}
	if d, ok := c.Weekday(); ok {
		day = strings.ToLower(d.String())
	}
	return month + "/" + day
}
