package analytics

import (
	"github.com/aclements/go-moremath/stats"

	"bikeshare-platform/internal/models"
)

// BirthYearSummary holds the earliest, most recent and most common birth year
type BirthYearSummary struct {
	Earliest   int `json:"earliest"`
	MostRecent int `json:"most_recent"`
	MostCommon int `json:"most_common"`
}

// UserStats holds user demographics.
// Genders is nil when the dataset has no Gender column (or there are no
// records); BirthYears is nil when no record carries a birth year.
type UserStats struct {
	UserTypes  CategoryCounts    `json:"user_types"`
	Genders    CategoryCounts    `json:"genders"`
	BirthYears *BirthYearSummary `json:"birth_years"`
}

// ComputeUserStats counts user types and, where the dataset provides them,
// genders and birth years. It never fails: empty input yields empty counts.
func ComputeUserStats(records *models.Collection) (*UserStats, error) {
	schema := records.Schema()

	userTypes := newTally[string]()
	genders := newTally[string]()
	years := newTally[int]()
	var sample stats.Sample

	for _, r := range records.All() {
		userTypes.add(r.UserType)

		if schema.HasGender && r.Gender != nil {
			genders.add(*r.Gender)
		}

		if schema.HasBirthYear && r.BirthYear != nil {
			years.add(*r.BirthYear)
			sample.Xs = append(sample.Xs, float64(*r.BirthYear))
		}
	}

	identity := func(s string) string { return s }
	result := &UserStats{
		UserTypes: userTypes.ranked(identity),
	}

	if schema.HasGender && records.Len() > 0 {
		result.Genders = genders.ranked(identity)
	}

	if mostCommon, _, ok := years.mode(); ok {
		earliest, mostRecent := sample.Bounds()
		result.BirthYears = &BirthYearSummary{
			Earliest:   int(earliest),
			MostRecent: int(mostRecent),
			MostCommon: mostCommon,
		}
	}

	return result, nil
}
