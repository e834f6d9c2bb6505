package analytics

import "bikeshare-platform/internal/models"

// StationStats holds the most popular stations and trip
type StationStats struct {
	MostCommonStart string             `json:"most_common_start_station"`
	StartCount      int                `json:"start_count"`
	MostCommonEnd   string             `json:"most_common_end_station"`
	EndCount        int                `json:"end_count"`
	MostCommonRoute models.StationPair `json:"most_common_route"`
	RouteCount      int                `json:"route_count"`
}

// ComputeStationStats finds the most used start station, end station and
// directed (start, end) combination
func ComputeStationStats(records *models.Collection) (*StationStats, error) {
	if records.Len() == 0 {
		return nil, &EmptyInputError{Component: "station"}
	}

	starts := newTally[string]()
	ends := newTally[string]()
	routes := newTally[models.StationPair]()

	for _, r := range records.All() {
		starts.add(r.StartStation)
		ends.add(r.EndStation)
		routes.add(r.Route())
	}

	stats := &StationStats{}
	stats.MostCommonStart, stats.StartCount, _ = starts.mode()
	stats.MostCommonEnd, stats.EndCount, _ = ends.mode()
	stats.MostCommonRoute, stats.RouteCount, _ = routes.mode()

	return stats, nil
}
