package domain

import "time"

// TripSearchCriteria is a passenger's ride search.
type TripSearchCriteria struct {
	From     string     `json:"from,omitempty"`
	To       string     `json:"to,omitempty"`
	Date     *time.Time `json:"date,omitempty"`
	Pickup   *GeoPoint  `json:"pickup,omitempty"`
	Dropoff  *GeoPoint  `json:"dropoff,omitempty"`
	RadiusKm float64    `json:"radius_km,omitempty"`
	Seats    int        `json:"seats,omitempty"`
	Limit    int        `json:"limit,omitempty"`
	Offset   int        `json:"offset,omitempty"`
}

// HasCoordinates reports whether both legs were given as coordinates.
func (c TripSearchCriteria) HasCoordinates() bool {
	return c.Pickup != nil && c.Dropoff != nil
}

// SearchMatchResult scores how well a trip's legs fit the searched points.
type SearchMatchResult struct {
	MatchScore        float64 `json:"match_score"`
	PickupDistanceKm  float64 `json:"pickup_distance_km"`
	DropoffDistanceKm float64 `json:"dropoff_distance_km"`
	IsWithinRadius    bool    `json:"is_within_radius"`
}

// TripMatch is a ranked search hit.
type TripMatch struct {
	Trip  Trip              `json:"trip"`
	Match SearchMatchResult `json:"match"`
}

// TripSearchResult is one page of ranked matches.
type TripSearchResult struct {
	Matches []TripMatch `json:"matches"`
	// Total counts every match before paging.
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}
