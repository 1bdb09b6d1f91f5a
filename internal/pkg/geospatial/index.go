package geospatial

import (
	"github.com/tidwall/rtree"

	"github.com/koolihub/koolihub/internal/core/domain"
)

// TripIndex is an R-tree over one coordinate of each trip.
type TripIndex struct {
	tree rtree.RTree
	size int
}

// NewTripIndex indexes every trip by its pickup coordinate.
func NewTripIndex(trips []domain.Trip) *TripIndex {
	return newTripIndex(trips, func(t *domain.Trip) domain.GeoPoint { return t.Pickup })
}

// NewDropoffIndex indexes every trip by its dropoff coordinate.
func NewDropoffIndex(trips []domain.Trip) *TripIndex {
	return newTripIndex(trips, func(t *domain.Trip) domain.GeoPoint { return t.Dropoff })
}

func newTripIndex(trips []domain.Trip, point func(*domain.Trip) domain.GeoPoint) *TripIndex {
	idx := &TripIndex{}
	for i := range trips {
		// Points are stored as degenerate rectangles [lat, lon].
		p := point(&trips[i])
		pt := [2]float64{p.Lat, p.Lon}
		idx.tree.Insert(pt, pt, trips[i])
		idx.size++
	}
	return idx
}

// Len returns the number of indexed trips.
func (idx *TripIndex) Len() int {
	return idx.size
}

// Within returns the trips whose indexed point lies inside the bounding box of
// radiusKm around p. The box is a superset of the circle; callers still
// compute exact distances.
func (idx *TripIndex) Within(p domain.GeoPoint, radiusKm float64) []domain.Trip {
	b := BoundingBox(p, radiusKm)

	var out []domain.Trip
	idx.tree.Search(
		[2]float64{b.MinLat, b.MinLon},
		[2]float64{b.MaxLat, b.MaxLon},
		func(min, max [2]float64, data interface{}) bool {
			if t, ok := data.(domain.Trip); ok {
				out = append(out, t)
			}
			return true
		},
	)
	return out
}
