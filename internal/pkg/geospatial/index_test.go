package geospatial

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/koolihub/koolihub/internal/core/domain"
)

func TestTripIndex_Within(t *testing.T) {
	trips := []domain.Trip{
		{ID: "near", Pickup: domain.GeoPoint{Lat: 12.9716, Lon: 77.5946}},
		{ID: "close", Pickup: domain.GeoPoint{Lat: 12.99, Lon: 77.61}},
		{ID: "far", Pickup: domain.GeoPoint{Lat: 13.0827, Lon: 80.2707}},
	}

	idx := NewTripIndex(trips)
	assert.Equal(t, 3, idx.Len())

	got := idx.Within(domain.GeoPoint{Lat: 12.9716, Lon: 77.5946}, 5)
	ids := make([]string, 0, len(got))
	for _, tr := range got {
		ids = append(ids, tr.ID)
	}
	assert.ElementsMatch(t, []string{"near", "close"}, ids)
}

func TestDropoffIndex_Within(t *testing.T) {
	trips := []domain.Trip{
		{ID: "to-chennai", Pickup: domain.GeoPoint{Lat: 12.9716, Lon: 77.5946}, Dropoff: domain.GeoPoint{Lat: 13.0827, Lon: 80.2707}},
		{ID: "to-bengaluru", Pickup: domain.GeoPoint{Lat: 13.0827, Lon: 80.2707}, Dropoff: domain.GeoPoint{Lat: 12.9716, Lon: 77.5946}},
	}

	got := NewDropoffIndex(trips).Within(domain.GeoPoint{Lat: 13.0827, Lon: 80.2707}, 5)
	if assert.Len(t, got, 1) {
		assert.Equal(t, "to-chennai", got[0].ID)
	}

	got = NewTripIndex(trips).Within(domain.GeoPoint{Lat: 13.0827, Lon: 80.2707}, 5)
	if assert.Len(t, got, 1) {
		assert.Equal(t, "to-bengaluru", got[0].ID)
	}
}

func TestTripIndex_Empty(t *testing.T) {
	idx := NewTripIndex(nil)
	assert.Equal(t, 0, idx.Len())
	assert.Empty(t, idx.Within(domain.GeoPoint{Lat: 1, Lon: 1}, 100))
}
