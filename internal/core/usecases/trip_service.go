package usecases

import (
	"context"
	"encoding/json"

	"github.com/koolihub/koolihub/internal/core/domain"
	"github.com/koolihub/koolihub/internal/core/ports"
)

// TripService handles trip lookups.
type TripService struct {
	trips ports.TripRepository
	cache ports.CacheService
}

// NewTripService creates a new TripService.
func NewTripService(trips ports.TripRepository, cache ports.CacheService) *TripService {
	return &TripService{trips: trips, cache: cache}
}

// GetByID returns a single trip. Seat counts change with every booking, so
// cached copies live for seconds only.
func (s *TripService) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	cacheKey := "trips:id:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var trip domain.Trip
			if err := json.Unmarshal(data, &trip); err == nil {
				return &trip, nil
			}
		}
	}

	trip, err := s.trips.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(trip); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 10)
		}
	}

	return trip, nil
}
