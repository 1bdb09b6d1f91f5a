package http

import (
	"github.com/nats-io/nats.go"

	"github.com/koolihub/koolihub/internal/adapters/postgres"
	"github.com/koolihub/koolihub/internal/adapters/valkey"
	"github.com/koolihub/koolihub/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Trips    *usecases.TripService
	Search   *usecases.TripSearchService
	Bookings *usecases.BookingService
	NATS     *nats.Conn
	DB       *postgres.DB
	Cache    *valkey.Cache
	// RateLimit is requests per minute per IP; 0 means 120.
	RateLimit int
	Version   string
}
