package http

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/koolihub/koolihub/internal/core/domain"
	"github.com/koolihub/koolihub/internal/core/pricing"
	"github.com/koolihub/koolihub/internal/core/usecases"
	"github.com/koolihub/koolihub/internal/pkg/metrics"
)

const (
	maxQueryLen     = 200
	maxReasonLen    = 500
	maxSearchRadius = 100.0
)

// GetTripHandler returns a single trip by ID.
func GetTripHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		trip, err := deps.Trips.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(trip)
	}
}

// SearchTripsHandler ranks upcoming trips.
// GET /v1/trips/search?from=Rayachoti&to=Tirupati&date=2026-03-14&seats=2
// GET /v1/trips/search?pickup_lat=..&pickup_lon=..&dropoff_lat=..&dropoff_lon=..&radius_km=5
func SearchTripsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		criteria, err := parseSearch(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		result, err := deps.Search.Search(c.UserContext(), criteria)
		if err != nil {
			return respondError(c, err)
		}

		mode := "text"
		if criteria.HasCoordinates() {
			mode = "geo"
		}
		metrics.SearchResults.WithLabelValues(mode).Observe(float64(len(result.Matches)))

		pg := Pagination{Offset: result.Offset, Limit: result.Limit, Total: result.Total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: result.Matches, Pagination: pg})
	}
}

func parseSearch(c *fiber.Ctx) (domain.TripSearchCriteria, error) {
	criteria := domain.TripSearchCriteria{
		From:   strings.TrimSpace(c.Query("from")),
		To:     strings.TrimSpace(c.Query("to")),
		Seats:  c.QueryInt("seats", 0),
		Limit:  c.QueryInt("limit", 20),
		Offset: c.QueryInt("offset", 0),
	}
	if len(criteria.From) > maxQueryLen || len(criteria.To) > maxQueryLen {
		return criteria, errors.New("from and to must be at most 200 characters")
	}
	if criteria.Seats < 0 {
		return criteria, errors.New("seats must not be negative")
	}
	if criteria.Offset < 0 {
		return criteria, errors.New("offset must not be negative")
	}

	if raw := c.Query("date"); raw != "" {
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return criteria, errors.New("date must be YYYY-MM-DD")
		}
		criteria.Date = &d
	}

	pickup, err := queryPoint(c, "pickup")
	if err != nil {
		return criteria, err
	}
	dropoff, err := queryPoint(c, "dropoff")
	if err != nil {
		return criteria, err
	}
	if (pickup == nil) != (dropoff == nil) {
		return criteria, errors.New("pickup and dropoff coordinates must be given together")
	}
	criteria.Pickup, criteria.Dropoff = pickup, dropoff

	criteria.RadiusKm = c.QueryFloat("radius_km", 0)
	if criteria.RadiusKm < 0 || criteria.RadiusKm > maxSearchRadius {
		return criteria, errors.New("radius_km must be between 0 and 100")
	}
	return criteria, nil
}

// queryPoint reads <prefix>_lat and <prefix>_lon. Both absent is nil.
func queryPoint(c *fiber.Ctx, prefix string) (*domain.GeoPoint, error) {
	rawLat, rawLon := c.Query(prefix+"_lat"), c.Query(prefix+"_lon")
	if rawLat == "" && rawLon == "" {
		return nil, nil
	}
	lat, errLat := strconv.ParseFloat(rawLat, 64)
	lon, errLon := strconv.ParseFloat(rawLon, 64)
	if errLat != nil || errLon != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, errors.New(prefix + "_lat and " + prefix + "_lon must be valid coordinates")
	}
	return &domain.GeoPoint{Lat: lat, Lon: lon}, nil
}

type seatRequest struct {
	Seats    int     `json:"seats"`
	Discount float64 `json:"discount"`
}

// QuoteHandler prices seats on a trip.
func QuoteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req seatRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Discount < 0 {
			return errBadRequest(c, "discount must not be negative")
		}

		price, err := deps.Bookings.Quote(c.UserContext(), c.Params("id"), req.Seats, req.Discount)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"trip_id":       c.Params("id"),
			"seats":         req.Seats,
			"price":         price,
			"display_total": pricing.FormatPrice(price.TotalAmount),
		})
	}
}

// ValidateBookingHandler reports every problem with a seat request
// without booking anything.
func ValidateBookingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req seatRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		v, err := deps.Bookings.Validate(c.UserContext(), c.Params("id"), req.Seats)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(v)
	}
}

// CreateBookingHandler books seats.
func CreateBookingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var cmd usecases.BookCommand
		if err := c.BodyParser(&cmd); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if cmd.TripID == "" {
			return errBadRequest(c, "trip_id is required")
		}
		if cmd.Discount < 0 {
			return errBadRequest(c, "discount must not be negative")
		}

		booking, err := deps.Bookings.Book(c.UserContext(), cmd)
		if err != nil {
			metrics.BookingsRejected.WithLabelValues(rejectReason(err)).Inc()
			return respondError(c, err)
		}

		metrics.BookingsCreated.Inc()
		c.Location("/v1/bookings/" + booking.ID)
		return c.Status(fiber.StatusCreated).JSON(booking)
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidBooking):
		return "invalid"
	case errors.Is(err, domain.ErrSeatsUnavailable):
		return "seats_unavailable"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// RefundQuoteHandler shows what cancelling now would refund.
func RefundQuoteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		quote, err := deps.Bookings.RefundQuote(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"refund":         quote,
			"display_refund": pricing.FormatPrice(quote.RefundAmount),
		})
	}
}

// CancelBookingHandler cancels a booking and queues its refund.
func CancelBookingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Reason string `json:"reason"`
		}
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return errBadRequest(c, "invalid request body")
			}
		}
		if len(req.Reason) > maxReasonLen {
			return errBadRequest(c, "reason must be at most 500 characters")
		}

		result, err := deps.Bookings.Cancel(c.UserContext(), c.Params("id"), strings.TrimSpace(req.Reason))
		if err != nil {
			return respondError(c, err)
		}

		metrics.BookingsCancelled.Inc()
		metrics.RefundAmount.Observe(result.Refund.RefundAmount)
		return c.JSON(result)
	}
}
