package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/koolihub/koolihub/internal/core/domain"
	"github.com/koolihub/koolihub/internal/core/ports"
	"github.com/koolihub/koolihub/internal/core/pricing"
	"github.com/koolihub/koolihub/internal/pkg/logging"
)

// BookCommand is a passenger's request for seats on a trip.
type BookCommand struct {
	TripID      string  `json:"trip_id"`
	PassengerID string  `json:"passenger_id"`
	Seats       int     `json:"seats"`
	Discount    float64 `json:"discount,omitempty"`
}

// CancellationResult is a cancelled booking and the refund it earned.
type CancellationResult struct {
	Booking *domain.Booking          `json:"booking"`
	Refund  domain.RefundCalculation `json:"refund"`
}

// BookingService prices, books and cancels seats.
type BookingService struct {
	trips    ports.TripRepository
	bookings ports.BookingRepository
	events   ports.EventPublisher
	now      func() time.Time
	newID    func() string
}

// NewBookingService creates a new BookingService.
func NewBookingService(trips ports.TripRepository, bookings ports.BookingRepository, events ports.EventPublisher) *BookingService {
	return &BookingService{
		trips:    trips,
		bookings: bookings,
		events:   events,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// WithClock replaces the wall clock, for tests.
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

// Quote prices seats on a trip without reserving them.
func (s *BookingService) Quote(ctx context.Context, tripID string, seats int, discount float64) (domain.BookingPriceBreakdown, error) {
	if seats < 1 {
		return domain.BookingPriceBreakdown{}, &domain.ValidationError{Problems: []string{"At least 1 seat must be booked"}}
	}

	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return domain.BookingPriceBreakdown{}, err
	}
	return pricing.CalculateBookingPrice(trip.PricePerSeat, seats, trip.TollCharges, discount), nil
}

// Validate checks a seat request against the trip's current state.
func (s *BookingService) Validate(ctx context.Context, tripID string, seats int) (domain.BookingValidation, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return domain.BookingValidation{}, err
	}
	return s.validate(trip, seats), nil
}

func (s *BookingService) validate(trip *domain.Trip, seats int) domain.BookingValidation {
	v := pricing.ValidateBooking(trip.AvailableSeats, seats, trip.DepartureTime, trip.BookingDeadlineHours, s.now())
	if trip.Status != domain.TripScheduled {
		v.Errors = append(v.Errors, fmt.Sprintf("Trip is %s", trip.Status))
		v.IsValid = false
	}
	return v
}

// Book validates the request, re-reads the live seat count, reserves the
// seats and stores a confirmed booking.
func (s *BookingService) Book(ctx context.Context, cmd BookCommand) (booking *domain.Booking, err error) {
	ctx, span := tracer.Start(ctx, "BookingService.Book", trace.WithAttributes(
		attribute.String("trip.id", cmd.TripID),
		attribute.Int("booking.seats", cmd.Seats),
	))
	defer func() { endSpan(span, err) }()

	if cmd.PassengerID == "" {
		return nil, &domain.ValidationError{Problems: []string{"Passenger is required"}}
	}

	trip, err := s.trips.GetByID(ctx, cmd.TripID)
	if err != nil {
		return nil, err
	}

	// A closed trip reports ErrTripNotBookable alongside the validation
	// problems; a request the trip cannot serve reports the problems alone.
	v := s.validate(trip, cmd.Seats)
	if !trip.IsBookable(s.now()) {
		return nil, fmt.Errorf("%w: %w", domain.ErrTripNotBookable, &domain.ValidationError{Problems: v.Errors})
	}
	if !v.IsValid {
		return nil, &domain.ValidationError{Problems: v.Errors}
	}

	price := pricing.CalculateBookingPrice(trip.PricePerSeat, cmd.Seats, trip.TollCharges, cmd.Discount)
	if price.TotalAmount < 0 {
		return nil, &domain.ValidationError{Problems: []string{"Discount exceeds booking total"}}
	}

	// The trip row read above may be stale by now.
	avail, err := pricing.CheckSeatAvailability(ctx, trip.ID, cmd.Seats, s.trips.AvailableSeats)
	if err != nil {
		return nil, err
	}
	if !avail.Available {
		return nil, fmt.Errorf("%w: %d left", domain.ErrSeatsUnavailable, avail.CurrentSeats)
	}

	if err := s.trips.ReserveSeats(ctx, trip.ID, cmd.Seats); err != nil {
		return nil, fmt.Errorf("reserve seats: %w", err)
	}

	booking = &domain.Booking{
		ID:           s.newID(),
		TripID:       trip.ID,
		PassengerID:  cmd.PassengerID,
		Seats:        cmd.Seats,
		Price:        price,
		Status:       domain.BookingConfirmed,
		RefundStatus: domain.RefundNone,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		if rerr := s.trips.ReleaseSeats(ctx, trip.ID, cmd.Seats); rerr != nil {
			logging.FromContext(ctx).ErrorContext(ctx, "release seats after failed booking", "trip_id", trip.ID, "seats", cmd.Seats, "error", rerr)
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.publish(ctx, &domain.BookingEvent{
		Type:        domain.EventBookingCreated,
		BookingID:   booking.ID,
		TripID:      booking.TripID,
		PassengerID: booking.PassengerID,
		Seats:       booking.Seats,
		TotalAmount: booking.Price.TotalAmount,
		OccurredAt:  booking.CreatedAt,
	})

	span.SetAttributes(attribute.String("booking.id", booking.ID))
	return booking, nil
}

// RefundQuote returns the refund the passenger would get by cancelling now.
func (s *BookingService) RefundQuote(ctx context.Context, bookingID string) (domain.RefundCalculation, error) {
	booking, trip, err := s.loadCancellable(ctx, bookingID)
	if err != nil {
		return domain.RefundCalculation{}, err
	}
	return pricing.CalculateRefund(trip.DepartureTime, booking.Price.TotalAmount, booking.Price.PlatformFee, s.now()), nil
}

// Cancel cancels an active booking, frees its seats and queues the refund.
// Bookings on trips that have already departed cannot be cancelled.
func (s *BookingService) Cancel(ctx context.Context, bookingID, reason string) (result *CancellationResult, err error) {
	ctx, span := tracer.Start(ctx, "BookingService.Cancel", trace.WithAttributes(
		attribute.String("booking.id", bookingID),
	))
	defer func() { endSpan(span, err) }()

	booking, trip, err := s.loadCancellable(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	refund := pricing.CalculateRefund(trip.DepartureTime, booking.Price.TotalAmount, booking.Price.PlatformFee, now)
	if refund.HoursBeforeDeparture < 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrBookingNotCancellable, refund.Reason)
	}

	status := domain.RefundNone
	if refund.IsEligible {
		status = domain.RefundPending
	}

	cancelledAt := now.UTC()
	if err := s.bookings.Cancel(ctx, ports.CancelBooking{
		BookingID:    booking.ID,
		Reason:       reason,
		RefundAmount: refund.RefundAmount,
		RefundStatus: status,
		CancelledAt:  cancelledAt,
	}); err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}

	// The booking is cancelled either way; a failed release leaves seats
	// undersold rather than oversold.
	if err := s.trips.ReleaseSeats(ctx, trip.ID, booking.Seats); err != nil {
		logging.FromContext(ctx).ErrorContext(ctx, "release seats", "trip_id", trip.ID, "booking_id", booking.ID, "error", err)
	}

	booking.Status = domain.BookingCancelled
	booking.RefundAmount = refund.RefundAmount
	booking.RefundStatus = status
	booking.CancelReason = reason
	booking.CancelledAt = &cancelledAt

	s.publish(ctx, &domain.BookingEvent{
		Type:         domain.EventBookingCancelled,
		BookingID:    booking.ID,
		TripID:       booking.TripID,
		PassengerID:  booking.PassengerID,
		Seats:        booking.Seats,
		TotalAmount:  booking.Price.TotalAmount,
		RefundAmount: refund.RefundAmount,
		OccurredAt:   cancelledAt,
	})

	span.SetAttributes(attribute.Float64("refund.amount", refund.RefundAmount))
	return &CancellationResult{Booking: booking, Refund: refund}, nil
}

func (s *BookingService) loadCancellable(ctx context.Context, bookingID string) (*domain.Booking, *domain.Trip, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	if !booking.CanBeCancelled() {
		return nil, nil, fmt.Errorf("%w: booking is %s", domain.ErrBookingNotCancellable, booking.Status)
	}
	trip, err := s.trips.GetByID(ctx, booking.TripID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, fmt.Errorf("trip %s of booking %s: %w", booking.TripID, booking.ID, err)
		}
		return nil, nil, err
	}
	return booking, trip, nil
}

// publish is best-effort: the booking is already committed.
func (s *BookingService) publish(ctx context.Context, event *domain.BookingEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishBookingEvent(ctx, event); err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "publish booking event", "type", event.Type, "booking_id", event.BookingID, "error", err)
	}
}
