package usecases_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koolihub/koolihub/internal/core/domain"
	"github.com/koolihub/koolihub/internal/core/ports"
	"github.com/koolihub/koolihub/internal/core/pricing"
	"github.com/koolihub/koolihub/internal/core/usecases"
	"github.com/koolihub/koolihub/internal/pkg/logging"
)

func tripRepoWith(trip *domain.Trip) *mockTripRepo {
	return &mockTripRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Trip, error) {
			if id != trip.ID {
				return nil, domain.ErrNotFound
			}
			cp := *trip
			return &cp, nil
		},
		availableSeatsFn: func(ctx context.Context, id string) (int, error) {
			return trip.AvailableSeats, nil
		},
	}
}

func TestBookingService_Quote(t *testing.T) {
	trips := tripRepoWith(scheduledTrip("trip-1", 10*time.Hour))
	svc := usecases.NewBookingService(trips, &mockBookingRepo{}, nil).WithClock(clock)

	got, err := svc.Quote(context.Background(), "trip-1", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, got.BaseFare)
	assert.Equal(t, 50.0, got.PlatformFee)
	assert.Equal(t, 9.0, got.GST)
	assert.Equal(t, 1059.0, got.TotalAmount)

	_, err = svc.Quote(context.Background(), "trip-1", 0, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidBooking)

	_, err = svc.Quote(context.Background(), "missing", 1, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBookingService_Validate(t *testing.T) {
	trips := tripRepoWith(scheduledTrip("trip-1", 3*time.Hour))
	svc := usecases.NewBookingService(trips, &mockBookingRepo{}, nil).WithClock(clock)

	v, err := svc.Validate(context.Background(), "trip-1", 1)
	require.NoError(t, err)
	assert.True(t, v.IsValid)
	assert.Len(t, v.Warnings, 1)

	v, err = svc.Validate(context.Background(), "trip-1", 4)
	require.NoError(t, err)
	assert.False(t, v.IsValid)
	assert.Contains(t, v.Errors, "Only 3 seat(s) available")
}

func TestBookingService_Book(t *testing.T) {
	trip := scheduledTrip("trip-1", 10*time.Hour)
	trips := tripRepoWith(trip)

	var reserved int
	trips.reserveSeatsFn = func(ctx context.Context, id string, seats int) error {
		reserved += seats
		return nil
	}

	bookings := &mockBookingRepo{}
	events := &mockPublisher{}
	svc := usecases.NewBookingService(trips, bookings, events).WithClock(clock)

	b, err := svc.Book(context.Background(), usecases.BookCommand{TripID: "trip-1", PassengerID: "p-1", Seats: 2})
	require.NoError(t, err)

	assert.NotEmpty(t, b.ID)
	assert.Equal(t, domain.BookingConfirmed, b.Status)
	assert.Equal(t, domain.RefundNone, b.RefundStatus)
	assert.Equal(t, 1059.0, b.Price.TotalAmount)
	assert.Equal(t, now, b.CreatedAt)
	assert.Equal(t, 2, reserved)
	require.Len(t, bookings.created, 1)

	require.Len(t, events.events, 1)
	assert.Equal(t, domain.EventBookingCreated, events.events[0].Type)
	assert.Equal(t, b.ID, events.events[0].BookingID)
}

func TestBookingService_Book_Rejected(t *testing.T) {
	ctx := context.Background()

	t.Run("too many seats", func(t *testing.T) {
		svc := usecases.NewBookingService(tripRepoWith(scheduledTrip("trip-1", 10*time.Hour)), &mockBookingRepo{}, nil).WithClock(clock)
		_, err := svc.Book(ctx, usecases.BookCommand{TripID: "trip-1", PassengerID: "p-1", Seats: 5})
		require.ErrorIs(t, err, domain.ErrInvalidBooking)

		var ve *domain.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Contains(t, ve.Problems, "Only 3 seat(s) available")
	})

	t.Run("missing passenger", func(t *testing.T) {
		svc := usecases.NewBookingService(tripRepoWith(scheduledTrip("trip-1", 10*time.Hour)), &mockBookingRepo{}, nil).WithClock(clock)
		_, err := svc.Book(ctx, usecases.BookCommand{TripID: "trip-1", Seats: 1})
		assert.ErrorIs(t, err, domain.ErrInvalidBooking)
	})

	t.Run("cancelled trip", func(t *testing.T) {
		trip := scheduledTrip("trip-1", 10*time.Hour)
		trip.Status = domain.TripCancelled
		svc := usecases.NewBookingService(tripRepoWith(trip), &mockBookingRepo{}, nil).WithClock(clock)

		_, err := svc.Book(ctx, usecases.BookCommand{TripID: "trip-1", PassengerID: "p-1", Seats: 1})
		assert.ErrorIs(t, err, domain.ErrTripNotBookable)
		var ve *domain.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Contains(t, ve.Problems, "Trip is cancelled")
	})

	t.Run("booking window closed", func(t *testing.T) {
		svc := usecases.NewBookingService(tripRepoWith(scheduledTrip("trip-1", time.Hour)), &mockBookingRepo{}, nil).WithClock(clock)
		_, err := svc.Book(ctx, usecases.BookCommand{TripID: "trip-1", PassengerID: "p-1", Seats: 1})
		assert.ErrorIs(t, err, domain.ErrInvalidBooking)
		assert.ErrorIs(t, err, domain.ErrTripNotBookable)
	})

	t.Run("too many seats on an open trip is not a closed trip", func(t *testing.T) {
		svc := usecases.NewBookingService(tripRepoWith(scheduledTrip("trip-1", 10*time.Hour)), &mockBookingRepo{}, nil).WithClock(clock)
		_, err := svc.Book(ctx, usecases.BookCommand{TripID: "trip-1", PassengerID: "p-1", Seats: 4})
		assert.ErrorIs(t, err, domain.ErrInvalidBooking)
		assert.NotErrorIs(t, err, domain.ErrTripNotBookable)
	})

	t.Run("sold out", func(t *testing.T) {
		trip := scheduledTrip("trip-1", 10*time.Hour)
		trip.AvailableSeats = 0
		svc := usecases.NewBookingService(tripRepoWith(trip), &mockBookingRepo{}, nil).WithClock(clock)

		_, err := svc.Book(ctx, usecases.BookCommand{TripID: "trip-1", PassengerID: "p-1", Seats: 1})
		assert.ErrorIs(t, err, domain.ErrTripNotBookable)
	})

	t.Run("zero deadline books an hour before departure", func(t *testing.T) {
		trip := scheduledTrip("trip-1", time.Hour)
		trip.BookingDeadlineHours = 0
		svc := usecases.NewBookingService(tripRepoWith(trip), &mockBookingRepo{}, nil).WithClock(clock)

		b, err := svc.Book(ctx, usecases.BookCommand{TripID: "trip-1", PassengerID: "p-1", Seats: 1})
		require.NoError(t, err)
		assert.Equal(t, domain.BookingConfirmed, b.Status)
	})

	t.Run("discount larger than total", func(t *testing.T) {
		svc := usecases.NewBookingService(tripRepoWith(scheduledTrip("trip-1", 10*time.Hour)), &mockBookingRepo{}, nil).WithClock(clock)
		_, err := svc.Book(ctx, usecases.BookCommand{TripID: "trip-1", PassengerID: "p-1", Seats: 1, Discount: 5000})
		assert.ErrorIs(t, err, domain.ErrInvalidBooking)
	})
}

func TestBookingService_Book_LogsWithRequestLogger(t *testing.T) {
	trips := tripRepoWith(scheduledTrip("trip-1", 10*time.Hour))
	trips.releaseSeatsFn = func(ctx context.Context, id string, seats int) error {
		return errors.New("connection reset")
	}
	bookings := &mockBookingRepo{createFn: func(ctx context.Context, b *domain.Booking) error {
		return errors.New("insert failed")
	}}
	svc := usecases.NewBookingService(trips, bookings, nil).WithClock(clock)

	var buf bytes.Buffer
	ctx := logging.WithLogger(context.Background(), logging.New(&buf, "", "info", "json").With("request_id", "req-42"))

	_, err := svc.Book(ctx, usecases.BookCommand{TripID: "trip-1", PassengerID: "p-1", Seats: 1})
	require.Error(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "release seats after failed booking", rec["msg"])
	assert.Equal(t, "req-42", rec["request_id"])
}

func TestBookingService_Book_SeatsTakenMeanwhile(t *testing.T) {
	trips := tripRepoWith(scheduledTrip("trip-1", 10*time.Hour))
	trips.availableSeatsFn = func(ctx context.Context, id string) (int, error) { return 1, nil }

	reserveCalled := false
	trips.reserveSeatsFn = func(ctx context.Context, id string, seats int) error {
		reserveCalled = true
		return nil
	}

	bookings := &mockBookingRepo{}
	svc := usecases.NewBookingService(trips, bookings, nil).WithClock(clock)

	_, err := svc.Book(context.Background(), usecases.BookCommand{TripID: "trip-1", PassengerID: "p-1", Seats: 2})
	assert.ErrorIs(t, err, domain.ErrSeatsUnavailable)
	assert.False(t, reserveCalled)
	assert.Empty(t, bookings.created)
}

func TestBookingService_Book_ReserveGuardFails(t *testing.T) {
	trips := tripRepoWith(scheduledTrip("trip-1", 10*time.Hour))
	trips.reserveSeatsFn = func(ctx context.Context, id string, seats int) error {
		return domain.ErrSeatsUnavailable
	}

	bookings := &mockBookingRepo{}
	svc := usecases.NewBookingService(trips, bookings, nil).WithClock(clock)

	_, err := svc.Book(context.Background(), usecases.BookCommand{TripID: "trip-1", PassengerID: "p-1", Seats: 2})
	assert.ErrorIs(t, err, domain.ErrSeatsUnavailable)
	assert.Empty(t, bookings.created)
}

func TestBookingService_Book_ReleasesSeatsWhenCreateFails(t *testing.T) {
	trips := tripRepoWith(scheduledTrip("trip-1", 10*time.Hour))
	bookings := &mockBookingRepo{
		createFn: func(ctx context.Context, b *domain.Booking) error { return errors.New("insert failed") },
	}
	svc := usecases.NewBookingService(trips, bookings, nil).WithClock(clock)

	_, err := svc.Book(context.Background(), usecases.BookCommand{TripID: "trip-1", PassengerID: "p-1", Seats: 2})
	require.Error(t, err)
	assert.Equal(t, 2, trips.released)
}

func TestBookingService_Book_PublishFailureIsNotFatal(t *testing.T) {
	trips := tripRepoWith(scheduledTrip("trip-1", 10*time.Hour))
	events := &mockPublisher{err: errors.New("nats down")}
	svc := usecases.NewBookingService(trips, &mockBookingRepo{}, events).WithClock(clock)

	b, err := svc.Book(context.Background(), usecases.BookCommand{TripID: "trip-1", PassengerID: "p-1", Seats: 1})
	require.NoError(t, err)
	assert.NotNil(t, b)
	assert.Len(t, events.events, 1)
}

func confirmedBooking(tripID string) *domain.Booking {
	return &domain.Booking{
		ID:           "booking-1",
		TripID:       tripID,
		PassengerID:  "p-1",
		Seats:        2,
		Price:        pricing.CalculateBookingPrice(500, 2, 0, 0),
		Status:       domain.BookingConfirmed,
		RefundStatus: domain.RefundNone,
	}
}

func bookingRepoWith(b *domain.Booking) *mockBookingRepo {
	return &mockBookingRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Booking, error) {
			if id != b.ID {
				return nil, domain.ErrNotFound
			}
			cp := *b
			return &cp, nil
		},
	}
}

func TestBookingService_RefundQuote(t *testing.T) {
	trips := tripRepoWith(scheduledTrip("trip-1", time.Hour))
	svc := usecases.NewBookingService(trips, bookingRepoWith(confirmedBooking("trip-1")), nil).WithClock(clock)

	got, err := svc.RefundQuote(context.Background(), "booking-1")
	require.NoError(t, err)
	assert.True(t, got.IsEligible)
	assert.Equal(t, 504.5, got.RefundAmount)
	assert.Equal(t, 50.0, got.RefundPercentage)
}

func TestBookingService_Cancel(t *testing.T) {
	trips := tripRepoWith(scheduledTrip("trip-1", 3*time.Hour))
	bookings := bookingRepoWith(confirmedBooking("trip-1"))

	var got ports.CancelBooking
	bookings.cancelFn = func(ctx context.Context, cmd ports.CancelBooking) error {
		got = cmd
		return nil
	}
	events := &mockPublisher{}
	svc := usecases.NewBookingService(trips, bookings, events).WithClock(clock)

	res, err := svc.Cancel(context.Background(), "booking-1", "plans changed")
	require.NoError(t, err)

	assert.Equal(t, 984.0, res.Refund.RefundAmount)
	assert.Equal(t, domain.BookingCancelled, res.Booking.Status)
	assert.Equal(t, domain.RefundPending, res.Booking.RefundStatus)
	require.NotNil(t, res.Booking.CancelledAt)

	assert.Equal(t, "booking-1", got.BookingID)
	assert.Equal(t, "plans changed", got.Reason)
	assert.Equal(t, 984.0, got.RefundAmount)
	assert.Equal(t, domain.RefundPending, got.RefundStatus)
	assert.Equal(t, now, got.CancelledAt)

	assert.Equal(t, 2, trips.released)
	require.Len(t, events.events, 1)
	assert.Equal(t, domain.EventBookingCancelled, events.events[0].Type)
	assert.Equal(t, 984.0, events.events[0].RefundAmount)
}

func TestBookingService_Cancel_NoRefundCloseToDeparture(t *testing.T) {
	trips := tripRepoWith(scheduledTrip("trip-1", 10*time.Minute))
	bookings := bookingRepoWith(confirmedBooking("trip-1"))

	var got ports.CancelBooking
	bookings.cancelFn = func(ctx context.Context, cmd ports.CancelBooking) error {
		got = cmd
		return nil
	}
	svc := usecases.NewBookingService(trips, bookings, nil).WithClock(clock)

	res, err := svc.Cancel(context.Background(), "booking-1", "")
	require.NoError(t, err)
	assert.False(t, res.Refund.IsEligible)
	assert.Equal(t, domain.RefundNone, got.RefundStatus)
	assert.Equal(t, 0.0, got.RefundAmount)
}

func TestBookingService_Cancel_Rejected(t *testing.T) {
	ctx := context.Background()

	t.Run("trip departed", func(t *testing.T) {
		trips := tripRepoWith(scheduledTrip("trip-1", -time.Hour))
		svc := usecases.NewBookingService(trips, bookingRepoWith(confirmedBooking("trip-1")), nil).WithClock(clock)

		_, err := svc.Cancel(ctx, "booking-1", "")
		assert.ErrorIs(t, err, domain.ErrBookingNotCancellable)
		assert.Zero(t, trips.released)
	})

	t.Run("already cancelled", func(t *testing.T) {
		b := confirmedBooking("trip-1")
		b.Status = domain.BookingCancelled
		svc := usecases.NewBookingService(tripRepoWith(scheduledTrip("trip-1", 5*time.Hour)), bookingRepoWith(b), nil).WithClock(clock)

		_, err := svc.Cancel(ctx, "booking-1", "")
		assert.ErrorIs(t, err, domain.ErrBookingNotCancellable)
	})

	t.Run("lost race with another cancel", func(t *testing.T) {
		trips := tripRepoWith(scheduledTrip("trip-1", 5*time.Hour))
		bookings := bookingRepoWith(confirmedBooking("trip-1"))
		bookings.cancelFn = func(ctx context.Context, cmd ports.CancelBooking) error {
			return domain.ErrBookingNotCancellable
		}
		svc := usecases.NewBookingService(trips, bookings, nil).WithClock(clock)

		_, err := svc.Cancel(ctx, "booking-1", "")
		assert.ErrorIs(t, err, domain.ErrBookingNotCancellable)
		assert.Zero(t, trips.released)
	})

	t.Run("unknown booking", func(t *testing.T) {
		svc := usecases.NewBookingService(tripRepoWith(scheduledTrip("trip-1", 5*time.Hour)), &mockBookingRepo{}, nil).WithClock(clock)
		_, err := svc.Cancel(ctx, "nope", "")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
