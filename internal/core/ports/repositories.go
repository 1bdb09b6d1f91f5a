package ports

import (
	"context"
	"time"

	"github.com/koolihub/koolihub/internal/core/domain"
)

// TripFilter narrows ListUpcoming.
type TripFilter struct {
	// DepartAfter excludes trips leaving before this instant.
	DepartAfter time.Time
	// On restricts results to trips departing on that calendar day (UTC).
	On    *time.Time
	Seats int
	Limit int
}

// TripRepository persists trips and their seat inventory.
type TripRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Trip, error)
	ListUpcoming(ctx context.Context, filter TripFilter) ([]domain.Trip, error)
	AvailableSeats(ctx context.Context, id string) (int, error)
	// ReserveSeats decrements available seats only if enough remain.
	// It returns domain.ErrSeatsUnavailable when the guard fails.
	ReserveSeats(ctx context.Context, id string, seats int) error
	ReleaseSeats(ctx context.Context, id string, seats int) error
}

// CancelBooking carries the outcome of a cancellation.
type CancelBooking struct {
	BookingID    string
	Reason       string
	RefundAmount float64
	RefundStatus domain.RefundStatus
	CancelledAt  time.Time
}

// BookingRepository persists bookings.
type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	// Cancel moves an active booking to cancelled. It returns
	// domain.ErrBookingNotCancellable if the booking is no longer active.
	Cancel(ctx context.Context, cmd CancelBooking) error
	UpdateRefundStatus(ctx context.Context, id string, status domain.RefundStatus) error
}

// RefundLedger records settled refunds.
type RefundLedger interface {
	Record(ctx context.Context, refund *domain.Refund) error
	GetByBookingID(ctx context.Context, bookingID string) (*domain.Refund, error)
}
