package domain

import (
	"errors"
	"strings"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrTripNotBookable       = errors.New("trip is not open for booking")
	ErrSeatsUnavailable      = errors.New("requested seats are no longer available")
	ErrBookingNotCancellable = errors.New("booking cannot be cancelled")
	ErrInvalidBooking        = errors.New("invalid booking request")
	ErrRefundNotPending      = errors.New("refund is not pending")
	ErrInvalidSearch         = errors.New("invalid search")
)

// ValidationError lists every rule a booking request broke.
// It matches ErrInvalidBooking under errors.Is.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return ErrInvalidBooking.Error()
	}
	return ErrInvalidBooking.Error() + ": " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidBooking }
