package domain

import (
	"time"
)

// TripStatus is the lifecycle state of a published trip.
type TripStatus string

const (
	TripScheduled  TripStatus = "scheduled"
	TripInProgress TripStatus = "in_progress"
	TripCompleted  TripStatus = "completed"
	TripCancelled  TripStatus = "cancelled"
)

// BookingStatus is the lifecycle state of a seat booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// RefundStatus tracks settlement of a cancellation refund.
type RefundStatus string

const (
	RefundNone      RefundStatus = "none"
	RefundPending   RefundStatus = "pending"
	RefundProcessed RefundStatus = "processed"
	RefundFailed    RefundStatus = "failed"
)

// DefaultBookingDeadlineHours applies when a trip carries a negative
// booking deadline.
const DefaultBookingDeadlineHours = 2.0

// Trip is a ride offered by a driver with seats for sale.
type Trip struct {
	ID                   string     `json:"id"`
	DriverID             string     `json:"driver_id"`
	VehicleID            string     `json:"vehicle_id,omitempty"`
	Origin               string     `json:"origin"`
	Destination          string     `json:"destination"`
	Pickup               GeoPoint   `json:"pickup"`
	Dropoff              GeoPoint   `json:"dropoff"`
	DepartureTime        time.Time  `json:"departure_time"`
	PricePerSeat         float64    `json:"price_per_seat"`
	TollCharges          float64    `json:"toll_charges"`
	TotalSeats           int        `json:"total_seats"`
	AvailableSeats       int        `json:"available_seats"`
	BookingDeadlineHours float64    `json:"booking_deadline_hours"`
	Status               TripStatus `json:"status"`
	CreatedAt            time.Time  `json:"created_at"`
}

// HoursUntilDeparture is negative once the trip has left.
func (t *Trip) HoursUntilDeparture(now time.Time) float64 {
	return t.DepartureTime.Sub(now).Hours()
}

// HasDeparted reports whether the departure time is before now.
func (t *Trip) HasDeparted(now time.Time) bool {
	return t.DepartureTime.Before(now)
}

// HasSeats reports whether n seats can still be sold.
func (t *Trip) HasSeats(n int) bool {
	return n >= 1 && n <= t.AvailableSeats
}

// BookingClosesAt is the last instant a booking is accepted. A zero
// deadline closes booking at departure.
func (t *Trip) BookingClosesAt() time.Time {
	h := t.BookingDeadlineHours
	if h < 0 {
		h = DefaultBookingDeadlineHours
	}
	return t.DepartureTime.Add(-time.Duration(h * float64(time.Hour)))
}

// IsBookable reports whether the trip still takes bookings at now.
func (t *Trip) IsBookable(now time.Time) bool {
	return t.Status == TripScheduled && t.AvailableSeats > 0 && !now.After(t.BookingClosesAt())
}

// Booking is a passenger's reservation of seats on a trip.
type Booking struct {
	ID           string                `json:"id"`
	TripID       string                `json:"trip_id"`
	PassengerID  string                `json:"passenger_id"`
	Seats        int                   `json:"seats"`
	Price        BookingPriceBreakdown `json:"price"`
	Status       BookingStatus         `json:"status"`
	RefundAmount float64               `json:"refund_amount"`
	RefundStatus RefundStatus          `json:"refund_status"`
	CancelReason string                `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	CancelledAt  *time.Time            `json:"cancelled_at,omitempty"`
}

// IsActive reports whether the booking still holds seats.
func (b *Booking) IsActive() bool {
	return b.Status == BookingPending || b.Status == BookingConfirmed
}

// CanBeCancelled reports whether the passenger may still cancel.
func (b *Booking) CanBeCancelled() bool {
	return b.IsActive()
}

// Refund is a ledger entry for a settled cancellation refund.
type Refund struct {
	ID        string    `json:"id"`
	BookingID string    `json:"booking_id"`
	Amount    float64   `json:"amount"`
	Reference string    `json:"reference"`
	CreatedAt time.Time `json:"created_at"`
}
