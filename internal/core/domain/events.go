package domain

import "time"

// Booking event types published to the broker.
const (
	EventBookingCreated   = "booking.created"
	EventBookingCancelled = "booking.cancelled"
)

// BookingEvent is the broker payload for booking lifecycle changes.
type BookingEvent struct {
	Type         string    `json:"type"`
	BookingID    string    `json:"booking_id"`
	TripID       string    `json:"trip_id"`
	PassengerID  string    `json:"passenger_id"`
	Seats        int       `json:"seats"`
	TotalAmount  float64   `json:"total_amount"`
	RefundAmount float64   `json:"refund_amount,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}
