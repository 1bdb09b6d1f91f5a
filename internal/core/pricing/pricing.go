// Package pricing computes seat-booking prices, cancellation refunds and
// booking validations. Every function is pure: the current time is passed
// in explicitly and no function performs I/O except CheckSeatAvailability,
// which calls the SeatCounter it is given.
package pricing

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/koolihub/koolihub/internal/core/domain"
)

const (
	PlatformFeePercent = 5.0
	MinPlatformFee     = 10.0
	MaxPlatformFee     = 100.0
	GSTPercent         = 18.0

	// CancellationServiceFee is deducted from full refunds.
	CancellationServiceFee = 25.0

	DefaultBookingDeadlineHours = domain.DefaultBookingDeadlineHours
	ImminentDepartureHours      = 4.0
)

// cancellationPolicies is ordered by descending threshold; the first tier
// whose threshold is <= hoursBeforeDeparture applies.
var cancellationPolicies = []domain.CancellationPolicy{
	{HoursBeforeDeparture: 2, RefundPercentage: 100, ServiceFee: CancellationServiceFee, Description: "Full refund minus service fee"},
	{HoursBeforeDeparture: 0.5, RefundPercentage: 50, ServiceFee: 0, Description: "50% refund for late cancellation"},
	{HoursBeforeDeparture: 0, RefundPercentage: 0, ServiceFee: 0, Description: "No refund within 30 minutes of departure"},
}

// CalculatePlatformFee returns PlatformFeePercent of baseFare clamped to
// [MinPlatformFee, MaxPlatformFee].
func CalculatePlatformFee(baseFare float64) float64 {
	fee := baseFare * PlatformFeePercent / 100
	fee = math.Max(MinPlatformFee, math.Min(MaxPlatformFee, fee))
	return roundMoney(fee)
}

// CalculateGST returns the GST charged on the platform fee.
func CalculateGST(platformFee float64) float64 {
	return roundMoney(platformFee * GSTPercent / 100)
}

// CalculateBookingPrice itemises the price of seatsBooked seats. Only the
// total is rounded to paise, and it is not clamped: a discount larger than the other components yields a
// negative TotalAmount, which callers must reject.
func CalculateBookingPrice(pricePerSeat float64, seatsBooked int, tollCharges, discountAmount float64) domain.BookingPriceBreakdown {
	seats := float64(seatsBooked)
	baseFare := pricePerSeat * seats

	// Tolls are split per seat and recombined. Arithmetically a no-op
	// today; kept so partial-seat toll allocation only changes this block.
	var tolls float64
	if seatsBooked > 0 {
		tollPerSeat := tollCharges / seats
		tolls = tollPerSeat * seats
	}

	platformFee := CalculatePlatformFee(baseFare)
	gst := CalculateGST(platformFee)

	total := baseFare + platformFee + gst + tolls - discountAmount

	return domain.BookingPriceBreakdown{
		BaseFare:       baseFare,
		PlatformFee:    platformFee,
		GST:            gst,
		TollCharges:    tolls,
		DiscountAmount: discountAmount,
		TotalAmount:    roundMoney(total),
	}
}

// GetCancellationPolicy selects the refund tier for a cancellation made
// hoursBeforeDeparture hours ahead. Thresholds are inclusive.
func GetCancellationPolicy(hoursBeforeDeparture float64) domain.CancellationPolicy {
	for _, p := range cancellationPolicies {
		if hoursBeforeDeparture >= p.HoursBeforeDeparture {
			return p
		}
	}
	return cancellationPolicies[len(cancellationPolicies)-1]
}

// CalculateRefund quotes the refund for cancelling at now a booking whose
// trip departs at departureTime. The platform fee is never refunded.
func CalculateRefund(departureTime time.Time, totalAmount, platformFee float64, now time.Time) domain.RefundCalculation {
	hours := departureTime.Sub(now).Hours()
	if hours < 0 {
		return domain.RefundCalculation{
			IsEligible:           false,
			RefundAmount:         0,
			HoursBeforeDeparture: hours,
			Reason:               "Cannot cancel past trips",
		}
	}

	policy := GetCancellationPolicy(hours)
	refundable := totalAmount - platformFee
	amount := math.Max(0, refundable*policy.RefundPercentage/100-policy.ServiceFee)
	amount = roundMoney(amount)

	return domain.RefundCalculation{
		IsEligible:           amount > 0,
		RefundAmount:         amount,
		RefundPercentage:     policy.RefundPercentage,
		ServiceFee:           policy.ServiceFee,
		HoursBeforeDeparture: hours,
		Reason:               policy.Description,
	}
}

// ValidateBooking checks a seat request against the trip's availability
// and booking window. A zero bookingDeadlineHours keeps booking open until
// departure; a negative one means the default.
func ValidateBooking(availableSeats, requestedSeats int, departureTime time.Time, bookingDeadlineHours float64, now time.Time) domain.BookingValidation {
	if bookingDeadlineHours < 0 {
		bookingDeadlineHours = DefaultBookingDeadlineHours
	}

	errs := []string{}
	warnings := []string{}

	if requestedSeats > availableSeats {
		errs = append(errs, fmt.Sprintf("Only %d seat(s) available", availableSeats))
	}
	if departureTime.Before(now) {
		errs = append(errs, "Cannot book a trip that has already departed")
	}
	deadline := departureTime.Add(-time.Duration(bookingDeadlineHours * float64(time.Hour)))
	if now.After(deadline) {
		errs = append(errs, fmt.Sprintf("Booking closes %s hours before departure", formatHours(bookingDeadlineHours)))
	}
	if requestedSeats < 1 {
		errs = append(errs, "At least 1 seat must be booked")
	}

	hours := departureTime.Sub(now).Hours()
	if hours >= 0 && hours < ImminentDepartureHours {
		warnings = append(warnings, fmt.Sprintf("Trip departs in less than %s hours", formatHours(ImminentDepartureHours)))
	}

	return domain.BookingValidation{
		IsValid:  len(errs) == 0,
		Errors:   errs,
		Warnings: warnings,
	}
}

// SeatCounter fetches the live number of free seats on a trip.
type SeatCounter func(ctx context.Context, tripID string) (int, error)

// CheckSeatAvailability re-reads the live seat count right before a booking
// is committed. It only compares; reserving the seats is the caller's job.
func CheckSeatAvailability(ctx context.Context, tripID string, requestedSeats int, current SeatCounter) (domain.SeatAvailability, error) {
	seats, err := current(ctx, tripID)
	if err != nil {
		return domain.SeatAvailability{}, fmt.Errorf("fetch seats for trip %s: %w", tripID, err)
	}
	return domain.SeatAvailability{
		Available:    seats >= requestedSeats,
		CurrentSeats: seats,
	}, nil
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatHours(h float64) string {
	if h == math.Trunc(h) {
		return fmt.Sprintf("%d", int(h))
	}
	return fmt.Sprintf("%.1f", h)
}
