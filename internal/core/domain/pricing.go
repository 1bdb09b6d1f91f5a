package domain

// BookingPriceBreakdown is the itemised price of a seat booking.
type BookingPriceBreakdown struct {
	BaseFare       float64 `json:"base_fare"`
	PlatformFee    float64 `json:"platform_fee"`
	GST            float64 `json:"gst"`
	TollCharges    float64 `json:"toll_charges"`
	DiscountAmount float64 `json:"discount_amount"`
	TotalAmount    float64 `json:"total_amount"`
}

// CancellationPolicy is one tier of the time-based refund table.
type CancellationPolicy struct {
	HoursBeforeDeparture float64 `json:"hours_before_departure"`
	RefundPercentage     float64 `json:"refund_percentage"`
	ServiceFee           float64 `json:"service_fee"`
	Description          string  `json:"description"`
}

// RefundCalculation is the outcome of a cancellation refund quote.
type RefundCalculation struct {
	IsEligible           bool    `json:"is_eligible"`
	RefundAmount         float64 `json:"refund_amount"`
	RefundPercentage     float64 `json:"refund_percentage"`
	ServiceFee           float64 `json:"service_fee"`
	HoursBeforeDeparture float64 `json:"hours_before_departure"`
	Reason               string  `json:"reason"`
}

// BookingValidation carries blocking errors and informational warnings.
type BookingValidation struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// SeatAvailability is the result of a live seat re-check.
type SeatAvailability struct {
	Available    bool `json:"available"`
	CurrentSeats int  `json:"current_seats"`
}
