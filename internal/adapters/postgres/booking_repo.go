package postgres

import (
	"context"
	"fmt"

	"github.com/koolihub/koolihub/internal/core/domain"
	"github.com/koolihub/koolihub/internal/core/ports"
)

// BookingRepo implements ports.BookingRepository.
type BookingRepo struct {
	db *DB
}

func NewBookingRepo(db *DB) *BookingRepo {
	return &BookingRepo{db: db}
}

func (r *BookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO bookings (
			id, trip_id, passenger_id, seats,
			base_fare, platform_fee, gst, toll_charges, discount_amount, total_amount,
			status, refund_amount, refund_status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, b.ID, b.TripID, b.PassengerID, b.Seats,
		b.Price.BaseFare, b.Price.PlatformFee, b.Price.GST, b.Price.TollCharges, b.Price.DiscountAmount, b.Price.TotalAmount,
		string(b.Status), b.RefundAmount, string(b.RefundStatus), b.CreatedAt)
	return err
}

func (r *BookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	var b domain.Booking
	var status, refundStatus string
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, trip_id, passenger_id, seats,
		       base_fare, platform_fee, gst, toll_charges, discount_amount, total_amount,
		       status, refund_amount, refund_status, COALESCE(cancel_reason, ''),
		       created_at, cancelled_at
		FROM bookings WHERE id = $1
	`, id).Scan(&b.ID, &b.TripID, &b.PassengerID, &b.Seats,
		&b.Price.BaseFare, &b.Price.PlatformFee, &b.Price.GST, &b.Price.TollCharges, &b.Price.DiscountAmount, &b.Price.TotalAmount,
		&status, &b.RefundAmount, &refundStatus, &b.CancelReason,
		&b.CreatedAt, &b.CancelledAt)
	if err != nil {
		return nil, notFound(err, "booking", id)
	}
	b.Status = domain.BookingStatus(status)
	b.RefundStatus = domain.RefundStatus(refundStatus)
	return &b, nil
}

// Cancel only touches active bookings, so a double cancel loses cleanly.
func (r *BookingRepo) Cancel(ctx context.Context, cmd ports.CancelBooking) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE bookings
		SET status = 'cancelled', refund_amount = $2, refund_status = $3,
		    cancel_reason = NULLIF($4, ''), cancelled_at = $5
		WHERE id = $1 AND status IN ('pending', 'confirmed')
	`, cmd.BookingID, cmd.RefundAmount, string(cmd.RefundStatus), cmd.Reason, cmd.CancelledAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBookingNotCancellable
	}
	return nil
}

func (r *BookingRepo) UpdateRefundStatus(ctx context.Context, id string, status domain.RefundStatus) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE bookings SET refund_status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// RefundRepo implements ports.RefundLedger.
type RefundRepo struct {
	db *DB
}

func NewRefundRepo(db *DB) *RefundRepo {
	return &RefundRepo{db: db}
}

// Record is idempotent per booking: a second refund for the same booking
// is ignored.
func (r *RefundRepo) Record(ctx context.Context, refund *domain.Refund) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO refunds (id, booking_id, amount, reference, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (booking_id) DO NOTHING
	`, refund.ID, refund.BookingID, refund.Amount, refund.Reference, refund.CreatedAt)
	return err
}

func (r *RefundRepo) GetByBookingID(ctx context.Context, bookingID string) (*domain.Refund, error) {
	var ref domain.Refund
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, booking_id, amount, reference, created_at
		FROM refunds WHERE booking_id = $1
	`, bookingID).Scan(&ref.ID, &ref.BookingID, &ref.Amount, &ref.Reference, &ref.CreatedAt)
	if err != nil {
		return nil, notFound(err, "refund for booking", bookingID)
	}
	return &ref, nil
}
