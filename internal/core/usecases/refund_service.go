package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/koolihub/koolihub/internal/core/domain"
	"github.com/koolihub/koolihub/internal/core/ports"
)

// RefundService settles refunds queued by cancellations.
type RefundService struct {
	bookings ports.BookingRepository
	ledger   ports.RefundLedger
	now      func() time.Time
}

// NewRefundService creates a new RefundService.
func NewRefundService(bookings ports.BookingRepository, ledger ports.RefundLedger) *RefundService {
	return &RefundService{bookings: bookings, ledger: ledger, now: time.Now}
}

// WithClock replaces the wall clock, for tests.
func (s *RefundService) WithClock(now func() time.Time) *RefundService {
	s.now = now
	return s
}

// PendingAmount returns the refund owed on a cancelled booking.
func (s *RefundService) PendingAmount(ctx context.Context, bookingID string) (float64, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return 0, err
	}
	if b.RefundStatus != domain.RefundPending {
		return 0, fmt.Errorf("%w: booking %s is %s", domain.ErrRefundNotPending, bookingID, b.RefundStatus)
	}
	return b.RefundAmount, nil
}

// Settle records the refund in the ledger and marks it processed. Calling
// it again for the same booking returns the existing ledger entry.
func (s *RefundService) Settle(ctx context.Context, bookingID string, amount float64) (*domain.Refund, error) {
	existing, err := s.ledger.GetByBookingID(ctx, bookingID)
	switch {
	case err == nil:
		if err := s.bookings.UpdateRefundStatus(ctx, bookingID, domain.RefundProcessed); err != nil {
			return nil, fmt.Errorf("mark refund processed: %w", err)
		}
		return existing, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("lookup refund: %w", err)
	}

	refund := &domain.Refund{
		ID:        uuid.NewString(),
		BookingID: bookingID,
		Amount:    amount,
		Reference: newRefundReference(),
		CreatedAt: s.now().UTC(),
	}
	if err := s.ledger.Record(ctx, refund); err != nil {
		return nil, fmt.Errorf("record refund: %w", err)
	}
	if err := s.bookings.UpdateRefundStatus(ctx, bookingID, domain.RefundProcessed); err != nil {
		return nil, fmt.Errorf("mark refund processed: %w", err)
	}
	return refund, nil
}

// MarkFailed flags a refund that could not be settled.
func (s *RefundService) MarkFailed(ctx context.Context, bookingID string) error {
	return s.bookings.UpdateRefundStatus(ctx, bookingID, domain.RefundFailed)
}

func newRefundReference() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "RF-" + strings.ToUpper(id[:12])
}
