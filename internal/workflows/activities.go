package workflows

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/koolihub/koolihub/internal/core/domain"
	"github.com/koolihub/koolihub/internal/core/usecases"
	"github.com/koolihub/koolihub/internal/pkg/metrics"
)

// RefundActivities holds the activity implementations for the refund workflow.
type RefundActivities struct {
	Refunds *usecases.RefundService
}

// LoadPendingRefund returns the amount owed. Bookings that are missing or
// have no pending refund fail without retry.
func (a *RefundActivities) LoadPendingRefund(ctx context.Context, bookingID string) (float64, error) {
	amount, err := a.Refunds.PendingAmount(ctx, bookingID)
	switch {
	case errors.Is(err, domain.ErrRefundNotPending):
		metrics.RefundsSettled.WithLabelValues("skipped").Inc()
		return 0, temporal.NewNonRetryableApplicationError(err.Error(), errTypeNothingToRefund, err)
	case errors.Is(err, domain.ErrNotFound):
		return 0, temporal.NewNonRetryableApplicationError(err.Error(), "BookingNotFound", err)
	case err != nil:
		return 0, fmt.Errorf("load refund for %s: %w", bookingID, err)
	}
	return amount, nil
}

// SettleRefund records the refund and returns its payment reference.
func (a *RefundActivities) SettleRefund(ctx context.Context, bookingID string, amount float64) (string, error) {
	refund, err := a.Refunds.Settle(ctx, bookingID, amount)
	if err != nil {
		return "", fmt.Errorf("settle refund for %s: %w", bookingID, err)
	}
	metrics.RefundsSettled.WithLabelValues("processed").Inc()
	activity.GetLogger(ctx).Info("Refund recorded", "bookingID", bookingID, "amount", refund.Amount, "reference", refund.Reference)
	return refund.Reference, nil
}

// MarkRefundFailed flags the refund for manual follow-up (saga compensation).
func (a *RefundActivities) MarkRefundFailed(ctx context.Context, bookingID string) error {
	if err := a.Refunds.MarkFailed(ctx, bookingID); err != nil {
		return fmt.Errorf("mark refund failed for %s: %w", bookingID, err)
	}
	metrics.RefundsSettled.WithLabelValues("failed").Inc()
	return nil
}
