package workflows

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// errTypeNothingToRefund marks bookings whose refund is not pending.
const errTypeNothingToRefund = "NothingToRefund"

// RefundInput is the input for the refund workflow.
type RefundInput struct {
	BookingID string
}

// WorkflowID is deterministic per booking so a redelivered cancellation
// event cannot start a second settlement.
func WorkflowID(bookingID string) string {
	return "refund-" + bookingID
}

// RefundWorkflow settles the refund of a cancelled booking and returns the
// payment reference. If settlement keeps failing the refund is marked
// failed (saga compensation).
func RefundWorkflow(ctx workflow.Context, input RefundInput) (string, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting refund workflow", "bookingID", input.BookingID)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 3,
		},
	})

	var amount float64
	err := workflow.ExecuteActivity(ctx, "LoadPendingRefund", input.BookingID).Get(ctx, &amount)
	if err != nil {
		var appErr *temporal.ApplicationError
		if errors.As(err, &appErr) && appErr.Type() == errTypeNothingToRefund {
			logger.Info("Nothing to refund", "bookingID", input.BookingID)
			return "", nil
		}
		return "", err
	}

	var reference string
	err = workflow.ExecuteActivity(ctx, "SettleRefund", input.BookingID, amount).Get(ctx, &reference)
	if err != nil {
		logger.Warn("refund settlement failed, compensating", "error", err)
		if cerr := workflow.ExecuteActivity(ctx, "MarkRefundFailed", input.BookingID).Get(ctx, nil); cerr != nil {
			logger.Error("mark refund failed", "error", cerr)
		}
		return "", err
	}

	logger.Info("Refund settled", "bookingID", input.BookingID, "reference", reference)
	return reference, nil
}
