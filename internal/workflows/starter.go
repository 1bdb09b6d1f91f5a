package workflows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/koolihub/koolihub/internal/core/domain"
)

// CancellationHandler starts one RefundWorkflow per cancelled booking that
// earned a refund. It is meant for ports.EventSubscriber.
func CancellationHandler(c client.Client, taskQueue string) func(ctx context.Context, event *domain.BookingEvent) error {
	return func(ctx context.Context, event *domain.BookingEvent) error {
		if event.RefundAmount <= 0 {
			return nil
		}

		opts := client.StartWorkflowOptions{
			ID:                    WorkflowID(event.BookingID),
			TaskQueue:             taskQueue,
			WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		}
		run, err := c.ExecuteWorkflow(ctx, opts, RefundWorkflow, RefundInput{BookingID: event.BookingID})
		if err != nil {
			var started *serviceerror.WorkflowExecutionAlreadyStarted
			if errors.As(err, &started) {
				return nil
			}
			return fmt.Errorf("start refund workflow for %s: %w", event.BookingID, err)
		}

		slog.InfoContext(ctx, "refund workflow started",
			"booking_id", event.BookingID,
			"amount", event.RefundAmount,
			"run_id", run.GetRunID(),
		)
		return nil
	}
}
