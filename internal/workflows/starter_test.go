package workflows_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"

	"github.com/koolihub/koolihub/internal/core/domain"
	"github.com/koolihub/koolihub/internal/workflows"
)

func cancelled(amount float64) *domain.BookingEvent {
	return &domain.BookingEvent{Type: domain.EventBookingCancelled, BookingID: "b1", TripID: "t1", RefundAmount: amount}
}

func TestCancellationHandler_StartsWorkflow(t *testing.T) {
	c := &mocks.Client{}
	run := &mocks.WorkflowRun{}
	run.On("GetRunID").Return("run-1")

	c.On("ExecuteWorkflow", mock.Anything, mock.MatchedBy(func(o client.StartWorkflowOptions) bool {
		return o.ID == "refund-b1" &&
			o.TaskQueue == "refunds" &&
			o.WorkflowIDReusePolicy == enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE
	}), mock.Anything, workflows.RefundInput{BookingID: "b1"}).Return(run, nil).Once()

	err := workflows.CancellationHandler(c, "refunds")(context.Background(), cancelled(984))
	assert.NoError(t, err)
	c.AssertExpectations(t)
}

func TestCancellationHandler_SkipsZeroRefund(t *testing.T) {
	c := &mocks.Client{}

	err := workflows.CancellationHandler(c, "refunds")(context.Background(), cancelled(0))
	assert.NoError(t, err)
	c.AssertNotCalled(t, "ExecuteWorkflow")
}

func TestCancellationHandler_Redelivery(t *testing.T) {
	c := &mocks.Client{}
	c.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, serviceerror.NewWorkflowExecutionAlreadyStarted("already started", "", "run-0")).Once()

	err := workflows.CancellationHandler(c, "refunds")(context.Background(), cancelled(504.5))
	assert.NoError(t, err)
}

func TestCancellationHandler_StartFailure(t *testing.T) {
	c := &mocks.Client{}
	c.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("frontend unavailable")).Once()

	err := workflows.CancellationHandler(c, "refunds")(context.Background(), cancelled(504.5))
	assert.ErrorContains(t, err, "start refund workflow for b1")
}
