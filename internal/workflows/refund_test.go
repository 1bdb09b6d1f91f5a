package workflows_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/koolihub/koolihub/internal/core/domain"
	"github.com/koolihub/koolihub/internal/core/ports"
	"github.com/koolihub/koolihub/internal/core/usecases"
	"github.com/koolihub/koolihub/internal/workflows"
)

type memBookings struct {
	mu       sync.Mutex
	bookings map[string]*domain.Booking
}

func (m *memBookings) Create(ctx context.Context, b *domain.Booking) error { return nil }

func (m *memBookings) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
	}
	cp := *b
	return &cp, nil
}

func (m *memBookings) Cancel(ctx context.Context, cmd ports.CancelBooking) error { return nil }

func (m *memBookings) UpdateRefundStatus(ctx context.Context, id string, status domain.RefundStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[id].RefundStatus = status
	return nil
}

func (m *memBookings) status(id string) domain.RefundStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookings[id].RefundStatus
}

type memLedger struct {
	mu        sync.Mutex
	refunds   map[string]*domain.Refund
	recordErr error
	attempts  int
}

func (m *memLedger) Record(ctx context.Context, r *domain.Refund) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	if m.recordErr != nil {
		return m.recordErr
	}
	m.refunds[r.BookingID] = r
	return nil
}

func (m *memLedger) GetByBookingID(ctx context.Context, bookingID string) (*domain.Refund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.refunds[bookingID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r, nil
}

func setup(t *testing.T, status domain.RefundStatus) (*testsuite.TestWorkflowEnvironment, *memBookings, *memLedger) {
	t.Helper()
	bookings := &memBookings{bookings: map[string]*domain.Booking{
		"b1": {
			ID:           "b1",
			Status:       domain.BookingCancelled,
			RefundAmount: 984,
			RefundStatus: status,
		},
	}}
	ledger := &memLedger{refunds: map[string]*domain.Refund{}}

	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(workflows.RefundWorkflow)
	env.RegisterActivity(&workflows.RefundActivities{Refunds: usecases.NewRefundService(bookings, ledger)})
	return env, bookings, ledger
}

func TestRefundWorkflow_Settles(t *testing.T) {
	env, bookings, ledger := setup(t, domain.RefundPending)

	env.ExecuteWorkflow(workflows.RefundWorkflow, workflows.RefundInput{BookingID: "b1"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var reference string
	require.NoError(t, env.GetWorkflowResult(&reference))
	assert.True(t, strings.HasPrefix(reference, "RF-"), reference)
	assert.Len(t, reference, 15)

	assert.Equal(t, domain.RefundProcessed, bookings.status("b1"))
	require.Contains(t, ledger.refunds, "b1")
	assert.Equal(t, 984.0, ledger.refunds["b1"].Amount)
	assert.Equal(t, reference, ledger.refunds["b1"].Reference)
}

func TestRefundWorkflow_NothingPending(t *testing.T) {
	env, bookings, ledger := setup(t, domain.RefundNone)

	env.ExecuteWorkflow(workflows.RefundWorkflow, workflows.RefundInput{BookingID: "b1"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var reference string
	require.NoError(t, env.GetWorkflowResult(&reference))
	assert.Empty(t, reference)
	assert.Equal(t, domain.RefundNone, bookings.status("b1"))
	assert.Zero(t, ledger.attempts)
}

func TestRefundWorkflow_UnknownBooking(t *testing.T) {
	env, _, ledger := setup(t, domain.RefundPending)

	env.ExecuteWorkflow(workflows.RefundWorkflow, workflows.RefundInput{BookingID: "missing"})
	require.True(t, env.IsWorkflowCompleted())
	assert.Error(t, env.GetWorkflowError())
	assert.Zero(t, ledger.attempts)
}

func TestRefundWorkflow_CompensatesOnFailure(t *testing.T) {
	env, bookings, ledger := setup(t, domain.RefundPending)
	ledger.recordErr = errors.New("payment gateway unavailable")

	env.ExecuteWorkflow(workflows.RefundWorkflow, workflows.RefundInput{BookingID: "b1"})
	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())

	assert.Equal(t, 3, ledger.attempts)
	assert.Equal(t, domain.RefundFailed, bookings.status("b1"))
}

func TestWorkflowID(t *testing.T) {
	assert.Equal(t, "refund-b1", workflows.WorkflowID("b1"))
}
