package usecases_test

import (
	"context"
	"sync"
	"time"

	"github.com/koolihub/koolihub/internal/core/domain"
	"github.com/koolihub/koolihub/internal/core/ports"
)

var now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

// --- Mock TripRepository ---

type mockTripRepo struct {
	getByIDFn        func(ctx context.Context, id string) (*domain.Trip, error)
	listUpcomingFn   func(ctx context.Context, f ports.TripFilter) ([]domain.Trip, error)
	availableSeatsFn func(ctx context.Context, id string) (int, error)
	reserveSeatsFn   func(ctx context.Context, id string, seats int) error
	releaseSeatsFn   func(ctx context.Context, id string, seats int) error

	mu       sync.Mutex
	released int
}

func (m *mockTripRepo) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockTripRepo) ListUpcoming(ctx context.Context, f ports.TripFilter) ([]domain.Trip, error) {
	if m.listUpcomingFn != nil {
		return m.listUpcomingFn(ctx, f)
	}
	return nil, nil
}

func (m *mockTripRepo) AvailableSeats(ctx context.Context, id string) (int, error) {
	if m.availableSeatsFn != nil {
		return m.availableSeatsFn(ctx, id)
	}
	return 0, nil
}

func (m *mockTripRepo) ReserveSeats(ctx context.Context, id string, seats int) error {
	if m.reserveSeatsFn != nil {
		return m.reserveSeatsFn(ctx, id, seats)
	}
	return nil
}

func (m *mockTripRepo) ReleaseSeats(ctx context.Context, id string, seats int) error {
	m.mu.Lock()
	m.released += seats
	m.mu.Unlock()
	if m.releaseSeatsFn != nil {
		return m.releaseSeatsFn(ctx, id, seats)
	}
	return nil
}

// --- Mock BookingRepository ---

type mockBookingRepo struct {
	createFn       func(ctx context.Context, b *domain.Booking) error
	getByIDFn      func(ctx context.Context, id string) (*domain.Booking, error)
	cancelFn       func(ctx context.Context, cmd ports.CancelBooking) error
	updateRefundFn func(ctx context.Context, id string, status domain.RefundStatus) error

	created  []*domain.Booking
	statuses []domain.RefundStatus
}

func (m *mockBookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	m.created = append(m.created, b)
	if m.createFn != nil {
		return m.createFn(ctx, b)
	}
	return nil
}

func (m *mockBookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockBookingRepo) Cancel(ctx context.Context, cmd ports.CancelBooking) error {
	if m.cancelFn != nil {
		return m.cancelFn(ctx, cmd)
	}
	return nil
}

func (m *mockBookingRepo) UpdateRefundStatus(ctx context.Context, id string, status domain.RefundStatus) error {
	m.statuses = append(m.statuses, status)
	if m.updateRefundFn != nil {
		return m.updateRefundFn(ctx, id, status)
	}
	return nil
}

// --- Mock RefundLedger ---

type mockLedger struct {
	byBooking map[string]*domain.Refund
	recordErr error
}

func newMockLedger() *mockLedger {
	return &mockLedger{byBooking: map[string]*domain.Refund{}}
}

func (m *mockLedger) Record(ctx context.Context, r *domain.Refund) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	m.byBooking[r.BookingID] = r
	return nil
}

func (m *mockLedger) GetByBookingID(ctx context.Context, bookingID string) (*domain.Refund, error) {
	if r, ok := m.byBooking[bookingID]; ok {
		return r, nil
	}
	return nil, domain.ErrNotFound
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	events []*domain.BookingEvent
	err    error
}

func (m *mockPublisher) PublishBookingEvent(ctx context.Context, e *domain.BookingEvent) error {
	m.events = append(m.events, e)
	return m.err
}

// --- Mock CacheService ---

type mockCache struct {
	data map[string][]byte
	sets int
}

func newMockCache() *mockCache {
	return &mockCache{data: map[string][]byte{}}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.data[key] = value
	m.sets++
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func scheduledTrip(id string, departIn time.Duration) *domain.Trip {
	return &domain.Trip{
		ID:                   id,
		DriverID:             "driver-1",
		Origin:               "Rayachoty, Andhra Pradesh",
		Destination:          "Tirupati, Andhra Pradesh",
		Pickup:               domain.GeoPoint{Lat: 14.0583, Lon: 78.7511},
		Dropoff:              domain.GeoPoint{Lat: 13.6288, Lon: 79.4192},
		DepartureTime:        now.Add(departIn),
		PricePerSeat:         500,
		TotalSeats:           4,
		AvailableSeats:       3,
		BookingDeadlineHours: 2,
		Status:               domain.TripScheduled,
	}
}
