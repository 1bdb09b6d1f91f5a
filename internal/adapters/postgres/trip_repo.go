package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/koolihub/koolihub/internal/core/domain"
	"github.com/koolihub/koolihub/internal/core/ports"
)

// TripRepo implements ports.TripRepository.
type TripRepo struct {
	db *DB
}

func NewTripRepo(db *DB) *TripRepo {
	return &TripRepo{db: db}
}

const tripColumns = `
	id, driver_id, COALESCE(vehicle_id::text, ''), origin, destination,
	pickup_lat, pickup_lon, dropoff_lat, dropoff_lon, departure_time,
	price_per_seat, toll_charges, total_seats, available_seats,
	booking_deadline_hours, status, created_at`

func scanTrip(row pgx.Row) (*domain.Trip, error) {
	var t domain.Trip
	var status string
	err := row.Scan(&t.ID, &t.DriverID, &t.VehicleID, &t.Origin, &t.Destination,
		&t.Pickup.Lat, &t.Pickup.Lon, &t.Dropoff.Lat, &t.Dropoff.Lon, &t.DepartureTime,
		&t.PricePerSeat, &t.TollCharges, &t.TotalSeats, &t.AvailableSeats,
		&t.BookingDeadlineHours, &status, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Status = domain.TripStatus(status)
	return &t, nil
}

func (r *TripRepo) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1`, id)
	t, err := scanTrip(row)
	if err != nil {
		return nil, notFound(err, "trip", id)
	}
	return t, nil
}

// ListUpcoming returns scheduled trips departing after f.DepartAfter,
// soonest first.
func (r *TripRepo) ListUpcoming(ctx context.Context, f ports.TripFilter) ([]domain.Trip, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 500
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+tripColumns+`
		FROM trips
		WHERE status = 'scheduled'
		  AND departure_time > $1
		  AND available_seats >= $2
		  AND ($3::date IS NULL OR (departure_time AT TIME ZONE 'UTC')::date = $3::date)
		ORDER BY departure_time
		LIMIT $4
	`, f.DepartAfter, max(f.Seats, 0), f.On, limit)
	if err != nil {
		return nil, fmt.Errorf("query upcoming trips: %w", err)
	}
	defer rows.Close()

	var trips []domain.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, *t)
	}
	return trips, rows.Err()
}

func (r *TripRepo) AvailableSeats(ctx context.Context, id string) (int, error) {
	var seats int
	err := r.db.Pool.QueryRow(ctx, `SELECT available_seats FROM trips WHERE id = $1`, id).Scan(&seats)
	if err != nil {
		return 0, notFound(err, "trip", id)
	}
	return seats, nil
}

// ReserveSeats takes seats only while enough remain; the WHERE clause is
// the guard against two passengers buying the last seat.
func (r *TripRepo) ReserveSeats(ctx context.Context, id string, seats int) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE trips
		SET available_seats = available_seats - $2
		WHERE id = $1 AND status = 'scheduled' AND available_seats >= $2
	`, id, seats)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSeatsUnavailable
	}
	return nil
}

func (r *TripRepo) ReleaseSeats(ctx context.Context, id string, seats int) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE trips
		SET available_seats = LEAST(total_seats, available_seats + $2)
		WHERE id = $1
	`, id, seats)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("trip %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
