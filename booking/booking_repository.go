package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Querier is the part of pgxpool.Pool the repository needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads booking snapshots straight from the platform database.
type Repository struct{ db Querier }

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

const selectBooking = `
	SELECT b.id, b.field_id, COALESCE(b.sub_field_id, 0), b.user_id, COALESCE(f.owner_id, 0),
	       b.status, TO_CHAR(b.start_date, 'YYYY-MM-DD'), TO_CHAR(b.start_time, 'HH24:MI'),
	       TO_CHAR(b.end_time, 'HH24:MI'), COALESCE(b.cancel_hours, 0),
	       COALESCE(b.price, 0)::text, COALESCE(b.deposit, 0)::text,
	       COALESCE(b.reasoning, ''), COALESCE(u.name, ''), b.created_at
	FROM "field-booking".booking b
	JOIN "field-booking".field f ON f.id = b.field_id
	LEFT JOIN "field-booking".users u ON u.id = b.user_id
`

var scopeFilters = map[ScopeKind]string{
	ScopeUser:  `WHERE b.user_id = $1`,
	ScopeOwner: `WHERE f.owner_id = $1`,
	ScopeField: `WHERE b.field_id = $1`,
}

// FetchBookings returns every booking of the scope ordered by start.
func (r *Repository) FetchBookings(ctx context.Context, scope Scope) ([]Booking, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	sql := selectBooking + scopeFilters[scope.Kind] + `
		ORDER BY b.start_date, b.start_time, b.id;
	`

	rows, err := r.db.Query(ctx, sql, scope.ID)

	if err != nil {
		return nil, fmt.Errorf("failed to fetch bookings for scope %v: %w", scope, err)
	}

	defer rows.Close()

	bookings := []Booking{}

	for rows.Next() {
		booking, err := scanBooking(rows)

		if err != nil {
			return nil, fmt.Errorf("error scanning booking row: %w", err)
		}

		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookings rows: %w", err)
	}

	return bookings, nil
}

func (r *Repository) GetBookingByID(ctx context.Context, id int64) (Booking, error) {
	sql := selectBooking + `WHERE b.id = $1;`

	booking, err := scanBooking(r.db.QueryRow(ctx, sql, id))

	if errors.Is(err, pgx.ErrNoRows) {
		return Booking{}, ErrBookingNotFound
	}

	if err != nil {
		return Booking{}, fmt.Errorf("failed to fetch booking with id %v: %w", id, err)
	}

	return booking, nil
}

func scanBooking(row pgx.Row) (Booking, error) {
	var (
		booking        Booking
		price, deposit string
	)

	err := row.Scan(
		&booking.ID,
		&booking.FieldID,
		&booking.SubFieldID,
		&booking.UserID,
		&booking.OwnerID,
		&booking.Status,
		&booking.StartDate,
		&booking.StartTime,
		&booking.EndTime,
		&booking.CancelHours,
		&price,
		&deposit,
		&booking.Reasoning,
		&booking.ActorName,
		&booking.CreatedAt,
	)

	if err != nil {
		return Booking{}, err
	}

	if booking.Price, err = decimal.NewFromString(price); err != nil {
		return Booking{}, fmt.Errorf("invalid price %q: %w", price, err)
	}

	if booking.Deposit, err = decimal.NewFromString(deposit); err != nil {
		return Booking{}, fmt.Errorf("invalid deposit %q: %w", deposit, err)
	}

	return booking, nil
}
