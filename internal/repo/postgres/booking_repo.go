package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trailborn/tours-api/internal/domain"
	"github.com/trailborn/tours-api/internal/http/request"
)

type BookingRepository interface {
	Create(ctx context.Context, b *domain.Booking) (*domain.Booking, error)
	FindByID(ctx context.Context, id int64) (*domain.Booking, error)
	Find(ctx context.Context, opts request.ListOptions) ([]domain.Booking, error)
	UpdateByID(ctx context.Context, id int64, patch *domain.BookingPatch) (*domain.Booking, error)
	DeleteByID(ctx context.Context, id int64) error

	ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error)
	FindBySessionID(ctx context.Context, sessionID string) (*domain.Booking, error)
}

type bookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &bookingRepository{pool: pool}
}

const bookingCols = `id, tour_id, user_id, price, paid, session_id, created_at, updated_at`

var bookingFilterCols = map[string]column{
	"tour":       {"tour_id", kindInt},
	"user":       {"user_id", kindInt},
	"price":      {"price", kindFloat},
	"paid":       {"paid", kindBool},
	"created_at": {"created_at", kindTime},
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(
		&b.ID, &b.TourID, &b.UserID, &b.Price, &b.Paid, &b.SessionID,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepository) Create(ctx context.Context, b *domain.Booking) (*domain.Booking, error) {
	const q = `
		INSERT INTO bookings (tour_id, user_id, price, paid, session_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + bookingCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	created, err := scanBooking(r.pool.QueryRow(ctx, q,
		b.TourID, b.UserID, b.Price, b.Paid, b.SessionID,
	))
	if err != nil {
		return nil, translateErr(err)
	}
	return created, nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id int64) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanBooking(r.pool.QueryRow(ctx, q, id))
}

func (r *bookingRepository) FindBySessionID(ctx context.Context, sessionID string) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE session_id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanBooking(r.pool.QueryRow(ctx, q, sessionID))
}

func (r *bookingRepository) Find(ctx context.Context, opts request.ListOptions) ([]domain.Booking, error) {
	q, args, err := buildListQuery(
		`SELECT `+bookingCols+` FROM bookings`,
		nil, nil, opts, bookingFilterCols, "created_at DESC",
	)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return r.queryBookings(ctx, q, args...)
}

func (r *bookingRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE user_id = $1 ORDER BY created_at DESC`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return r.queryBookings(ctx, q, userID)
}

func (r *bookingRepository) queryBookings(ctx context.Context, q string, args ...any) ([]domain.Booking, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *bookingRepository) UpdateByID(ctx context.Context, id int64, patch *domain.BookingPatch) (*domain.Booking, error) {
	const q = `
		UPDATE bookings
		SET
			price = COALESCE($2, price),
			paid = COALESCE($3, paid),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + bookingCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q, id, patch.Price, patch.Paid))
	if err != nil {
		return nil, translateErr(err)
	}
	return b, nil
}

func (r *bookingRepository) DeleteByID(ctx context.Context, id int64) error {
	const q = `DELETE FROM bookings WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
