package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klokku/booking/internal/database"
	"github.com/klokku/booking/internal/utils"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var ErrBookingNotFound = errors.New("booking not found")

// ErrOverlappingBooking is returned when the store itself refuses an overlapping live booking.
var ErrOverlappingBooking = errors.New("booking overlaps an existing booking")

const exclusionViolation = "23P01"

type Repository interface {
	// WithTransaction runs fn with a context carrying one transaction. Repositories sharing the
	// database join it when called with that context; a nested call reuses the outer transaction.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	GetBooking(ctx context.Context, id uuid.UUID) (Booking, error)
	// ListActiveBookings returns non-cancelled bookings of the resource on the date, ordered by start,
	// leaving out excludeId when it is set.
	ListActiveBookings(ctx context.Context, resourceId int, date time.Time, excludeId uuid.NullUUID) ([]Booking, error)
	StoreBooking(ctx context.Context, booking Booking) (Booking, error)
	UpdateTime(ctx context.Context, id uuid.UUID, date time.Time, start, end utils.TimeOfDay, updatedAt time.Time) (Booking, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, updatedAt time.Time) (Booking, error)
}

type repositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) Repository {
	return &repositoryImpl{db: db}
}

// getQueryer returns the appropriate database interface for queries (either tx or db)
func (r *repositoryImpl) getQueryer(ctx context.Context) database.Queryer {
	return database.QueryerFrom(ctx, r.db)
}

func (r *repositoryImpl) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := database.TxFrom(ctx); ok {
		return fn(ctx)
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		// The Rollback will be a no-op if the transaction was already committed
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Errorf("rollback error: %v", rbErr)
		}
	}()

	if err := fn(database.WithTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

const bookingColumns = `id, resource_id, booking_date, start_time, end_time, category, status, title,
	schedule_id, billable_hours::text, created_at, updated_at`

func scanBooking(row pgx.Row) (Booking, error) {
	var b Booking
	var start, end pgtype.Time
	var category, status string
	var billableHours *string
	err := row.Scan(
		&b.Id,
		&b.ResourceId,
		&b.Date,
		&start,
		&end,
		&category,
		&status,
		&b.Title,
		&b.ScheduleId,
		&billableHours,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return Booking{}, err
	}
	b.StartTime = database.FromPgTime(start)
	b.EndTime = database.FromPgTime(end)
	b.Category = Category(category)
	b.Status = Status(status)
	if billableHours != nil {
		hours, err := decimal.NewFromString(*billableHours)
		if err != nil {
			return Booking{}, fmt.Errorf("could not parse billable hours %q: %w", *billableHours, err)
		}
		b.BillableHours = decimal.NewNullDecimal(hours)
	}
	return b, nil
}

func (r *repositoryImpl) GetBooking(ctx context.Context, id uuid.UUID) (Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM booking WHERE id = $1`
	b, err := scanBooking(r.getQueryer(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Booking{}, ErrBookingNotFound
		}
		err := fmt.Errorf("could not get booking %s: %w", id, err)
		log.Error(err)
		return Booking{}, err
	}
	return b, nil
}

func (r *repositoryImpl) ListActiveBookings(ctx context.Context, resourceId int, date time.Time, excludeId uuid.NullUUID) ([]Booking, error) {
	query := `SELECT ` + bookingColumns + `
			  FROM booking
			  WHERE resource_id = $1
			    AND booking_date = $2
			    AND status <> 'cancelled'
			    AND ($3::uuid IS NULL OR id <> $3)
			  ORDER BY start_time`

	rows, err := r.getQueryer(ctx).Query(ctx, query, resourceId, date, excludeId)
	if err != nil {
		err := fmt.Errorf("could not query bookings: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var bookings []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			err := fmt.Errorf("could not scan booking: %w", err)
			log.Error(err)
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r *repositoryImpl) StoreBooking(ctx context.Context, booking Booking) (Booking, error) {
	query := `INSERT INTO booking (
                     id,
                     resource_id,
                     booking_date,
                     start_time,
                     end_time,
                     category,
                     status,
                     title,
                     schedule_id,
                     billable_hours,
                     created_at,
                     updated_at
              ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::numeric, $11, $11)
              RETURNING ` + bookingColumns

	if booking.Id == uuid.Nil {
		booking.Id = uuid.New()
	}
	var billableHours *string
	if booking.BillableHours.Valid {
		hours := booking.BillableHours.Decimal.StringFixed(2)
		billableHours = &hours
	}

	stored, err := scanBooking(r.getQueryer(ctx).QueryRow(ctx, query,
		booking.Id,
		booking.ResourceId,
		booking.Date,
		database.ToPgTime(booking.StartTime),
		database.ToPgTime(booking.EndTime),
		string(booking.Category),
		string(booking.Status),
		booking.Title,
		booking.ScheduleId,
		billableHours,
		booking.CreatedAt,
	))
	if err != nil {
		return Booking{}, mapWriteError("could not store booking", err)
	}
	return stored, nil
}

func (r *repositoryImpl) UpdateTime(ctx context.Context, id uuid.UUID, date time.Time, start, end utils.TimeOfDay, updatedAt time.Time) (Booking, error) {
	query := `UPDATE booking
			  SET booking_date = $1, start_time = $2, end_time = $3, updated_at = $4
			  WHERE id = $5
			  RETURNING ` + bookingColumns
	updated, err := scanBooking(r.getQueryer(ctx).QueryRow(ctx, query,
		date,
		database.ToPgTime(start),
		database.ToPgTime(end),
		updatedAt,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Booking{}, ErrBookingNotFound
		}
		return Booking{}, mapWriteError("could not update booking time", err)
	}
	return updated, nil
}

func (r *repositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, updatedAt time.Time) (Booking, error) {
	query := `UPDATE booking SET status = $1, updated_at = $2 WHERE id = $3 RETURNING ` + bookingColumns
	updated, err := scanBooking(r.getQueryer(ctx).QueryRow(ctx, query, string(status), updatedAt, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Booking{}, ErrBookingNotFound
		}
		return Booking{}, mapWriteError("could not update booking status", err)
	}
	return updated, nil
}

func mapWriteError(msg string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == exclusionViolation {
		log.Debugf("%s: %v", msg, pgErr)
		return ErrOverlappingBooking
	}
	err = fmt.Errorf("%s: %w", msg, err)
	log.Error(err)
	return err
}
