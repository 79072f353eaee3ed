package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klokku/booking/internal/database"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	// GetWindows returns the windows of the given kind for one weekday, ordered by start time.
	GetWindows(ctx context.Context, resourceId int, day time.Weekday, kind WindowKind) ([]Window, error)
	// GetExceptions returns every exception of the resource on the given date.
	GetExceptions(ctx context.Context, resourceId int, date time.Time) ([]Exception, error)
	StoreWindow(ctx context.Context, window Window) (Window, error)
	StoreException(ctx context.Context, exception Exception) (Exception, error)
}

type repositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) GetWindows(ctx context.Context, resourceId int, day time.Weekday, kind WindowKind) ([]Window, error) {
	query := `SELECT id, resource_id, day_of_week, start_time, end_time, kind
			  FROM availability_window
			  WHERE resource_id = $1 AND day_of_week = $2 AND kind = $3
			  ORDER BY start_time`

	rows, err := r.db.Query(ctx, query, resourceId, int(day), string(kind))
	if err != nil {
		err := fmt.Errorf("could not query availability windows: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var windows []Window
	for rows.Next() {
		var w Window
		var dayOfWeek int16
		var start, end pgtype.Time
		var windowKind string
		if err := rows.Scan(&w.Id, &w.ResourceId, &dayOfWeek, &start, &end, &windowKind); err != nil {
			err := fmt.Errorf("could not scan availability window: %w", err)
			log.Error(err)
			return nil, err
		}
		w.DayOfWeek = time.Weekday(dayOfWeek)
		w.StartTime = database.FromPgTime(start)
		w.EndTime = database.FromPgTime(end)
		w.Kind = WindowKind(windowKind)
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

func (r *repositoryImpl) GetExceptions(ctx context.Context, resourceId int, date time.Time) ([]Exception, error) {
	query := `SELECT id, resource_id, exception_date, kind, start_time, end_time, reason
			  FROM availability_exception
			  WHERE resource_id = $1 AND exception_date = $2
			  ORDER BY start_time NULLS FIRST`

	rows, err := r.db.Query(ctx, query, resourceId, date)
	if err != nil {
		err := fmt.Errorf("could not query availability exceptions: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var exceptions []Exception
	for rows.Next() {
		var e Exception
		var kind string
		var start, end pgtype.Time
		if err := rows.Scan(&e.Id, &e.ResourceId, &e.Date, &kind, &start, &end, &e.Reason); err != nil {
			err := fmt.Errorf("could not scan availability exception: %w", err)
			log.Error(err)
			return nil, err
		}
		e.Kind = ExceptionKind(kind)
		if start.Valid && end.Valid {
			startTime, endTime := database.FromPgTime(start), database.FromPgTime(end)
			e.StartTime = &startTime
			e.EndTime = &endTime
		}
		exceptions = append(exceptions, e)
	}
	return exceptions, rows.Err()
}

func (r *repositoryImpl) StoreWindow(ctx context.Context, window Window) (Window, error) {
	if err := window.Validate(); err != nil {
		return Window{}, err
	}
	query := `INSERT INTO availability_window (resource_id, day_of_week, start_time, end_time, kind)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING id`
	err := r.db.QueryRow(ctx, query,
		window.ResourceId,
		int(window.DayOfWeek),
		database.ToPgTime(window.StartTime),
		database.ToPgTime(window.EndTime),
		string(window.Kind),
	).Scan(&window.Id)
	if err != nil {
		err := fmt.Errorf("could not store availability window: %w", err)
		log.Error(err)
		return Window{}, err
	}
	return window, nil
}

func (r *repositoryImpl) StoreException(ctx context.Context, exception Exception) (Exception, error) {
	if err := exception.Validate(); err != nil {
		return Exception{}, err
	}
	start, end := pgtype.Time{}, pgtype.Time{}
	if !exception.IsWholeDay() {
		start, end = database.ToPgTime(*exception.StartTime), database.ToPgTime(*exception.EndTime)
	}
	query := `INSERT INTO availability_exception (resource_id, exception_date, kind, start_time, end_time, reason)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id`
	err := r.db.QueryRow(ctx, query,
		exception.ResourceId,
		exception.Date,
		string(exception.Kind),
		start,
		end,
		exception.Reason,
	).Scan(&exception.Id)
	if err != nil {
		err := fmt.Errorf("could not store availability exception: %w", err)
		log.Error(err)
		return Exception{}, err
	}
	return exception, nil
}
