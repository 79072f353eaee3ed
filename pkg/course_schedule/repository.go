package course_schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klokku/booking/internal/database"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	CreateSchedule(ctx context.Context, schedule CourseSchedule) (CourseSchedule, error)
	GetSchedule(ctx context.Context, id uuid.UUID) (CourseSchedule, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	UpdateTimes(ctx context.Context, id uuid.UUID, start, end time.Time) error
	ListSeries(ctx context.Context, parentId uuid.UUID) ([]CourseSchedule, error)
}

type repositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) Repository {
	return &repositoryImpl{db: db}
}

// getQueryer joins the transaction carried by ctx, if any.
func (r *repositoryImpl) getQueryer(ctx context.Context) database.Queryer {
	return database.QueryerFrom(ctx, r.db)
}

const scheduleColumns = `id, course_id, instructor_id, location_id, title, start_at, end_at, max_capacity,
	current_enrollment, status, recurrence_rule, parent_id`

func scanSchedule(row pgx.Row) (CourseSchedule, error) {
	var s CourseSchedule
	var status string
	var rule []byte
	err := row.Scan(
		&s.Id,
		&s.CourseId,
		&s.InstructorId,
		&s.LocationId,
		&s.Title,
		&s.StartTime,
		&s.EndTime,
		&s.MaxCapacity,
		&s.CurrentEnrollment,
		&status,
		&rule,
		&s.ParentId,
	)
	if err != nil {
		return CourseSchedule{}, err
	}
	s.Status = Status(status)
	if rule != nil {
		var r RecurrenceRule
		if err := json.Unmarshal(rule, &r); err != nil {
			return CourseSchedule{}, fmt.Errorf("could not decode recurrence rule: %w", err)
		}
		s.Recurrence = &r
	}
	return s, nil
}

func (r *repositoryImpl) CreateSchedule(ctx context.Context, schedule CourseSchedule) (CourseSchedule, error) {
	query := `INSERT INTO course_schedule (
                             id,
                             course_id,
                             instructor_id,
                             location_id,
                             title,
                             start_at,
                             end_at,
                             max_capacity,
                             current_enrollment,
                             status,
                             recurrence_rule,
                             parent_id
              ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
              RETURNING ` + scheduleColumns

	if schedule.Id == uuid.Nil {
		schedule.Id = uuid.New()
	}
	var rule []byte
	if schedule.Recurrence != nil {
		encoded, err := json.Marshal(schedule.Recurrence)
		if err != nil {
			return CourseSchedule{}, fmt.Errorf("could not encode recurrence rule: %w", err)
		}
		rule = encoded
	}

	created, err := scanSchedule(r.getQueryer(ctx).QueryRow(ctx, query,
		schedule.Id,
		schedule.CourseId,
		schedule.InstructorId,
		schedule.LocationId,
		schedule.Title,
		schedule.StartTime,
		schedule.EndTime,
		schedule.MaxCapacity,
		schedule.CurrentEnrollment,
		string(schedule.Status),
		rule,
		schedule.ParentId,
	))
	if err != nil {
		err := fmt.Errorf("could not create course schedule: %w", err)
		log.Error(err)
		return CourseSchedule{}, err
	}
	return created, nil
}

func (r *repositoryImpl) GetSchedule(ctx context.Context, id uuid.UUID) (CourseSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM course_schedule WHERE id = $1`
	s, err := scanSchedule(r.getQueryer(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CourseSchedule{}, ErrScheduleNotFound
		}
		err := fmt.Errorf("could not get course schedule %s: %w", id, err)
		log.Error(err)
		return CourseSchedule{}, err
	}
	return s, nil
}

func (r *repositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := r.getQueryer(ctx).Exec(ctx, `UPDATE course_schedule SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		err := fmt.Errorf("could not update course schedule status: %w", err)
		log.Error(err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

func (r *repositoryImpl) UpdateTimes(ctx context.Context, id uuid.UUID, start, end time.Time) error {
	tag, err := r.getQueryer(ctx).Exec(ctx, `UPDATE course_schedule SET start_at = $1, end_at = $2 WHERE id = $3`, start, end, id)
	if err != nil {
		err := fmt.Errorf("could not update course schedule times: %w", err)
		log.Error(err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

func (r *repositoryImpl) ListSeries(ctx context.Context, parentId uuid.UUID) ([]CourseSchedule, error) {
	query := `SELECT ` + scheduleColumns + `
			  FROM course_schedule
			  WHERE id = $1 OR parent_id = $1
			  ORDER BY start_at`
	rows, err := r.getQueryer(ctx).Query(ctx, query, parentId)
	if err != nil {
		err := fmt.Errorf("could not query course schedule series: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var schedules []CourseSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			err := fmt.Errorf("could not scan course schedule: %w", err)
			log.Error(err)
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}
