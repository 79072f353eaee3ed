package enrollment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klokku/booking/pkg/course_schedule"
	log "github.com/sirupsen/logrus"
)

const uniqueViolation = "23505"

type Repository interface {
	// Enroll registers the participant on the schedule, or waitlists them when it is full.
	// The capacity check and the counter update happen in one transaction holding the schedule row.
	Enroll(ctx context.Context, scheduleId uuid.UUID, participantId int, enrolledAt time.Time) (Enrollment, error)
	// Withdraw cancels the enrollment and frees its seat if it held one.
	Withdraw(ctx context.Context, id uuid.UUID) (Enrollment, error)
	GetEnrollment(ctx context.Context, id uuid.UUID) (Enrollment, error)
	ListBySchedule(ctx context.Context, scheduleId uuid.UUID) ([]Enrollment, error)
}

type repositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) inTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Errorf("rollback error: %v", rbErr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const enrollmentColumns = `id, schedule_id, participant_id, status, waitlist_position, enrolled_at`

func scanEnrollment(row pgx.Row) (Enrollment, error) {
	var e Enrollment
	var status string
	err := row.Scan(&e.Id, &e.ScheduleId, &e.ParticipantId, &status, &e.WaitlistPosition, &e.EnrolledAt)
	if err != nil {
		return Enrollment{}, err
	}
	e.Status = Status(status)
	return e, nil
}

func (r *repositoryImpl) Enroll(ctx context.Context, scheduleId uuid.UUID, participantId int, enrolledAt time.Time) (Enrollment, error) {
	var enrollment Enrollment
	err := r.inTransaction(ctx, func(tx pgx.Tx) error {
		var maxCapacity, currentEnrollment int
		var status string
		err := tx.QueryRow(ctx,
			`SELECT max_capacity, current_enrollment, status FROM course_schedule WHERE id = $1 FOR UPDATE`,
			scheduleId,
		).Scan(&maxCapacity, &currentEnrollment, &status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return course_schedule.ErrScheduleNotFound
			}
			return fmt.Errorf("could not lock schedule %s: %w", scheduleId, err)
		}
		if course_schedule.Status(status) == course_schedule.StatusCancelled {
			return ErrScheduleClosed
		}
		if maxCapacity <= 0 {
			return ErrCapacityMissing
		}

		var duplicate bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM enrollment WHERE schedule_id = $1 AND participant_id = $2 AND status <> 'cancelled')`,
			scheduleId, participantId,
		).Scan(&duplicate)
		if err != nil {
			return fmt.Errorf("could not check existing enrollment: %w", err)
		}
		if duplicate {
			return ErrAlreadyEnrolled
		}

		enrollment = Enrollment{
			Id:            uuid.New(),
			ScheduleId:    scheduleId,
			ParticipantId: participantId,
			Status:        StatusEnrolled,
			EnrolledAt:    enrolledAt,
		}
		if currentEnrollment < maxCapacity {
			_, err = tx.Exec(ctx,
				`UPDATE course_schedule SET current_enrollment = current_enrollment + 1 WHERE id = $1`,
				scheduleId,
			)
			if err != nil {
				return fmt.Errorf("could not increment enrollment count: %w", err)
			}
		} else {
			var position int
			err = tx.QueryRow(ctx,
				`SELECT COALESCE(MAX(waitlist_position), 0) + 1 FROM enrollment WHERE schedule_id = $1 AND status = 'waitlisted'`,
				scheduleId,
			).Scan(&position)
			if err != nil {
				return fmt.Errorf("could not read waitlist tail: %w", err)
			}
			enrollment.Status = StatusWaitlisted
			enrollment.WaitlistPosition = &position
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO enrollment (`+enrollmentColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
			enrollment.Id,
			enrollment.ScheduleId,
			enrollment.ParticipantId,
			string(enrollment.Status),
			enrollment.WaitlistPosition,
			enrollment.EnrolledAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return ErrAlreadyEnrolled
			}
			return fmt.Errorf("could not insert enrollment: %w", err)
		}
		return nil
	})
	if err != nil {
		logWriteError(err)
		return Enrollment{}, err
	}
	return enrollment, nil
}

func (r *repositoryImpl) Withdraw(ctx context.Context, id uuid.UUID) (Enrollment, error) {
	var enrollment Enrollment
	err := r.inTransaction(ctx, func(tx pgx.Tx) error {
		current, err := scanEnrollment(tx.QueryRow(ctx,
			`SELECT `+enrollmentColumns+` FROM enrollment WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrEnrollmentNotFound
			}
			return fmt.Errorf("could not get enrollment %s: %w", id, err)
		}
		if current.Status == StatusCancelled {
			enrollment = current
			return nil
		}

		if current.Status == StatusEnrolled {
			_, err = tx.Exec(ctx,
				`UPDATE course_schedule SET current_enrollment = current_enrollment - 1 WHERE id = $1 AND current_enrollment > 0`,
				current.ScheduleId,
			)
			if err != nil {
				return fmt.Errorf("could not decrement enrollment count: %w", err)
			}
		}

		if current.Status == StatusWaitlisted && current.WaitlistPosition != nil {
			// close the gap so positions stay 1..n
			_, err = tx.Exec(ctx,
				`UPDATE enrollment SET waitlist_position = waitlist_position - 1
				WHERE schedule_id = $1 AND status = 'waitlisted' AND waitlist_position > $2`,
				current.ScheduleId, *current.WaitlistPosition,
			)
			if err != nil {
				return fmt.Errorf("could not shift waitlist: %w", err)
			}
		}

		enrollment, err = scanEnrollment(tx.QueryRow(ctx,
			`UPDATE enrollment SET status = 'cancelled', waitlist_position = NULL WHERE id = $1 RETURNING `+enrollmentColumns,
			id,
		))
		if err != nil {
			return fmt.Errorf("could not cancel enrollment: %w", err)
		}
		return nil
	})
	if err != nil {
		logWriteError(err)
		return Enrollment{}, err
	}
	return enrollment, nil
}

func (r *repositoryImpl) GetEnrollment(ctx context.Context, id uuid.UUID) (Enrollment, error) {
	e, err := scanEnrollment(r.db.QueryRow(ctx, `SELECT `+enrollmentColumns+` FROM enrollment WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Enrollment{}, ErrEnrollmentNotFound
		}
		err := fmt.Errorf("could not get enrollment %s: %w", id, err)
		log.Error(err)
		return Enrollment{}, err
	}
	return e, nil
}

func (r *repositoryImpl) ListBySchedule(ctx context.Context, scheduleId uuid.UUID) ([]Enrollment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollment WHERE schedule_id = $1 ORDER BY enrolled_at, id`,
		scheduleId,
	)
	if err != nil {
		err := fmt.Errorf("could not query enrollments: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var enrollments []Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			err := fmt.Errorf("could not scan enrollment: %w", err)
			log.Error(err)
			return nil, err
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}

// logWriteError logs store failures but not the expected domain outcomes.
func logWriteError(err error) {
	switch {
	case errors.Is(err, course_schedule.ErrScheduleNotFound),
		errors.Is(err, ErrEnrollmentNotFound),
		errors.Is(err, ErrAlreadyEnrolled),
		errors.Is(err, ErrCapacityMissing),
		errors.Is(err, ErrScheduleClosed):
		return
	}
	log.Error(err)
}
