package enrollment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/klokku/booking/internal/event_bus"
	"github.com/klokku/booking/internal/utils"
	"github.com/klokku/booking/pkg/course_schedule"
	log "github.com/sirupsen/logrus"
)

type Result struct {
	Success          bool
	EnrollmentId     uuid.UUID
	Status           Status
	WaitlistPosition *int
	Message          string
}

type Service interface {
	Enroll(ctx context.Context, scheduleId uuid.UUID, participantId int) (Result, error)
	Withdraw(ctx context.Context, enrollmentId uuid.UUID) error
	ListEnrollments(ctx context.Context, scheduleId uuid.UUID) ([]Enrollment, error)
}

type ServiceImpl struct {
	repo     Repository
	eventBus *event_bus.EventBus
	clock    utils.Clock
}

func NewService(repo Repository, eventBus *event_bus.EventBus, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{
		repo:     repo,
		eventBus: eventBus,
		clock:    clock,
	}
}

func (s *ServiceImpl) Enroll(ctx context.Context, scheduleId uuid.UUID, participantId int) (Result, error) {
	log.Debugf("Enrolling participant %d on schedule %s", participantId, scheduleId)
	if participantId <= 0 {
		return Result{Success: false, Message: "Participant id is required"}, nil
	}

	enrollment, err := s.repo.Enroll(ctx, scheduleId, participantId, s.clock.Now())
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyEnrolled):
		return Result{Success: false, Message: "Participant is already enrolled"}, nil
	case errors.Is(err, ErrCapacityMissing):
		return Result{Success: false, Message: "Course capacity not set"}, nil
	case errors.Is(err, ErrScheduleClosed):
		return Result{Success: false, Message: "Course schedule is cancelled"}, nil
	case errors.Is(err, course_schedule.ErrScheduleNotFound):
		return Result{Success: false, Message: "Course schedule not found"}, err
	default:
		log.Errorf("failed to enroll participant %d on schedule %s: %v", participantId, scheduleId, err)
		return Result{Success: false, Message: "Could not register enrollment"}, fmt.Errorf("failed to enroll: %w", err)
	}

	result := Result{
		Success:          true,
		EnrollmentId:     enrollment.Id,
		Status:           enrollment.Status,
		WaitlistPosition: enrollment.WaitlistPosition,
		Message:          "Enrolled",
	}
	if enrollment.Status == StatusWaitlisted {
		log.Infof("Schedule %s is full, participant %d waitlisted at position %d", scheduleId, participantId, *enrollment.WaitlistPosition)
		result.Message = fmt.Sprintf("Course is full, added to waitlist at position %d", *enrollment.WaitlistPosition)
	}

	s.publish(ctx, event_bus.EnrollmentRegistered{
		EnrollmentId:     enrollment.Id,
		ScheduleId:       scheduleId,
		ParticipantId:    participantId,
		Status:           string(enrollment.Status),
		WaitlistPosition: enrollment.WaitlistPosition,
	})
	return result, nil
}

func (s *ServiceImpl) Withdraw(ctx context.Context, enrollmentId uuid.UUID) error {
	log.Debugf("Withdrawing enrollment %s", enrollmentId)
	_, err := s.repo.Withdraw(ctx, enrollmentId)
	if err != nil {
		if errors.Is(err, ErrEnrollmentNotFound) {
			return err
		}
		log.Errorf("failed to withdraw enrollment %s: %v", enrollmentId, err)
		return fmt.Errorf("failed to withdraw enrollment: %w", err)
	}
	return nil
}

func (s *ServiceImpl) ListEnrollments(ctx context.Context, scheduleId uuid.UUID) ([]Enrollment, error) {
	return s.repo.ListBySchedule(ctx, scheduleId)
}

func (s *ServiceImpl) publish(ctx context.Context, data event_bus.EnrollmentRegistered) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.EnrollmentRegisteredType, data)); err != nil {
		log.Errorf("failed to publish %s: %v", event_bus.EnrollmentRegisteredType, err)
	}
}
