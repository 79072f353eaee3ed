package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/klokku/booking/internal/event_bus"
	"github.com/klokku/booking/internal/lease"
	"github.com/klokku/booking/internal/utils"
	"github.com/klokku/booking/pkg/booking"
	"github.com/klokku/booking/pkg/conflict"
	"github.com/klokku/booking/pkg/course_schedule"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type ConflictChecker interface {
	CheckConflicts(ctx context.Context, resourceId int, start, end time.Time, excludeBookingId uuid.NullUUID) (conflict.Verdict, error)
}

type Service interface {
	Schedule(ctx context.Context, request Request) (Result, error)
	Reschedule(ctx context.Context, bookingId uuid.UUID, start, end time.Time) (Result, error)
	Cancel(ctx context.Context, bookingId uuid.UUID) error
	FindAvailableResources(ctx context.Context, candidateIds []int, start, end time.Time) ([]ResourceAvailability, error)
	ScheduleCourse(ctx context.Context, request CourseRequest) (CourseResult, error)
}

type ServiceImpl struct {
	checker   ConflictChecker
	bookings  booking.Repository
	schedules course_schedule.Repository
	locker    lease.Locker
	eventBus  *event_bus.EventBus
	clock     utils.Clock
	loc       *time.Location
}

func NewService(
	checker ConflictChecker,
	bookings booking.Repository,
	schedules course_schedule.Repository,
	locker lease.Locker,
	eventBus *event_bus.EventBus,
	clock utils.Clock,
	loc *time.Location,
) *ServiceImpl {
	return &ServiceImpl{
		checker:   checker,
		bookings:  bookings,
		schedules: schedules,
		locker:    locker,
		eventBus:  eventBus,
		clock:     clock,
		loc:       loc,
	}
}

func (s *ServiceImpl) Schedule(ctx context.Context, request Request) (Result, error) {
	log.Debugf("Scheduling resource %d: %s - %s", request.ResourceId, request.Start, request.End)
	if msg := s.validateRequest(request); msg != "" {
		return Result{Success: false, Message: msg}, nil
	}

	release, err := s.locker.Acquire(ctx, lease.ResourceKey(request.ResourceId))
	if err != nil {
		return Result{Success: false, Message: "Resource is busy, try again"}, err
	}
	defer release()

	return s.book(ctx, request)
}

// book runs the conflict check and persists the booking. The caller holds the resource lease.
func (s *ServiceImpl) book(ctx context.Context, request Request) (Result, error) {
	verdict, err := s.checker.CheckConflicts(ctx, request.ResourceId, request.Start, request.End, uuid.NullUUID{})
	if err != nil {
		log.Errorf("failed to check conflicts for resource %d: %v", request.ResourceId, err)
		return Result{Success: false, Message: "Could not check conflicts"}, fmt.Errorf("failed to check conflicts: %w", err)
	}
	if verdict.HasConflicts {
		return Result{
			Success: false,
			Verdict: &verdict,
			Message: fmt.Sprintf("Requested time has %d conflict(s)", len(verdict.Conflicts)),
		}, nil
	}

	return s.persist(ctx, request)
}

// persist stores a booking for an interval already found conflict-free.
func (s *ServiceImpl) persist(ctx context.Context, request Request) (Result, error) {
	now := s.clock.Now()
	stored, err := s.bookings.StoreBooking(ctx, s.newBooking(request, now))
	if err != nil {
		if errors.Is(err, booking.ErrOverlappingBooking) {
			return Result{Success: false, Message: "Requested time was taken by a concurrent booking"}, nil
		}
		log.Errorf("failed to store booking for resource %d: %v", request.ResourceId, err)
		return Result{Success: false, Message: "Could not store booking"}, fmt.Errorf("failed to store booking: %w", err)
	}

	s.publish(ctx, event_bus.BookingCreatedType, event_bus.BookingCreated{
		BookingId:  stored.Id,
		ResourceId: stored.ResourceId,
		ScheduleId: stored.ScheduleId,
		Category:   string(stored.Category),
		Title:      stored.Title,
		StartTime:  request.Start,
		EndTime:    request.End,
	})
	return Result{Success: true, BookingId: stored.Id, Message: "Booking created"}, nil
}

func (s *ServiceImpl) newBooking(request Request, now time.Time) booking.Booking {
	category := request.Category
	if category == "" {
		category = booking.CategoryOther
		if request.ScheduleId.Valid {
			category = booking.CategoryCourseInstruction
		}
	}
	billableHours := request.BillableHours
	if !billableHours.Valid && category == booking.CategoryCourseInstruction {
		minutes := decimal.NewFromInt(int64(request.End.Sub(request.Start) / time.Minute))
		billableHours = decimal.NewNullDecimal(minutes.Div(decimal.NewFromInt(60)).Round(2))
	}
	start, end := s.split(request.Start, request.End)
	return booking.Booking{
		ResourceId:    request.ResourceId,
		Date:          utils.DateOf(request.Start, s.loc),
		StartTime:     start,
		EndTime:       end,
		Category:      category,
		Status:        booking.StatusScheduled,
		Title:         request.Title,
		ScheduleId:    request.ScheduleId,
		BillableHours: billableHours,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// split returns the time-of-day bounds of the interval on the start's calendar day.
func (s *ServiceImpl) split(start, end time.Time) (utils.TimeOfDay, utils.TimeOfDay) {
	return utils.Span(start, end, s.loc)
}

func (s *ServiceImpl) validateInterval(start, end time.Time) string {
	if start.IsZero() || end.IsZero() {
		return "Start and end are required"
	}
	if !end.After(start) {
		return "End must be after start"
	}
	if _, endTime := s.split(start, end); endTime > utils.EndOfDay {
		return "A booking must end on the day it starts"
	}
	return ""
}

func (s *ServiceImpl) validateRequest(request Request) string {
	if request.ResourceId <= 0 {
		return "Resource id is required"
	}
	if request.Category != "" && !request.Category.Valid() {
		return fmt.Sprintf("Unknown category %q", request.Category)
	}
	if request.BillableHours.Valid && request.BillableHours.Decimal.IsNegative() {
		return "Billable hours must not be negative"
	}
	return s.validateInterval(request.Start, request.End)
}

func (s *ServiceImpl) Reschedule(ctx context.Context, bookingId uuid.UUID, start, end time.Time) (Result, error) {
	log.Debugf("Rescheduling booking %s: %s - %s", bookingId, start, end)
	if msg := s.validateInterval(start, end); msg != "" {
		return Result{Success: false, BookingId: bookingId, Message: msg}, nil
	}

	existing, err := s.bookings.GetBooking(ctx, bookingId)
	if err != nil {
		return Result{Success: false, BookingId: bookingId, Message: "Could not load booking"}, err
	}
	if !existing.IsActive() {
		return Result{Success: false, BookingId: bookingId, Message: "A cancelled booking cannot be rescheduled"}, nil
	}

	release, err := s.locker.Acquire(ctx, lease.ResourceKey(existing.ResourceId))
	if err != nil {
		return Result{Success: false, BookingId: bookingId, Message: "Resource is busy, try again"}, err
	}
	defer release()

	// the booking may have been cancelled or moved while we waited for the lease
	existing, err = s.bookings.GetBooking(ctx, bookingId)
	if err != nil {
		return Result{Success: false, BookingId: bookingId, Message: "Could not load booking"}, err
	}
	if !existing.IsActive() {
		return Result{Success: false, BookingId: bookingId, Message: "A cancelled booking cannot be rescheduled"}, nil
	}

	exclude := uuid.NullUUID{UUID: bookingId, Valid: true}
	verdict, err := s.checker.CheckConflicts(ctx, existing.ResourceId, start, end, exclude)
	if err != nil {
		log.Errorf("failed to check conflicts for booking %s: %v", bookingId, err)
		return Result{Success: false, BookingId: bookingId, Message: "Could not check conflicts"}, fmt.Errorf("failed to check conflicts: %w", err)
	}
	if verdict.HasConflicts {
		return Result{
			Success:   false,
			BookingId: bookingId,
			Verdict:   &verdict,
			Message:   fmt.Sprintf("Requested time has %d conflict(s)", len(verdict.Conflicts)),
		}, nil
	}

	startTime, endTime := s.split(start, end)
	err = s.bookings.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.bookings.UpdateTime(ctx, bookingId, utils.DateOf(start, s.loc), startTime, endTime, s.clock.Now()); err != nil {
			return err
		}
		if existing.ScheduleId.Valid {
			if err := s.schedules.UpdateTimes(ctx, existing.ScheduleId.UUID, start, end); err != nil {
				return fmt.Errorf("failed to move schedule: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, booking.ErrOverlappingBooking) {
			return Result{Success: false, BookingId: bookingId, Message: "Requested time was taken by a concurrent booking"}, nil
		}
		log.Errorf("failed to reschedule booking %s: %v", bookingId, err)
		return Result{Success: false, BookingId: bookingId, Message: "Could not update booking"}, fmt.Errorf("failed to update booking: %w", err)
	}

	s.publish(ctx, event_bus.BookingRescheduledType, event_bus.BookingRescheduled{
		BookingId:    bookingId,
		ResourceId:   existing.ResourceId,
		PreviousFrom: existing.StartsAt(s.loc),
		PreviousTo:   existing.EndsAt(s.loc),
		StartTime:    start,
		EndTime:      end,
	})
	return Result{Success: true, BookingId: bookingId, Message: "Booking rescheduled"}, nil
}

func (s *ServiceImpl) Cancel(ctx context.Context, bookingId uuid.UUID) error {
	log.Debugf("Cancelling booking %s", bookingId)
	existing, err := s.bookings.GetBooking(ctx, bookingId)
	if err != nil {
		return err
	}
	if !existing.IsActive() {
		return nil
	}
	if _, err := s.bookings.UpdateStatus(ctx, bookingId, booking.StatusCancelled, s.clock.Now()); err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}
	s.publish(ctx, event_bus.BookingCancelledType, event_bus.BookingCancelled{
		BookingId:  bookingId,
		ResourceId: existing.ResourceId,
		ScheduleId: existing.ScheduleId,
	})
	return nil
}

func (s *ServiceImpl) FindAvailableResources(ctx context.Context, candidateIds []int, start, end time.Time) ([]ResourceAvailability, error) {
	result := make([]ResourceAvailability, 0, len(candidateIds))
	for _, resourceId := range candidateIds {
		verdict, err := s.checker.CheckConflicts(ctx, resourceId, start, end, uuid.NullUUID{})
		if err != nil {
			return nil, fmt.Errorf("failed to check resource %d: %w", resourceId, err)
		}
		result = append(result, ResourceAvailability{
			ResourceId: resourceId,
			Available:  !verdict.HasConflicts,
			Verdict:    verdict,
		})
	}
	return result, nil
}

func (s *ServiceImpl) ScheduleCourse(ctx context.Context, request CourseRequest) (CourseResult, error) {
	log.Debugf("Scheduling course %d with instructor %d: %s - %s", request.CourseId, request.InstructorId, request.Start, request.End)
	if msg := s.validateCourseRequest(request); msg != "" {
		return CourseResult{Success: false, Message: msg}, nil
	}

	release, err := s.locker.Acquire(ctx, lease.ResourceKey(request.InstructorId))
	if err != nil {
		return CourseResult{Success: false, Message: "Instructor is busy, try again"}, err
	}
	defer release()

	verdict, err := s.checker.CheckConflicts(ctx, request.InstructorId, request.Start, request.End, uuid.NullUUID{})
	if err != nil {
		log.Errorf("failed to check conflicts for instructor %d: %v", request.InstructorId, err)
		return CourseResult{Success: false, Message: "Could not check conflicts"}, fmt.Errorf("failed to check conflicts: %w", err)
	}
	if verdict.HasConflicts {
		return CourseResult{
			Success: false,
			Verdict: &verdict,
			Message: fmt.Sprintf("Requested time has %d conflict(s)", len(verdict.Conflicts)),
		}, nil
	}

	schedule, err := s.schedules.CreateSchedule(ctx, course_schedule.CourseSchedule{
		CourseId:          request.CourseId,
		InstructorId:      request.InstructorId,
		LocationId:        request.LocationId,
		Title:             request.Title,
		StartTime:         request.Start,
		EndTime:           request.End,
		MaxCapacity:       request.MaxCapacity,
		CurrentEnrollment: 0,
		Status:            course_schedule.StatusScheduled,
		Recurrence:        request.Recurrence,
		ParentId:          request.ParentId,
	})
	if err != nil {
		log.Errorf("failed to create schedule for course %d: %v", request.CourseId, err)
		return CourseResult{Success: false, Message: "Could not create schedule"}, fmt.Errorf("failed to create schedule: %w", err)
	}

	result, err := s.persist(ctx, Request{
		ResourceId: request.InstructorId,
		Start:      request.Start,
		End:        request.End,
		Category:   booking.CategoryCourseInstruction,
		Title:      request.Title,
		ScheduleId: uuid.NullUUID{UUID: schedule.Id, Valid: true},
	})
	if err != nil || !result.Success {
		if cancelErr := s.schedules.UpdateStatus(ctx, schedule.Id, course_schedule.StatusCancelled); cancelErr != nil {
			log.Errorf("failed to cancel schedule %s after failed booking: %v", schedule.Id, cancelErr)
		}
		return CourseResult{Success: false, Verdict: result.Verdict, Message: result.Message}, err
	}

	return CourseResult{
		Success:   true,
		Schedule:  schedule,
		BookingId: result.BookingId,
		Message:   "Course scheduled",
	}, nil
}

func (s *ServiceImpl) validateCourseRequest(request CourseRequest) string {
	if request.CourseId <= 0 {
		return "Course id is required"
	}
	if request.InstructorId <= 0 {
		return "Instructor id is required"
	}
	if request.MaxCapacity < 0 {
		return "Capacity must not be negative"
	}
	if request.Recurrence != nil {
		if err := request.Recurrence.Validate(); err != nil {
			return "Invalid recurrence rule: " + err.Error()
		}
	}
	return s.validateInterval(request.Start, request.End)
}

func (s *ServiceImpl) publish(ctx context.Context, eventType event_bus.EventType, data any) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(event_bus.NewEvent(ctx, eventType, data)); err != nil {
		log.Errorf("failed to publish %s: %v", eventType, err)
	}
}
