package enrollment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klokku/booking/pkg/course_schedule"
)

type stubSchedule struct {
	maxCapacity       int
	currentEnrollment int
	status            course_schedule.Status
}

// RepositoryStub keeps schedules and enrollments in memory. Every operation holds
// the mutex for its whole duration, standing in for the schedule row lock.
type RepositoryStub struct {
	mu          sync.Mutex
	schedules   map[uuid.UUID]*stubSchedule
	enrollments map[uuid.UUID]Enrollment
	err         error
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{
		schedules:   make(map[uuid.UUID]*stubSchedule),
		enrollments: make(map[uuid.UUID]Enrollment),
	}
}

// AddSchedule seeds a schedule the stub can enroll into.
func (r *RepositoryStub) AddSchedule(id uuid.UUID, maxCapacity int, status course_schedule.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedules[id] = &stubSchedule{maxCapacity: maxCapacity, status: status}
}

// CurrentEnrollment returns the seat counter of a seeded schedule.
func (r *RepositoryStub) CurrentEnrollment(id uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.schedules[id]; ok {
		return s.currentEnrollment
	}
	return 0
}

func (r *RepositoryStub) Enroll(ctx context.Context, scheduleId uuid.UUID, participantId int, enrolledAt time.Time) (Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return Enrollment{}, r.err
	}
	schedule, ok := r.schedules[scheduleId]
	if !ok {
		return Enrollment{}, course_schedule.ErrScheduleNotFound
	}
	if schedule.status == course_schedule.StatusCancelled {
		return Enrollment{}, ErrScheduleClosed
	}
	if schedule.maxCapacity <= 0 {
		return Enrollment{}, ErrCapacityMissing
	}

	tail := 0
	for _, e := range r.enrollments {
		if e.ScheduleId != scheduleId {
			continue
		}
		if e.ParticipantId == participantId && e.IsActive() {
			return Enrollment{}, ErrAlreadyEnrolled
		}
		if e.Status == StatusWaitlisted && e.WaitlistPosition != nil && *e.WaitlistPosition > tail {
			tail = *e.WaitlistPosition
		}
	}

	enrollment := Enrollment{
		Id:            uuid.New(),
		ScheduleId:    scheduleId,
		ParticipantId: participantId,
		Status:        StatusEnrolled,
		EnrolledAt:    enrolledAt,
	}
	if schedule.currentEnrollment < schedule.maxCapacity {
		schedule.currentEnrollment++
	} else {
		position := tail + 1
		enrollment.Status = StatusWaitlisted
		enrollment.WaitlistPosition = &position
	}
	r.enrollments[enrollment.Id] = enrollment
	return enrollment, nil
}

func (r *RepositoryStub) Withdraw(ctx context.Context, id uuid.UUID) (Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return Enrollment{}, r.err
	}
	e, ok := r.enrollments[id]
	if !ok {
		return Enrollment{}, ErrEnrollmentNotFound
	}
	if e.Status == StatusCancelled {
		return e, nil
	}
	if e.Status == StatusEnrolled {
		if s, ok := r.schedules[e.ScheduleId]; ok && s.currentEnrollment > 0 {
			s.currentEnrollment--
		}
	}
	if e.Status == StatusWaitlisted && e.WaitlistPosition != nil {
		for otherId, other := range r.enrollments {
			if other.ScheduleId != e.ScheduleId || other.Status != StatusWaitlisted || other.WaitlistPosition == nil {
				continue
			}
			if *other.WaitlistPosition > *e.WaitlistPosition {
				position := *other.WaitlistPosition - 1
				other.WaitlistPosition = &position
				r.enrollments[otherId] = other
			}
		}
	}
	e.Status = StatusCancelled
	e.WaitlistPosition = nil
	r.enrollments[id] = e
	return e, nil
}

func (r *RepositoryStub) GetEnrollment(ctx context.Context, id uuid.UUID) (Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return Enrollment{}, r.err
	}
	e, ok := r.enrollments[id]
	if !ok {
		return Enrollment{}, ErrEnrollmentNotFound
	}
	return e, nil
}

func (r *RepositoryStub) ListBySchedule(ctx context.Context, scheduleId uuid.UUID) ([]Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var result []Enrollment
	for _, e := range r.enrollments {
		if e.ScheduleId == scheduleId {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].EnrolledAt.Before(result[j].EnrolledAt)
	})
	return result, nil
}

// SetError makes every following call fail with err.
func (r *RepositoryStub) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *RepositoryStub) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedules = make(map[uuid.UUID]*stubSchedule)
	r.enrollments = make(map[uuid.UUID]Enrollment)
	r.err = nil
}
