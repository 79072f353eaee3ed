package enrollment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/klokku/booking/internal/event_bus"
	"github.com/klokku/booking/internal/utils"
	"github.com/klokku/booking/pkg/course_schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)

type fixture struct {
	ctx     context.Context
	repo    *RepositoryStub
	bus     *event_bus.EventBus
	service *ServiceImpl
}

func setupTestService() fixture {
	f := fixture{
		ctx:  context.Background(),
		repo: NewRepositoryStub(),
		bus:  event_bus.NewEventBus(),
	}
	f.service = NewService(f.repo, f.bus, utils.NewMockClock(now))
	return f
}

func TestServiceImpl_Enroll(t *testing.T) {
	t.Run("should waitlist once the course is full", func(t *testing.T) {
		// given
		f := setupTestService()
		scheduleId := uuid.New()
		f.repo.AddSchedule(scheduleId, 2, course_schedule.StatusScheduled)
		var events []event_bus.EnrollmentRegistered
		event_bus.SubscribeTyped(f.bus, event_bus.EnrollmentRegisteredType, func(e event_bus.EventT[event_bus.EnrollmentRegistered]) error {
			events = append(events, e.Data)
			return nil
		})

		// when
		results := make([]Result, 0, 4)
		for participant := 1; participant <= 4; participant++ {
			result, err := f.service.Enroll(f.ctx, scheduleId, participant)
			require.NoError(t, err)
			results = append(results, result)
		}

		// then
		for _, r := range results {
			assert.True(t, r.Success)
		}
		assert.Equal(t, StatusEnrolled, results[0].Status)
		assert.Equal(t, StatusEnrolled, results[1].Status)
		assert.Equal(t, StatusWaitlisted, results[2].Status)
		assert.Equal(t, 1, *results[2].WaitlistPosition)
		assert.Equal(t, StatusWaitlisted, results[3].Status)
		assert.Equal(t, 2, *results[3].WaitlistPosition)
		assert.Contains(t, results[3].Message, "position 2")
		assert.Equal(t, 2, f.repo.CurrentEnrollment(scheduleId))

		require.Len(t, events, 4)
		assert.Equal(t, "waitlisted", events[3].Status)
		assert.Equal(t, 4, events[3].ParticipantId)

		stored, err := f.repo.GetEnrollment(f.ctx, results[0].EnrollmentId)
		require.NoError(t, err)
		assert.Equal(t, now, stored.EnrolledAt)
	})

	t.Run("should refuse invalid enrollments without failing", func(t *testing.T) {
		f := setupTestService()
		open := uuid.New()
		noCapacity := uuid.New()
		cancelled := uuid.New()
		f.repo.AddSchedule(open, 3, course_schedule.StatusScheduled)
		f.repo.AddSchedule(noCapacity, 0, course_schedule.StatusScheduled)
		f.repo.AddSchedule(cancelled, 3, course_schedule.StatusCancelled)
		_, err := f.service.Enroll(f.ctx, open, 1)
		require.NoError(t, err)

		tests := []struct {
			name        string
			scheduleId  uuid.UUID
			participant int
			message     string
		}{
			{"duplicate", open, 1, "Participant is already enrolled"},
			{"missing capacity", noCapacity, 1, "Course capacity not set"},
			{"cancelled schedule", cancelled, 1, "Course schedule is cancelled"},
			{"missing participant", open, 0, "Participant id is required"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				result, err := f.service.Enroll(f.ctx, tt.scheduleId, tt.participant)

				require.NoError(t, err)
				assert.False(t, result.Success)
				assert.Equal(t, tt.message, result.Message)
			})
		}
		assert.Equal(t, 1, f.repo.CurrentEnrollment(open))
	})

	t.Run("should fail for an unknown schedule", func(t *testing.T) {
		f := setupTestService()

		result, err := f.service.Enroll(f.ctx, uuid.New(), 1)

		assert.ErrorIs(t, err, course_schedule.ErrScheduleNotFound)
		assert.False(t, result.Success)
	})

	t.Run("should wrap store failures", func(t *testing.T) {
		f := setupTestService()
		scheduleId := uuid.New()
		f.repo.AddSchedule(scheduleId, 3, course_schedule.StatusScheduled)
		storeErr := errors.New("connection refused")
		f.repo.SetError(storeErr)

		result, err := f.service.Enroll(f.ctx, scheduleId, 1)

		assert.ErrorIs(t, err, storeErr)
		assert.False(t, result.Success)
		assert.Equal(t, "Could not register enrollment", result.Message)
	})
}

func TestServiceImpl_Withdraw(t *testing.T) {
	t.Run("should free the seat", func(t *testing.T) {
		// given
		f := setupTestService()
		scheduleId := uuid.New()
		f.repo.AddSchedule(scheduleId, 1, course_schedule.StatusScheduled)
		seat, err := f.service.Enroll(f.ctx, scheduleId, 1)
		require.NoError(t, err)

		// when
		err = f.service.Withdraw(f.ctx, seat.EnrollmentId)

		// then
		require.NoError(t, err)
		assert.Equal(t, 0, f.repo.CurrentEnrollment(scheduleId))
		next, err := f.service.Enroll(f.ctx, scheduleId, 2)
		require.NoError(t, err)
		assert.Equal(t, StatusEnrolled, next.Status)
	})

	t.Run("should keep waitlist positions distinct after a withdrawal", func(t *testing.T) {
		// given
		f := setupTestService()
		scheduleId := uuid.New()
		f.repo.AddSchedule(scheduleId, 1, course_schedule.StatusScheduled)
		results := make([]Result, 0, 3)
		for participant := 1; participant <= 3; participant++ {
			result, err := f.service.Enroll(f.ctx, scheduleId, participant)
			require.NoError(t, err)
			results = append(results, result)
		}
		require.Equal(t, StatusWaitlisted, results[1].Status)

		// when
		err := f.service.Withdraw(f.ctx, results[1].EnrollmentId)
		require.NoError(t, err)
		late, err := f.service.Enroll(f.ctx, scheduleId, 4)
		require.NoError(t, err)

		// then
		third, err := f.repo.GetEnrollment(f.ctx, results[2].EnrollmentId)
		require.NoError(t, err)
		assert.Equal(t, 1, *third.WaitlistPosition)
		assert.Equal(t, StatusWaitlisted, late.Status)
		assert.Equal(t, 2, *late.WaitlistPosition)
		assert.Contains(t, late.Message, "position 2")
	})

	t.Run("should return not found for unknown enrollments", func(t *testing.T) {
		f := setupTestService()

		err := f.service.Withdraw(f.ctx, uuid.New())

		assert.ErrorIs(t, err, ErrEnrollmentNotFound)
	})
}
