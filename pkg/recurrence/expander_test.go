package recurrence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/klokku/booking/internal/lease"
	"github.com/klokku/booking/internal/utils"
	"github.com/klokku/booking/pkg/availability"
	"github.com/klokku/booking/pkg/booking"
	"github.com/klokku/booking/pkg/conflict"
	"github.com/klokku/booking/pkg/course_schedule"
	"github.com/klokku/booking/pkg/scheduling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const instructorId = 42

// 2024-01-15 is a Monday
var monday = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d, h, minute int) time.Time {
	return time.Date(y, m, d, h, minute, 0, 0, time.UTC)
}

func endDate(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

type fixture struct {
	ctx       context.Context
	bookings  *booking.RepositoryStub
	schedules *course_schedule.RepositoryStub
	service   *scheduling.ServiceImpl
}

func setupService(t *testing.T) fixture {
	t.Helper()
	f := fixture{
		ctx:       context.Background(),
		bookings:  booking.NewRepositoryStub(),
		schedules: course_schedule.NewRepositoryStub(),
	}
	availabilityRepo := availability.NewRepositoryStub()
	for day := time.Sunday; day <= time.Saturday; day++ {
		_, err := availabilityRepo.StoreWindow(f.ctx, availability.Window{
			ResourceId: instructorId,
			DayOfWeek:  day,
			StartTime:  utils.NewTimeOfDay(8, 0, 0),
			EndTime:    utils.NewTimeOfDay(18, 0, 0),
			Kind:       availability.WindowAvailable,
		})
		require.NoError(t, err)
	}
	engine := conflict.NewEngine(availabilityRepo, f.bookings, conflict.DefaultSettings())
	f.service = scheduling.NewService(engine, f.bookings, f.schedules, lease.NewLocal(), nil, utils.NewMockClock(monday), time.UTC)
	return f
}

func (f fixture) base(t *testing.T, start, end time.Time) course_schedule.CourseSchedule {
	t.Helper()
	result, err := f.service.ScheduleCourse(f.ctx, scheduling.CourseRequest{
		CourseId:     7,
		InstructorId: instructorId,
		Title:        "Go basics",
		Start:        start,
		End:          end,
		MaxCapacity:  10,
	})
	require.NoError(t, err)
	require.True(t, result.Success, result.Message)
	return result.Schedule
}

// recordingScheduler accepts every request and fails once calls reaches failAt.
type recordingScheduler struct {
	mu       sync.Mutex
	requests []scheduling.CourseRequest
	failAt   int
}

func (s *recordingScheduler) ScheduleCourse(ctx context.Context, request scheduling.CourseRequest) (scheduling.CourseResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, request)
	if s.failAt > 0 && len(s.requests) >= s.failAt {
		return scheduling.CourseResult{Success: false, Message: "Could not create schedule"}, errors.New("connection reset")
	}
	return scheduling.CourseResult{
		Success:  true,
		Schedule: course_schedule.CourseSchedule{Id: uuid.New(), StartTime: request.Start, EndTime: request.End, ParentId: request.ParentId},
	}, nil
}

func baseSchedule(start time.Time) course_schedule.CourseSchedule {
	return course_schedule.CourseSchedule{
		Id:           uuid.New(),
		CourseId:     7,
		InstructorId: instructorId,
		Title:        "Go basics",
		StartTime:    start,
		EndTime:      start.Add(time.Hour),
		MaxCapacity:  10,
	}
}

func TestExpander_Expand(t *testing.T) {
	t.Run("should skip the colliding week and create the rest", func(t *testing.T) {
		// given
		f := setupService(t)
		base := f.base(t, date(2024, 1, 15, 9, 0), date(2024, 1, 15, 10, 0))
		blocker, err := f.service.Schedule(f.ctx, scheduling.Request{
			ResourceId: instructorId,
			Start:      date(2024, 2, 5, 9, 30),
			End:        date(2024, 2, 5, 10, 30),
			Title:      "Board meeting",
		})
		require.NoError(t, err)
		require.True(t, blocker.Success)
		expander := NewExpander(f.service, time.UTC, 6)

		// when
		outcomes, err := expander.Expand(f.ctx, base, course_schedule.RecurrenceRule{
			Frequency: course_schedule.FrequencyWeekly,
			Interval:  1,
			EndDate:   endDate(2024, 2, 26),
		})

		// then
		require.NoError(t, err)
		require.Len(t, outcomes, 6)
		created := Created(outcomes)
		assert.Len(t, created, 5)

		skipped := outcomes[2]
		assert.Equal(t, OutcomeSkipped, skipped.Status)
		assert.Equal(t, date(2024, 2, 5, 9, 0), skipped.Start)
		assert.Contains(t, skipped.Reason, "Board meeting")

		for _, s := range created {
			assert.NotEqual(t, 5, s.StartTime.Day(), "no occurrence on the colliding date")
			assert.Equal(t, base.Id, s.ParentId.UUID)
			assert.Equal(t, time.Monday, s.StartTime.Weekday())
			assert.Equal(t, time.Hour, s.Duration())
		}
		assert.Equal(t, date(2024, 1, 22, 9, 0), created[0].StartTime)
		assert.Equal(t, date(2024, 2, 26, 9, 0), created[4].StartTime)

		// base plus five created occurrences
		instruction := 0
		for _, b := range f.bookings.All() {
			if b.Category == booking.CategoryCourseInstruction {
				instruction++
			}
		}
		assert.Equal(t, 6, instruction)
	})

	t.Run("should not repeat the base date", func(t *testing.T) {
		scheduler := &recordingScheduler{}
		expander := NewExpander(scheduler, time.UTC, 6)
		base := baseSchedule(date(2024, 1, 15, 9, 0))

		outcomes, err := expander.Expand(context.Background(), base, course_schedule.RecurrenceRule{
			Frequency: course_schedule.FrequencyDaily,
			Interval:  2,
			EndDate:   endDate(2024, 1, 21),
		})

		require.NoError(t, err)
		require.Len(t, outcomes, 3)
		assert.Equal(t, date(2024, 1, 17, 9, 0), outcomes[0].Start)
		assert.Equal(t, date(2024, 1, 19, 9, 0), outcomes[1].Start)
		assert.Equal(t, date(2024, 1, 21, 9, 0), outcomes[2].Start)
		for _, r := range scheduler.requests {
			assert.False(t, r.Start.Equal(base.StartTime))
			assert.Nil(t, r.Recurrence)
			assert.Equal(t, uuid.NullUUID{UUID: base.Id, Valid: true}, r.ParentId)
		}
	})

	t.Run("should reject an invalid rule", func(t *testing.T) {
		expander := NewExpander(&recordingScheduler{}, time.UTC, 6)
		base := baseSchedule(date(2024, 1, 15, 9, 0))

		_, err := expander.Expand(context.Background(), base, course_schedule.RecurrenceRule{Frequency: "yearly", Interval: 1})
		assert.ErrorIs(t, err, ErrInvalidRule)

		_, err = expander.Expand(context.Background(), base, course_schedule.RecurrenceRule{Frequency: course_schedule.FrequencyWeekly})
		assert.ErrorIs(t, err, ErrInvalidRule)
	})

	t.Run("should produce nothing when the end date precedes the base", func(t *testing.T) {
		scheduler := &recordingScheduler{}
		expander := NewExpander(scheduler, time.UTC, 6)

		outcomes, err := expander.Expand(context.Background(), baseSchedule(date(2024, 1, 15, 9, 0)), course_schedule.RecurrenceRule{
			Frequency: course_schedule.FrequencyWeekly,
			Interval:  1,
			EndDate:   endDate(2024, 1, 1),
		})

		require.NoError(t, err)
		assert.Empty(t, outcomes)
		assert.Empty(t, scheduler.requests)
	})

	t.Run("should stop on a store failure and keep earlier outcomes", func(t *testing.T) {
		scheduler := &recordingScheduler{failAt: 3}
		expander := NewExpander(scheduler, time.UTC, 6)

		outcomes, err := expander.Expand(context.Background(), baseSchedule(date(2024, 1, 15, 9, 0)), course_schedule.RecurrenceRule{
			Frequency: course_schedule.FrequencyWeekly,
			Interval:  1,
			EndDate:   endDate(2024, 3, 31),
		})

		require.Error(t, err)
		assert.Len(t, outcomes, 2)
		assert.Len(t, scheduler.requests, 3)
		assert.Len(t, Created(outcomes), 2)
	})

	t.Run("should skip months without the base day", func(t *testing.T) {
		scheduler := &recordingScheduler{}
		expander := NewExpander(scheduler, time.UTC, 6)

		outcomes, err := expander.Expand(context.Background(), baseSchedule(date(2024, 1, 31, 9, 0)), course_schedule.RecurrenceRule{
			Frequency: course_schedule.FrequencyMonthly,
			Interval:  1,
			EndDate:   endDate(2024, 7, 31),
		})

		require.NoError(t, err)
		require.Len(t, outcomes, 3)
		assert.Equal(t, date(2024, 3, 31, 9, 0), outcomes[0].Start)
		assert.Equal(t, date(2024, 5, 31, 9, 0), outcomes[1].Start)
		assert.Equal(t, date(2024, 7, 31, 9, 0), outcomes[2].Start)
	})

	t.Run("should fall back to the horizon without an end date", func(t *testing.T) {
		scheduler := &recordingScheduler{}
		expander := NewExpander(scheduler, time.UTC, 0)

		outcomes, err := expander.Expand(context.Background(), baseSchedule(date(2024, 1, 15, 9, 0)), course_schedule.RecurrenceRule{
			Frequency: course_schedule.FrequencyWeekly,
			Interval:  1,
		})

		require.NoError(t, err)
		require.Len(t, outcomes, 26)
		assert.Equal(t, date(2024, 7, 15, 9, 0), outcomes[len(outcomes)-1].Start)
	})

	t.Run("should keep local wall time across a DST change", func(t *testing.T) {
		warsaw, err := time.LoadLocation("Europe/Warsaw")
		require.NoError(t, err)
		scheduler := &recordingScheduler{}
		expander := NewExpander(scheduler, warsaw, 6)

		outcomes, err := expander.Expand(context.Background(), baseSchedule(time.Date(2024, 3, 25, 9, 0, 0, 0, warsaw)), course_schedule.RecurrenceRule{
			Frequency: course_schedule.FrequencyWeekly,
			Interval:  1,
			EndDate:   endDate(2024, 4, 1),
		})

		require.NoError(t, err)
		require.Len(t, outcomes, 1)
		assert.Equal(t, 9, outcomes[0].Start.In(warsaw).Hour())
		assert.Equal(t, 10, outcomes[0].End.In(warsaw).Hour())
	})

	t.Run("should keep the wall-clock end when the base spans a DST change", func(t *testing.T) {
		warsaw, err := time.LoadLocation("Europe/Warsaw")
		require.NoError(t, err)
		scheduler := &recordingScheduler{}
		expander := NewExpander(scheduler, warsaw, 6)
		base := baseSchedule(time.Date(2024, 3, 31, 1, 0, 0, 0, warsaw))
		base.EndTime = time.Date(2024, 3, 31, 4, 0, 0, 0, warsaw)

		outcomes, err := expander.Expand(context.Background(), base, course_schedule.RecurrenceRule{
			Frequency: course_schedule.FrequencyWeekly,
			Interval:  1,
			EndDate:   endDate(2024, 4, 7),
		})

		require.NoError(t, err)
		require.Len(t, outcomes, 1)
		assert.True(t, time.Date(2024, 4, 7, 1, 0, 0, 0, warsaw).Equal(outcomes[0].Start))
		assert.True(t, time.Date(2024, 4, 7, 4, 0, 0, 0, warsaw).Equal(outcomes[0].End))
	})
}

func TestCreated(t *testing.T) {
	first := course_schedule.CourseSchedule{Id: uuid.New()}
	second := course_schedule.CourseSchedule{Id: uuid.New()}
	outcomes := []Outcome{
		{Status: OutcomeCreated, Schedule: first},
		{Status: OutcomeSkipped, Reason: "busy"},
		{Status: OutcomeCreated, Schedule: second},
	}

	assert.Equal(t, []course_schedule.CourseSchedule{first, second}, Created(outcomes))
	assert.Empty(t, Created(nil))
}
