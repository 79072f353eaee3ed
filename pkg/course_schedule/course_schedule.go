package course_schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrScheduleNotFound = errors.New("course schedule not found")

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

type RecurrenceRule struct {
	Frequency Frequency  `json:"frequency"`
	Interval  int        `json:"interval"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

func (r RecurrenceRule) Validate() error {
	if !r.Frequency.Valid() {
		return fmt.Errorf("unknown frequency %q", r.Frequency)
	}
	if r.Interval < 1 {
		return fmt.Errorf("interval must be at least 1, got %d", r.Interval)
	}
	return nil
}

// CourseSchedule is one session of a course taught by an instructor, optionally part of a series.
type CourseSchedule struct {
	Id                uuid.UUID
	CourseId          int
	InstructorId      int
	LocationId        *int
	Title             string
	StartTime         time.Time
	EndTime           time.Time
	MaxCapacity       int
	CurrentEnrollment int
	Status            Status
	Recurrence        *RecurrenceRule
	// ParentId links a generated occurrence to the schedule its series was expanded from.
	ParentId uuid.NullUUID
}

func (s CourseSchedule) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

func (s CourseSchedule) HasCapacity() bool {
	return s.MaxCapacity > 0
}

func (s CourseSchedule) IsFull() bool {
	return s.CurrentEnrollment >= s.MaxCapacity
}
