package scheduling

import (
	"time"

	"github.com/google/uuid"
	"github.com/klokku/booking/pkg/booking"
	"github.com/klokku/booking/pkg/conflict"
	"github.com/klokku/booking/pkg/course_schedule"
	"github.com/shopspring/decimal"
)

type Request struct {
	ResourceId int
	Start      time.Time
	End        time.Time
	// Category defaults to course instruction when ScheduleId is set, other otherwise.
	Category   booking.Category
	Title      string
	ScheduleId uuid.NullUUID
	// BillableHours defaults to the booked duration for course instruction.
	BillableHours decimal.NullDecimal
}

type Result struct {
	Success   bool
	BookingId uuid.UUID
	Verdict   *conflict.Verdict
	Message   string
}

type ResourceAvailability struct {
	ResourceId int
	Available  bool
	Verdict    conflict.Verdict
}

type CourseRequest struct {
	CourseId     int
	InstructorId int
	LocationId   *int
	Title        string
	Start        time.Time
	End          time.Time
	MaxCapacity  int
	Recurrence   *course_schedule.RecurrenceRule
	ParentId     uuid.NullUUID
}

type CourseResult struct {
	Success   bool
	Schedule  course_schedule.CourseSchedule
	BookingId uuid.UUID
	Verdict   *conflict.Verdict
	Message   string
}
