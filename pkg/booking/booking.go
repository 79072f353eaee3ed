package booking

import (
	"time"

	"github.com/google/uuid"
	"github.com/klokku/booking/internal/utils"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type Category string

const (
	CategoryCourseInstruction Category = "course_instruction"
	CategoryMeeting           Category = "meeting"
	CategoryConsultation      Category = "consultation"
	CategoryOther             Category = "other"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryCourseInstruction, CategoryMeeting, CategoryConsultation, CategoryOther:
		return true
	}
	return false
}

// Booking is a concrete occupation of a resource on one calendar date.
// Bookings are never deleted; cancellation only flips Status.
type Booking struct {
	Id         uuid.UUID
	ResourceId int
	// Date is the calendar date, midnight UTC.
	Date          time.Time
	StartTime     utils.TimeOfDay
	EndTime       utils.TimeOfDay
	Category      Category
	Status        Status
	Title         string
	ScheduleId    uuid.NullUUID
	BillableHours decimal.NullDecimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (b Booking) IsActive() bool {
	return b.Status != StatusCancelled
}

// Overlaps reports whether the booking's [start,end) intersects the given interval on its date.
func (b Booking) Overlaps(start, end utils.TimeOfDay) bool {
	return utils.Overlaps(b.StartTime, b.EndTime, start, end)
}

func (b Booking) StartsAt(loc *time.Location) time.Time {
	return b.StartTime.On(civilDate(b.Date, loc), loc)
}

func (b Booking) EndsAt(loc *time.Location) time.Time {
	return b.EndTime.On(civilDate(b.Date, loc), loc)
}

func (b Booking) Duration() time.Duration {
	return (b.EndTime - b.StartTime).Duration()
}

func civilDate(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
