package availability

import (
	"fmt"
	"time"

	"github.com/klokku/booking/internal/utils"
)

type WindowKind string

const (
	WindowAvailable   WindowKind = "available"
	WindowUnavailable WindowKind = "unavailable"
)

func (k WindowKind) Valid() bool {
	return k == WindowAvailable || k == WindowUnavailable
}

// Window is a recurring weekly block of a resource's time.
type Window struct {
	Id         int
	ResourceId int
	DayOfWeek  time.Weekday
	StartTime  utils.TimeOfDay
	EndTime    utils.TimeOfDay
	Kind       WindowKind
}

// Contains reports whether [start,end) lies entirely inside the window.
func (w Window) Contains(start, end utils.TimeOfDay) bool {
	return w.StartTime <= start && w.EndTime >= end
}

func (w Window) Validate() error {
	if w.DayOfWeek < time.Sunday || w.DayOfWeek > time.Saturday {
		return fmt.Errorf("invalid day of week: %d", w.DayOfWeek)
	}
	if w.StartTime >= w.EndTime {
		return fmt.Errorf("window start %s must be before end %s", w.StartTime, w.EndTime)
	}
	if !w.Kind.Valid() {
		return fmt.Errorf("invalid window kind: %q", w.Kind)
	}
	return nil
}

type ExceptionKind string

const (
	ExceptionOutOfOffice ExceptionKind = "out_of_office"
	ExceptionHoliday     ExceptionKind = "holiday"
	ExceptionTraining    ExceptionKind = "training"
	ExceptionOther       ExceptionKind = "other"
)

// Exception overrides the regular windows of a resource for a single date.
// Without StartTime/EndTime it blocks the whole day.
type Exception struct {
	Id         int
	ResourceId int
	Date       time.Time
	Kind       ExceptionKind
	StartTime  *utils.TimeOfDay
	EndTime    *utils.TimeOfDay
	Reason     string
}

func (e Exception) IsWholeDay() bool {
	return e.StartTime == nil || e.EndTime == nil
}

// Blocks reports whether the exception collides with [start,end) on its date.
func (e Exception) Blocks(start, end utils.TimeOfDay) bool {
	if e.IsWholeDay() {
		return true
	}
	return utils.Overlaps(*e.StartTime, *e.EndTime, start, end)
}

// Describe returns the reason text, falling back to a label derived from the kind.
func (e Exception) Describe() string {
	if e.Reason != "" {
		return e.Reason
	}
	switch e.Kind {
	case ExceptionOutOfOffice:
		return "Out of office"
	case ExceptionHoliday:
		return "Holiday"
	case ExceptionTraining:
		return "In training"
	default:
		return "Unavailable due to an exception"
	}
}

func (e Exception) Validate() error {
	if e.Date.IsZero() {
		return fmt.Errorf("exception date is required")
	}
	if (e.StartTime == nil) != (e.EndTime == nil) {
		return fmt.Errorf("exception needs both start and end time, or neither")
	}
	if !e.IsWholeDay() && *e.StartTime >= *e.EndTime {
		return fmt.Errorf("exception start %s must be before end %s", *e.StartTime, *e.EndTime)
	}
	return nil
}
