package conflict

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// MaxAlternatives caps the number of alternative slots attached to a verdict.
const MaxAlternatives = 3

var ErrInvalidInterval = errors.New("end must be after start")
var ErrInvalidDuration = errors.New("duration must be positive")

// Kind is the closed set of conflict sources. A new source must be added here and to Valid.
type Kind string

const (
	KindAvailability Kind = "availability"
	KindBooking      Kind = "booking"
	KindException    Kind = "exception"
)

func (k Kind) Valid() bool {
	switch k {
	case KindAvailability, KindBooking, KindException:
		return true
	}
	return false
}

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type Conflict struct {
	Kind     Kind
	Severity Severity
	Reason   string
	// BookingId is set for booking conflicts.
	BookingId uuid.NullUUID
	// ExceptionId is set for exception conflicts.
	ExceptionId *int
}

type Verdict struct {
	HasConflicts bool
	Conflicts    []Conflict
	Alternatives []TimeSlot
}

type TimeSlot struct {
	Start     time.Time
	End       time.Time
	Available bool
	// Reason is the first conflict's reason when the slot is occupied.
	Reason string
}

func (s TimeSlot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}
