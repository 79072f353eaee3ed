package enrollment

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrAlreadyEnrolled    = errors.New("participant already enrolled")
	ErrCapacityMissing    = errors.New("schedule has no capacity")
	ErrScheduleClosed     = errors.New("schedule does not accept enrollments")
)

type Status string

const (
	StatusEnrolled   Status = "enrolled"
	StatusWaitlisted Status = "waitlisted"
	StatusCancelled  Status = "cancelled"
)

type Enrollment struct {
	Id            uuid.UUID
	ScheduleId    uuid.UUID
	ParticipantId int
	Status        Status
	// WaitlistPosition is 1-based and only set while waitlisted.
	WaitlistPosition *int
	EnrolledAt       time.Time
}

func (e Enrollment) IsActive() bool {
	return e.Status != StatusCancelled
}
