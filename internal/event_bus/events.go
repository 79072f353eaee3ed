package event_bus

import (
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	BookingCreatedType       EventType = "booking.created"
	BookingRescheduledType   EventType = "booking.rescheduled"
	BookingCancelledType     EventType = "booking.cancelled"
	EnrollmentRegisteredType EventType = "enrollment.registered"
)

type BookingCreated struct {
	BookingId  uuid.UUID
	ResourceId int
	ScheduleId uuid.NullUUID
	Category   string
	Title      string
	StartTime  time.Time
	EndTime    time.Time
}

type BookingRescheduled struct {
	BookingId    uuid.UUID
	ResourceId   int
	PreviousFrom time.Time
	PreviousTo   time.Time
	StartTime    time.Time
	EndTime      time.Time
}

type BookingCancelled struct {
	BookingId  uuid.UUID
	ResourceId int
	ScheduleId uuid.NullUUID
}

type EnrollmentRegistered struct {
	EnrollmentId     uuid.UUID
	ScheduleId       uuid.UUID
	ParticipantId    int
	Status           string
	WaitlistPosition *int
}

// RegisterAuditLog logs every booking and enrollment event.
func RegisterAuditLog(eb *EventBus) {
	SubscribeTyped(eb, BookingCreatedType, func(e EventT[BookingCreated]) error {
		log.WithFields(log.Fields{
			"event":      e.Type,
			"bookingId":  e.Data.BookingId,
			"resourceId": e.Data.ResourceId,
			"start":      e.Data.StartTime,
			"end":        e.Data.EndTime,
		}).Info("booking created")
		return nil
	})
	SubscribeTyped(eb, BookingRescheduledType, func(e EventT[BookingRescheduled]) error {
		log.WithFields(log.Fields{
			"event":      e.Type,
			"bookingId":  e.Data.BookingId,
			"resourceId": e.Data.ResourceId,
			"from":       e.Data.PreviousFrom,
			"start":      e.Data.StartTime,
			"end":        e.Data.EndTime,
		}).Info("booking rescheduled")
		return nil
	})
	SubscribeTyped(eb, BookingCancelledType, func(e EventT[BookingCancelled]) error {
		log.WithFields(log.Fields{
			"event":      e.Type,
			"bookingId":  e.Data.BookingId,
			"resourceId": e.Data.ResourceId,
		}).Info("booking cancelled")
		return nil
	})
	SubscribeTyped(eb, EnrollmentRegisteredType, func(e EventT[EnrollmentRegistered]) error {
		fields := log.Fields{
			"event":         e.Type,
			"enrollmentId":  e.Data.EnrollmentId,
			"scheduleId":    e.Data.ScheduleId,
			"participantId": e.Data.ParticipantId,
			"status":        e.Data.Status,
		}
		if e.Data.WaitlistPosition != nil {
			fields["waitlistPosition"] = *e.Data.WaitlistPosition
		}
		log.WithFields(fields).Info("enrollment registered")
		return nil
	})
}
