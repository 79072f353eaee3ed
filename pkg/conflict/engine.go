package conflict

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/klokku/booking/internal/utils"
	"github.com/klokku/booking/pkg/availability"
	"github.com/klokku/booking/pkg/booking"
	log "github.com/sirupsen/logrus"
)

type AvailabilityReader interface {
	GetWindows(ctx context.Context, resourceId int, day time.Weekday, kind availability.WindowKind) ([]availability.Window, error)
	GetExceptions(ctx context.Context, resourceId int, date time.Time) ([]availability.Exception, error)
}

type BookingReader interface {
	ListActiveBookings(ctx context.Context, resourceId int, date time.Time, excludeId uuid.NullUUID) ([]booking.Booking, error)
}

type Settings struct {
	Location      *time.Location
	BusinessStart utils.TimeOfDay
	BusinessEnd   utils.TimeOfDay
	Step          time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		Location:      time.UTC,
		BusinessStart: utils.NewTimeOfDay(8, 0, 0),
		BusinessEnd:   utils.NewTimeOfDay(18, 0, 0),
		Step:          30 * time.Minute,
	}
}

// Engine evaluates proposed intervals against a resource's availability windows,
// active bookings and exceptions. It never writes.
type Engine struct {
	availability AvailabilityReader
	bookings     BookingReader
	settings     Settings
}

func NewEngine(availability AvailabilityReader, bookings BookingReader, settings Settings) *Engine {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if settings.Step < time.Minute {
		settings.Step = DefaultSettings().Step
	}
	return &Engine{
		availability: availability,
		bookings:     bookings,
		settings:     settings,
	}
}

func (e *Engine) Location() *time.Location {
	return e.settings.Location
}

// CheckConflicts returns the verdict for [start,end) on the resource, with alternatives
// attached when anything conflicts.
func (e *Engine) CheckConflicts(ctx context.Context, resourceId int, start, end time.Time, excludeBookingId uuid.NullUUID) (Verdict, error) {
	log.Debugf("Checking conflicts for resource %d: %s - %s", resourceId, start, end)
	conflicts, err := e.evaluate(ctx, resourceId, start, end, excludeBookingId)
	if err != nil {
		return Verdict{}, err
	}
	if len(conflicts) == 0 {
		return Verdict{HasConflicts: false, Conflicts: []Conflict{}}, nil
	}

	alternatives, err := e.GenerateAlternatives(ctx, resourceId, start, end, excludeBookingId)
	if err != nil {
		return Verdict{}, err
	}
	return Verdict{
		HasConflicts: true,
		Conflicts:    conflicts,
		Alternatives: alternatives,
	}, nil
}

// evaluate runs all three checks without short-circuiting and concatenates their results.
func (e *Engine) evaluate(ctx context.Context, resourceId int, start, end time.Time, excludeBookingId uuid.NullUUID) ([]Conflict, error) {
	if !end.After(start) {
		return nil, ErrInvalidInterval
	}
	loc := e.settings.Location
	date := utils.DateOf(start, loc)
	reqStart, reqEnd := utils.Span(start, end, loc)

	conflicts := make([]Conflict, 0)

	availabilityConflicts, err := e.checkAvailability(ctx, resourceId, start.In(loc).Weekday(), reqStart, reqEnd)
	if err != nil {
		return nil, err
	}
	conflicts = append(conflicts, availabilityConflicts...)

	bookingConflicts, err := e.checkBookings(ctx, resourceId, date, reqStart, reqEnd, excludeBookingId)
	if err != nil {
		return nil, err
	}
	conflicts = append(conflicts, bookingConflicts...)

	exceptionConflicts, err := e.checkExceptions(ctx, resourceId, date, reqStart, reqEnd)
	if err != nil {
		return nil, err
	}
	conflicts = append(conflicts, exceptionConflicts...)

	return conflicts, nil
}

func (e *Engine) checkAvailability(ctx context.Context, resourceId int, day time.Weekday, start, end utils.TimeOfDay) ([]Conflict, error) {
	windows, err := e.availability.GetWindows(ctx, resourceId, day, availability.WindowAvailable)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return []Conflict{{
			Kind:     KindAvailability,
			Severity: SeverityHigh,
			Reason:   fmt.Sprintf("Not available on %s", day),
		}}, nil
	}
	for _, window := range windows {
		if window.Contains(start, end) {
			return nil, nil
		}
	}
	return []Conflict{{
		Kind:     KindAvailability,
		Severity: SeverityMedium,
		Reason:   fmt.Sprintf("Outside available hours (%s)", describeWindows(windows)),
	}}, nil
}

func describeWindows(windows []availability.Window) string {
	desc := ""
	for i, w := range windows {
		if i > 0 {
			desc += ", "
		}
		desc += w.StartTime.String() + "-" + w.EndTime.String()
	}
	return desc
}

func (e *Engine) checkBookings(ctx context.Context, resourceId int, date time.Time, start, end utils.TimeOfDay, excludeBookingId uuid.NullUUID) ([]Conflict, error) {
	bookings, err := e.bookings.ListActiveBookings(ctx, resourceId, date, excludeBookingId)
	if err != nil {
		return nil, err
	}
	var conflicts []Conflict
	for _, b := range bookings {
		if excludeBookingId.Valid && b.Id == excludeBookingId.UUID {
			continue
		}
		if !b.IsActive() || !b.Overlaps(start, end) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			Kind:      KindBooking,
			Severity:  SeverityHigh,
			Reason:    fmt.Sprintf("Overlaps with %q (%s-%s)", b.Title, b.StartTime, b.EndTime),
			BookingId: uuid.NullUUID{UUID: b.Id, Valid: true},
		})
	}
	return conflicts, nil
}

func (e *Engine) checkExceptions(ctx context.Context, resourceId int, date time.Time, start, end utils.TimeOfDay) ([]Conflict, error) {
	exceptions, err := e.availability.GetExceptions(ctx, resourceId, date)
	if err != nil {
		return nil, err
	}
	var conflicts []Conflict
	for _, ex := range exceptions {
		if !ex.Blocks(start, end) {
			continue
		}
		id := ex.Id
		conflicts = append(conflicts, Conflict{
			Kind:        KindException,
			Severity:    SeverityHigh,
			Reason:      ex.Describe(),
			ExceptionId: &id,
		})
	}
	return conflicts, nil
}
