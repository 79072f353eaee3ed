package conflict

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/klokku/booking/internal/utils"
	"github.com/klokku/booking/pkg/availability"
)

// GenerateAlternatives scans the business window of the request's day for free intervals
// of the same duration, returning at most MaxAlternatives of them.
func (e *Engine) GenerateAlternatives(ctx context.Context, resourceId int, start, end time.Time, excludeBookingId uuid.NullUUID) ([]TimeSlot, error) {
	if !end.After(start) {
		return nil, ErrInvalidInterval
	}
	loc := e.settings.Location
	reqStart, reqEnd := utils.Span(start, end, loc)
	duration := (reqEnd - reqStart).Duration()
	day := utils.StartOfDay(start, loc)

	alternatives := make([]TimeSlot, 0, MaxAlternatives)
	for t := e.settings.BusinessStart; t.Add(duration) <= e.settings.BusinessEnd; t = t.Add(e.settings.Step) {
		slotStart := t.On(day, loc)
		slotEnd := t.Add(duration).On(day, loc)
		conflicts, err := e.evaluate(ctx, resourceId, slotStart, slotEnd, excludeBookingId)
		if err != nil {
			return nil, err
		}
		if len(conflicts) > 0 {
			continue
		}
		alternatives = append(alternatives, TimeSlot{Start: slotStart, End: slotEnd, Available: true})
		if len(alternatives) == MaxAlternatives {
			break
		}
	}
	return alternatives, nil
}

// ListFreeSlots walks the declared available windows of the date in fixed steps and
// marks every slot that fits inside a window as available or occupied.
func (e *Engine) ListFreeSlots(ctx context.Context, resourceId int, date time.Time, durationMinutes int) ([]TimeSlot, error) {
	if durationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}
	loc := e.settings.Location
	y, m, d := date.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)
	duration := time.Duration(durationMinutes) * time.Minute

	windows, err := e.availability.GetWindows(ctx, resourceId, day.Weekday(), availability.WindowAvailable)
	if err != nil {
		return nil, err
	}

	slots := make([]TimeSlot, 0)
	for _, window := range windows {
		for t := window.StartTime; t.Add(duration) <= window.EndTime; t = t.Add(e.settings.Step) {
			slotStart := t.On(day, loc)
			slotEnd := t.Add(duration).On(day, loc)
			conflicts, err := e.evaluate(ctx, resourceId, slotStart, slotEnd, uuid.NullUUID{})
			if err != nil {
				return nil, err
			}
			slot := TimeSlot{Start: slotStart, End: slotEnd, Available: len(conflicts) == 0}
			if !slot.Available {
				slot.Reason = conflicts[0].Reason
			}
			slots = append(slots, slot)
		}
	}
	return slots, nil
}
