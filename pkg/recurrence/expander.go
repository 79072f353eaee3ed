package recurrence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/klokku/booking/internal/utils"
	"github.com/klokku/booking/pkg/course_schedule"
	"github.com/klokku/booking/pkg/scheduling"
	log "github.com/sirupsen/logrus"
	"github.com/teambition/rrule-go"
)

// MaxOccurrences bounds a single expansion regardless of the rule's end.
const MaxOccurrences = 500

var ErrInvalidRule = errors.New("invalid recurrence rule")

type OutcomeStatus string

const (
	OutcomeCreated OutcomeStatus = "created"
	OutcomeSkipped OutcomeStatus = "skipped"
)

// Outcome reports what happened to one occurrence of a series.
type Outcome struct {
	Status OutcomeStatus
	// Schedule is set for created occurrences.
	Schedule course_schedule.CourseSchedule
	// Reason explains a skipped occurrence.
	Reason string
	Start  time.Time
	End    time.Time
}

type CourseScheduler interface {
	ScheduleCourse(ctx context.Context, request scheduling.CourseRequest) (scheduling.CourseResult, error)
}

type Expander struct {
	scheduler     CourseScheduler
	loc           *time.Location
	horizonMonths int
}

func NewExpander(scheduler CourseScheduler, loc *time.Location, horizonMonths int) *Expander {
	if loc == nil {
		loc = time.UTC
	}
	if horizonMonths <= 0 {
		horizonMonths = 6
	}
	return &Expander{
		scheduler:     scheduler,
		loc:           loc,
		horizonMonths: horizonMonths,
	}
}

// Expand creates every occurrence of rule after the base schedule through the single-schedule
// path. Conflicting occurrences are skipped; a store failure stops the expansion and the
// outcomes gathered so far are returned with the error.
func (e *Expander) Expand(ctx context.Context, base course_schedule.CourseSchedule, rule course_schedule.RecurrenceRule) ([]Outcome, error) {
	if err := rule.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	if base.Duration() <= 0 {
		return nil, fmt.Errorf("%w: base schedule has no duration", ErrInvalidRule)
	}

	// occurrences end at the same wall-clock time as the base
	_, endTime := utils.Span(base.StartTime, base.EndTime, e.loc)

	dates, err := e.occurrences(base.StartTime.In(e.loc), rule)
	if err != nil {
		return nil, err
	}
	log.Debugf("Expanding schedule %s into %d occurrence(s)", base.Id, len(dates))

	outcomes := make([]Outcome, 0, len(dates))
	for _, start := range dates {
		end := endTime.On(start, e.loc)
		result, err := e.scheduler.ScheduleCourse(ctx, scheduling.CourseRequest{
			CourseId:     base.CourseId,
			InstructorId: base.InstructorId,
			LocationId:   base.LocationId,
			Title:        base.Title,
			Start:        start,
			End:          end,
			MaxCapacity:  base.MaxCapacity,
			ParentId:     uuid.NullUUID{UUID: base.Id, Valid: true},
		})
		if err != nil {
			log.Errorf("expansion of schedule %s aborted at %s: %v", base.Id, start, err)
			return outcomes, fmt.Errorf("failed to create occurrence at %s: %w", start.Format(time.RFC3339), err)
		}
		if !result.Success {
			reason := skipReason(result)
			log.Infof("Skipping occurrence of schedule %s at %s: %s", base.Id, start, reason)
			outcomes = append(outcomes, Outcome{Status: OutcomeSkipped, Reason: reason, Start: start, End: end})
			continue
		}
		outcomes = append(outcomes, Outcome{Status: OutcomeCreated, Schedule: result.Schedule, Start: start, End: end})
	}
	return outcomes, nil
}

// occurrences returns the start of every occurrence after base, which itself is not repeated.
func (e *Expander) occurrences(base time.Time, rule course_schedule.RecurrenceRule) ([]time.Time, error) {
	var until time.Time
	if rule.EndDate != nil {
		y, m, d := rule.EndDate.Date()
		until = time.Date(y, m, d, 23, 59, 59, 0, e.loc)
	} else {
		until = base.AddDate(0, e.horizonMonths, 0)
	}
	if until.Before(base) {
		return nil, nil
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:     frequency(rule.Frequency),
		Interval: rule.Interval,
		Dtstart:  base,
		Until:    until,
		Count:    MaxOccurrences + 1,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}

	dates := make([]time.Time, 0)
	for _, t := range r.All() {
		if t.Equal(base) {
			continue
		}
		dates = append(dates, t)
	}
	if len(dates) > MaxOccurrences {
		dates = dates[:MaxOccurrences]
	}
	return dates, nil
}

func frequency(f course_schedule.Frequency) rrule.Frequency {
	switch f {
	case course_schedule.FrequencyDaily:
		return rrule.DAILY
	case course_schedule.FrequencyMonthly:
		return rrule.MONTHLY
	default:
		return rrule.WEEKLY
	}
}

func skipReason(result scheduling.CourseResult) string {
	if result.Verdict != nil && len(result.Verdict.Conflicts) > 0 {
		return result.Verdict.Conflicts[0].Reason
	}
	return result.Message
}

// Created returns the schedules of the created occurrences, in order.
func Created(outcomes []Outcome) []course_schedule.CourseSchedule {
	created := make([]course_schedule.CourseSchedule, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Status == OutcomeCreated {
			created = append(created, o.Schedule)
		}
	}
	return created
}
