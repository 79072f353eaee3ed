package recurrence

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/klokku/booking/internal/rest"
	"github.com/klokku/booking/pkg/conflict"
	"github.com/klokku/booking/pkg/course_schedule"
	"github.com/klokku/booking/pkg/scheduling"
)

type SeriesExpander interface {
	Expand(ctx context.Context, base course_schedule.CourseSchedule, rule course_schedule.RecurrenceRule) ([]Outcome, error)
}

type RecurrenceDTO struct {
	Frequency string `json:"frequency"`
	Interval  int    `json:"interval"`
	// EndDate is YYYY-MM-DD, inclusive.
	EndDate string `json:"endDate,omitempty"`
}

type ScheduleRequestDTO struct {
	CourseId     int            `json:"courseId"`
	InstructorId int            `json:"instructorId"`
	LocationId   *int           `json:"locationId,omitempty"`
	Title        string         `json:"title"`
	Start        time.Time      `json:"start"`
	End          time.Time      `json:"end"`
	MaxCapacity  int            `json:"maxCapacity"`
	Recurrence   *RecurrenceDTO `json:"recurrence,omitempty"`
}

type CourseScheduleDTO struct {
	Id                string `json:"id"`
	CourseId          int    `json:"courseId"`
	InstructorId      int    `json:"instructorId"`
	LocationId        *int   `json:"locationId,omitempty"`
	Title             string `json:"title"`
	Start             string `json:"start"`
	End               string `json:"end"`
	MaxCapacity       int    `json:"maxCapacity"`
	CurrentEnrollment int    `json:"currentEnrollment"`
	Status            string `json:"status"`
	ParentId          string `json:"parentId,omitempty"`
}

type OutcomeDTO struct {
	Status     OutcomeStatus `json:"status"`
	Start      string        `json:"start"`
	End        string        `json:"end"`
	ScheduleId string        `json:"scheduleId,omitempty"`
	Reason     string        `json:"reason,omitempty"`
}

type ScheduleResponseDTO struct {
	Success     bool                 `json:"success"`
	Message     string               `json:"message"`
	Schedule    *CourseScheduleDTO   `json:"schedule,omitempty"`
	BookingId   string               `json:"bookingId,omitempty"`
	Verdict     *conflict.VerdictDTO `json:"verdict,omitempty"`
	Occurrences []OutcomeDTO         `json:"occurrences"`
}

func CourseScheduleToDTO(s course_schedule.CourseSchedule) CourseScheduleDTO {
	dto := CourseScheduleDTO{
		Id:                s.Id.String(),
		CourseId:          s.CourseId,
		InstructorId:      s.InstructorId,
		LocationId:        s.LocationId,
		Title:             s.Title,
		Start:             s.StartTime.Format(time.RFC3339),
		End:               s.EndTime.Format(time.RFC3339),
		MaxCapacity:       s.MaxCapacity,
		CurrentEnrollment: s.CurrentEnrollment,
		Status:            string(s.Status),
	}
	if s.ParentId.Valid {
		dto.ParentId = s.ParentId.UUID.String()
	}
	return dto
}

func OutcomeToDTO(o Outcome) OutcomeDTO {
	dto := OutcomeDTO{
		Status: o.Status,
		Start:  o.Start.Format(time.RFC3339),
		End:    o.End.Format(time.RFC3339),
		Reason: o.Reason,
	}
	if o.Status == OutcomeCreated {
		dto.ScheduleId = o.Schedule.Id.String()
	}
	return dto
}

func (d RecurrenceDTO) toRule() (course_schedule.RecurrenceRule, error) {
	rule := course_schedule.RecurrenceRule{
		Frequency: course_schedule.Frequency(d.Frequency),
		Interval:  d.Interval,
	}
	if d.EndDate != "" {
		endDate, err := time.Parse(time.DateOnly, d.EndDate)
		if err != nil {
			return course_schedule.RecurrenceRule{}, err
		}
		rule.EndDate = &endDate
	}
	return rule, rule.Validate()
}

type Handler struct {
	scheduler CourseScheduler
	expander  SeriesExpander
}

func NewHandler(scheduler CourseScheduler, expander SeriesExpander) *Handler {
	return &Handler{
		scheduler: scheduler,
		expander:  expander,
	}
}

// CreateSchedule godoc
// @Summary Schedule a course session, optionally as a recurring series
// @Tags Schedules
// @Accept json
// @Produce json
// @Param schedule body ScheduleRequestDTO true "Course schedule"
// @Success 201 {object} ScheduleResponseDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 409 {object} ScheduleResponseDTO "Instructor not available"
// @Router /api/schedules [post]
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var dto ScheduleRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	request := scheduling.CourseRequest{
		CourseId:     dto.CourseId,
		InstructorId: dto.InstructorId,
		LocationId:   dto.LocationId,
		Title:        dto.Title,
		Start:        dto.Start,
		End:          dto.End,
		MaxCapacity:  dto.MaxCapacity,
	}
	if dto.Recurrence != nil {
		rule, err := dto.Recurrence.toRule()
		if err != nil {
			rest.WriteError(w, http.StatusBadRequest, "Invalid recurrence rule", err.Error())
			return
		}
		request.Recurrence = &rule
	}

	result, err := h.scheduler.ScheduleCourse(r.Context(), request)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	response := ScheduleResponseDTO{
		Success:     result.Success,
		Message:     result.Message,
		Occurrences: []OutcomeDTO{},
	}
	if !result.Success {
		// without a base there is no series to hang occurrences on
		if request.Recurrence != nil {
			response.Message = result.Message + "; series not created"
		}
		status := http.StatusBadRequest
		if result.Verdict != nil {
			verdict := conflict.VerdictToDTO(*result.Verdict)
			response.Verdict = &verdict
			status = http.StatusConflict
		}
		rest.WriteJSON(w, status, response)
		return
	}

	schedule := CourseScheduleToDTO(result.Schedule)
	response.Schedule = &schedule
	response.BookingId = result.BookingId.String()

	if request.Recurrence != nil {
		outcomes, err := h.expander.Expand(r.Context(), result.Schedule, *request.Recurrence)
		for _, o := range outcomes {
			response.Occurrences = append(response.Occurrences, OutcomeToDTO(o))
		}
		if err != nil {
			rest.WriteError(w, http.StatusInternalServerError, "Series expansion aborted", err.Error())
			return
		}
	}
	rest.WriteJSON(w, http.StatusCreated, response)
}
