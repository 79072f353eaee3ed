package enrollment

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/klokku/booking/internal/rest"
	"github.com/klokku/booking/pkg/course_schedule"
)

type EnrollRequestDTO struct {
	ParticipantId int `json:"participantId"`
}

type ResultDTO struct {
	Success          bool   `json:"success"`
	EnrollmentId     string `json:"enrollmentId,omitempty"`
	Status           Status `json:"status,omitempty"`
	WaitlistPosition *int   `json:"waitlistPosition,omitempty"`
	Message          string `json:"message"`
}

type EnrollmentDTO struct {
	Id               string `json:"id"`
	ScheduleId       string `json:"scheduleId"`
	ParticipantId    int    `json:"participantId"`
	Status           Status `json:"status"`
	WaitlistPosition *int   `json:"waitlistPosition,omitempty"`
	EnrolledAt       string `json:"enrolledAt"`
}

func ResultToDTO(r Result) ResultDTO {
	dto := ResultDTO{
		Success:          r.Success,
		Status:           r.Status,
		WaitlistPosition: r.WaitlistPosition,
		Message:          r.Message,
	}
	if r.EnrollmentId != uuid.Nil {
		dto.EnrollmentId = r.EnrollmentId.String()
	}
	return dto
}

func EnrollmentToDTO(e Enrollment) EnrollmentDTO {
	return EnrollmentDTO{
		Id:               e.Id.String(),
		ScheduleId:       e.ScheduleId.String(),
		ParticipantId:    e.ParticipantId,
		Status:           e.Status,
		WaitlistPosition: e.WaitlistPosition,
		EnrolledAt:       e.EnrolledAt.Format(time.RFC3339),
	}
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Enroll godoc
// @Summary Enroll a participant, or waitlist them when the course is full
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param scheduleId path string true "Course schedule ID"
// @Param request body EnrollRequestDTO true "Participant"
// @Success 201 {object} ResultDTO
// @Failure 400 {object} ResultDTO "Enrollment refused"
// @Failure 404 {string} string "Course schedule not found"
// @Router /api/schedules/{scheduleId}/enrollments [post]
func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	scheduleId, ok := uuidFromPath(w, r, "scheduleId")
	if !ok {
		return
	}
	var dto EnrollRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}

	result, err := h.service.Enroll(r.Context(), scheduleId, dto.ParticipantId)
	if err != nil {
		if errors.Is(err, course_schedule.ErrScheduleNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	status := http.StatusCreated
	if !result.Success {
		status = http.StatusBadRequest
	}
	rest.WriteJSON(w, status, ResultToDTO(result))
}

// ListEnrollments godoc
// @Summary List the enrollments of a course schedule
// @Tags Enrollments
// @Produce json
// @Param scheduleId path string true "Course schedule ID"
// @Success 200 {array} EnrollmentDTO
// @Router /api/schedules/{scheduleId}/enrollments [get]
func (h *Handler) ListEnrollments(w http.ResponseWriter, r *http.Request) {
	scheduleId, ok := uuidFromPath(w, r, "scheduleId")
	if !ok {
		return
	}
	enrollments, err := h.service.ListEnrollments(r.Context(), scheduleId)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	dtos := make([]EnrollmentDTO, 0, len(enrollments))
	for _, e := range enrollments {
		dtos = append(dtos, EnrollmentToDTO(e))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

// Withdraw godoc
// @Summary Withdraw an enrollment
// @Tags Enrollments
// @Param enrollmentId path string true "Enrollment ID"
// @Success 204
// @Failure 404 {string} string "Enrollment not found"
// @Router /api/enrollments/{enrollmentId} [delete]
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	enrollmentId, ok := uuidFromPath(w, r, "enrollmentId")
	if !ok {
		return
	}
	if err := h.service.Withdraw(r.Context(), enrollmentId); err != nil {
		if errors.Is(err, ErrEnrollmentNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func uuidFromPath(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid "+name+" format", "Parameter "+name+" must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
