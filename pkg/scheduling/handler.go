package scheduling

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/klokku/booking/internal/rest"
	"github.com/klokku/booking/pkg/booking"
	"github.com/klokku/booking/pkg/conflict"
	"github.com/shopspring/decimal"
)

type BookingRequestDTO struct {
	ResourceId    int                 `json:"resourceId"`
	Start         time.Time           `json:"start"`
	End           time.Time           `json:"end"`
	Category      string              `json:"category,omitempty"`
	Title         string              `json:"title"`
	ScheduleId    *uuid.UUID          `json:"scheduleId,omitempty"`
	BillableHours decimal.NullDecimal `json:"billableHours"`
}

type IntervalDTO struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type ResultDTO struct {
	Success   bool                 `json:"success"`
	BookingId string               `json:"bookingId,omitempty"`
	Message   string               `json:"message"`
	Verdict   *conflict.VerdictDTO `json:"verdict,omitempty"`
}

type AvailabilityRequestDTO struct {
	ResourceIds []int     `json:"resourceIds"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

type ResourceAvailabilityDTO struct {
	ResourceId int                 `json:"resourceId"`
	Available  bool                `json:"available"`
	Verdict    conflict.VerdictDTO `json:"verdict"`
}

func ResultToDTO(r Result) ResultDTO {
	dto := ResultDTO{
		Success: r.Success,
		Message: r.Message,
	}
	if r.BookingId != uuid.Nil {
		dto.BookingId = r.BookingId.String()
	}
	if r.Verdict != nil {
		verdict := conflict.VerdictToDTO(*r.Verdict)
		dto.Verdict = &verdict
	}
	return dto
}

// resultStatus maps a failed result to 409 when it carries conflicts and 400 otherwise.
func resultStatus(r Result, successStatus int) int {
	switch {
	case r.Success:
		return successStatus
	case r.Verdict != nil:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Schedule godoc
// @Summary Book a resource
// @Tags Bookings
// @Accept json
// @Produce json
// @Param booking body BookingRequestDTO true "Booking request"
// @Success 201 {object} ResultDTO
// @Failure 400 {object} ResultDTO "Invalid request"
// @Failure 409 {object} ResultDTO "Requested time conflicts"
// @Router /api/bookings [post]
func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	var dto BookingRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	request := Request{
		ResourceId:    dto.ResourceId,
		Start:         dto.Start,
		End:           dto.End,
		Category:      booking.Category(dto.Category),
		Title:         dto.Title,
		BillableHours: dto.BillableHours,
	}
	if dto.ScheduleId != nil {
		request.ScheduleId = uuid.NullUUID{UUID: *dto.ScheduleId, Valid: true}
	}

	result, err := h.service.Schedule(r.Context(), request)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	rest.WriteJSON(w, resultStatus(result, http.StatusCreated), ResultToDTO(result))
}

// Reschedule godoc
// @Summary Move a booking to another interval
// @Tags Bookings
// @Accept json
// @Produce json
// @Param bookingId path string true "Booking ID"
// @Param interval body IntervalDTO true "New interval"
// @Success 200 {object} ResultDTO
// @Failure 400 {object} ResultDTO "Invalid request"
// @Failure 404 {string} string "Booking not found"
// @Failure 409 {object} ResultDTO "Requested time conflicts"
// @Router /api/bookings/{bookingId}/time [put]
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	bookingId, ok := bookingIdFromPath(w, r)
	if !ok {
		return
	}
	var dto IntervalDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}

	result, err := h.service.Reschedule(r.Context(), bookingId, dto.Start, dto.End)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, resultStatus(result, http.StatusOK), ResultToDTO(result))
}

// Cancel godoc
// @Summary Cancel a booking
// @Tags Bookings
// @Param bookingId path string true "Booking ID"
// @Success 204
// @Failure 404 {string} string "Booking not found"
// @Router /api/bookings/{bookingId}/cancel [post]
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	bookingId, ok := bookingIdFromPath(w, r)
	if !ok {
		return
	}
	if err := h.service.Cancel(r.Context(), bookingId); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FindAvailableResources godoc
// @Summary Check several candidate resources for one interval
// @Tags Conflicts
// @Accept json
// @Produce json
// @Param request body AvailabilityRequestDTO true "Candidates and interval"
// @Success 200 {array} ResourceAvailabilityDTO
// @Failure 400 {object} rest.ErrorResponse
// @Router /api/resources/availability [post]
func (h *Handler) FindAvailableResources(w http.ResponseWriter, r *http.Request) {
	var dto AvailabilityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}

	availability, err := h.service.FindAvailableResources(r.Context(), dto.ResourceIds, dto.Start, dto.End)
	if err != nil {
		if errors.Is(err, conflict.ErrInvalidInterval) {
			rest.WriteError(w, http.StatusBadRequest, conflict.ErrInvalidInterval.Error(), "")
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dtos := make([]ResourceAvailabilityDTO, 0, len(availability))
	for _, a := range availability {
		dtos = append(dtos, ResourceAvailabilityDTO{
			ResourceId: a.ResourceId,
			Available:  a.Available,
			Verdict:    conflict.VerdictToDTO(a.Verdict),
		})
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

func writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, booking.ErrBookingNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func bookingIdFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	bookingId, err := uuid.Parse(mux.Vars(r)["bookingId"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid bookingId format", "Parameter bookingId must be a UUID")
		return uuid.Nil, false
	}
	return bookingId, true
}
