package conflict

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/klokku/booking/internal/rest"
)

type Checker interface {
	CheckConflicts(ctx context.Context, resourceId int, start, end time.Time, excludeBookingId uuid.NullUUID) (Verdict, error)
	GenerateAlternatives(ctx context.Context, resourceId int, start, end time.Time, excludeBookingId uuid.NullUUID) ([]TimeSlot, error)
	ListFreeSlots(ctx context.Context, resourceId int, date time.Time, durationMinutes int) ([]TimeSlot, error)
}

type ConflictDTO struct {
	Kind        Kind     `json:"kind"`
	Severity    Severity `json:"severity"`
	Reason      string   `json:"reason"`
	BookingId   string   `json:"bookingId,omitempty"`
	ExceptionId *int     `json:"exceptionId,omitempty"`
}

type TimeSlotDTO struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

type VerdictDTO struct {
	HasConflicts bool          `json:"hasConflicts"`
	Conflicts    []ConflictDTO `json:"conflicts"`
	Alternatives []TimeSlotDTO `json:"alternatives"`
}

func ConflictToDTO(c Conflict) ConflictDTO {
	dto := ConflictDTO{
		Kind:        c.Kind,
		Severity:    c.Severity,
		Reason:      c.Reason,
		ExceptionId: c.ExceptionId,
	}
	if c.BookingId.Valid {
		dto.BookingId = c.BookingId.UUID.String()
	}
	return dto
}

func TimeSlotToDTO(s TimeSlot) TimeSlotDTO {
	return TimeSlotDTO{
		Start:     s.Start.Format(time.RFC3339),
		End:       s.End.Format(time.RFC3339),
		Available: s.Available,
		Reason:    s.Reason,
	}
}

func TimeSlotsToDTO(slots []TimeSlot) []TimeSlotDTO {
	dtos := make([]TimeSlotDTO, 0, len(slots))
	for _, s := range slots {
		dtos = append(dtos, TimeSlotToDTO(s))
	}
	return dtos
}

func VerdictToDTO(v Verdict) VerdictDTO {
	conflicts := make([]ConflictDTO, 0, len(v.Conflicts))
	for _, c := range v.Conflicts {
		conflicts = append(conflicts, ConflictToDTO(c))
	}
	return VerdictDTO{
		HasConflicts: v.HasConflicts,
		Conflicts:    conflicts,
		Alternatives: TimeSlotsToDTO(v.Alternatives),
	}
}

type Handler struct {
	checker Checker
}

func NewHandler(checker Checker) *Handler {
	return &Handler{checker: checker}
}

// CheckConflicts godoc
// @Summary Check a proposed interval for conflicts
// @Tags Conflicts
// @Produce json
// @Param resourceId path int true "Resource ID"
// @Param start query string true "Start in RFC3339 format"
// @Param end query string true "End in RFC3339 format"
// @Param excludeBookingId query string false "Booking to ignore"
// @Success 200 {object} VerdictDTO
// @Failure 400 {object} rest.ErrorResponse
// @Router /api/resources/{resourceId}/conflicts [get]
func (h *Handler) CheckConflicts(w http.ResponseWriter, r *http.Request) {
	resourceId, ok := resourceIdFromPath(w, r)
	if !ok {
		return
	}
	start, end, ok := intervalFromQuery(w, r)
	if !ok {
		return
	}
	exclude := uuid.NullUUID{}
	if raw := r.URL.Query().Get("excludeBookingId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			rest.WriteError(w, http.StatusBadRequest, "Invalid excludeBookingId format", "Parameter excludeBookingId must be a UUID")
			return
		}
		exclude = uuid.NullUUID{UUID: id, Valid: true}
	}

	verdict, err := h.checker.CheckConflicts(r.Context(), resourceId, start, end, exclude)
	if err != nil {
		writeCheckError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, VerdictToDTO(verdict))
}

// GetAlternatives godoc
// @Summary Suggest alternative slots on the same day
// @Tags Conflicts
// @Produce json
// @Param resourceId path int true "Resource ID"
// @Param start query string true "Start in RFC3339 format"
// @Param end query string true "End in RFC3339 format"
// @Success 200 {array} TimeSlotDTO
// @Failure 400 {object} rest.ErrorResponse
// @Router /api/resources/{resourceId}/alternatives [get]
func (h *Handler) GetAlternatives(w http.ResponseWriter, r *http.Request) {
	resourceId, ok := resourceIdFromPath(w, r)
	if !ok {
		return
	}
	start, end, ok := intervalFromQuery(w, r)
	if !ok {
		return
	}

	slots, err := h.checker.GenerateAlternatives(r.Context(), resourceId, start, end, uuid.NullUUID{})
	if err != nil {
		writeCheckError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, TimeSlotsToDTO(slots))
}

// ListSlots godoc
// @Summary List slots within the declared availability of a day
// @Tags Conflicts
// @Produce json
// @Param resourceId path int true "Resource ID"
// @Param date query string true "Date in YYYY-MM-DD format"
// @Param duration query int true "Slot duration in minutes"
// @Success 200 {array} TimeSlotDTO
// @Failure 400 {object} rest.ErrorResponse
// @Router /api/resources/{resourceId}/slots [get]
func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	resourceId, ok := resourceIdFromPath(w, r)
	if !ok {
		return
	}
	date, err := time.Parse(time.DateOnly, r.URL.Query().Get("date"))
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Incorrect date format", "Date must be in YYYY-MM-DD format")
		return
	}
	duration, err := strconv.Atoi(r.URL.Query().Get("duration"))
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid duration format", "Parameter duration must be a number of minutes")
		return
	}

	slots, err := h.checker.ListFreeSlots(r.Context(), resourceId, date, duration)
	if err != nil {
		writeCheckError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, TimeSlotsToDTO(slots))
}

func writeCheckError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrInvalidInterval) || errors.Is(err, ErrInvalidDuration) {
		rest.WriteError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func resourceIdFromPath(w http.ResponseWriter, r *http.Request) (int, bool) {
	resourceId, err := strconv.Atoi(mux.Vars(r)["resourceId"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid resourceId format", "Parameter resourceId must be a number")
		return 0, false
	}
	return resourceId, true
}

func intervalFromQuery(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Incorrect start format", "Start must be in RFC3339 format")
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Incorrect end format", "End must be in RFC3339 format")
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
