package conflict

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withResource(req *http.Request) *http.Request {
	return mux.SetURLVars(req, map[string]string{"resourceId": "42"})
}

func TestHandler_CheckConflicts(t *testing.T) {
	t.Run("should return the verdict", func(t *testing.T) {
		// given
		f := setup(t)
		f.window(t, time.Monday, tod(9, 0), tod(17, 0))
		standup := f.booking(t, monday, tod(10, 0), tod(11, 0), "Standup")
		handler := NewHandler(f.engine)
		req := withResource(httptest.NewRequest(http.MethodGet, "/api/resources/42/conflicts?start=2024-01-15T10:30:00Z&end=2024-01-15T11:30:00Z", nil))
		w := httptest.NewRecorder()

		// when
		handler.CheckConflicts(w, req)

		// then
		assert.Equal(t, http.StatusOK, w.Code)
		var verdict VerdictDTO
		require.NoError(t, json.NewDecoder(w.Body).Decode(&verdict))
		assert.True(t, verdict.HasConflicts)
		require.Len(t, verdict.Conflicts, 1)
		assert.Equal(t, KindBooking, verdict.Conflicts[0].Kind)
		assert.Equal(t, standup.Id.String(), verdict.Conflicts[0].BookingId)
		require.Len(t, verdict.Alternatives, 3)
		assert.Equal(t, "2024-01-15T09:00:00Z", verdict.Alternatives[0].Start)
	})

	t.Run("should honour excludeBookingId", func(t *testing.T) {
		f := setup(t)
		f.window(t, time.Monday, tod(9, 0), tod(17, 0))
		standup := f.booking(t, monday, tod(10, 0), tod(11, 0), "Standup")
		handler := NewHandler(f.engine)
		req := withResource(httptest.NewRequest(http.MethodGet, "/api/resources/42/conflicts?start=2024-01-15T10:00:00Z&end=2024-01-15T11:00:00Z&excludeBookingId="+standup.Id.String(), nil))
		w := httptest.NewRecorder()

		handler.CheckConflicts(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var verdict VerdictDTO
		require.NoError(t, json.NewDecoder(w.Body).Decode(&verdict))
		assert.False(t, verdict.HasConflicts)
		assert.Empty(t, verdict.Conflicts)
	})

	t.Run("should reject bad parameters", func(t *testing.T) {
		f := setup(t)
		handler := NewHandler(f.engine)
		urls := []string{
			"/api/resources/42/conflicts?start=yesterday&end=2024-01-15T11:00:00Z",
			"/api/resources/42/conflicts?start=2024-01-15T11:00:00Z&end=2024-01-15T10:00:00Z",
			"/api/resources/42/conflicts?start=2024-01-15T10:00:00Z&end=2024-01-15T11:00:00Z&excludeBookingId=nope",
		}
		for _, url := range urls {
			w := httptest.NewRecorder()
			handler.CheckConflicts(w, withResource(httptest.NewRequest(http.MethodGet, url, nil)))
			assert.Equal(t, http.StatusBadRequest, w.Code, url)
		}

		w := httptest.NewRecorder()
		req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/resources/x/conflicts", nil), map[string]string{"resourceId": "x"})
		handler.CheckConflicts(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_ListSlots(t *testing.T) {
	f := setup(t)
	f.window(t, time.Monday, tod(9, 0), tod(10, 0))
	handler := NewHandler(f.engine)

	w := httptest.NewRecorder()
	handler.ListSlots(w, withResource(httptest.NewRequest(http.MethodGet, "/api/resources/42/slots?date=2024-01-15&duration=30", nil)))

	assert.Equal(t, http.StatusOK, w.Code)
	var slots []TimeSlotDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&slots))
	require.Len(t, slots, 2)
	assert.Equal(t, "2024-01-15T09:00:00Z", slots[0].Start)
	assert.Equal(t, "2024-01-15T09:30:00Z", slots[1].Start)
	assert.True(t, slots[1].Available)

	w = httptest.NewRecorder()
	handler.ListSlots(w, withResource(httptest.NewRequest(http.MethodGet, "/api/resources/42/slots?date=2024-01-15&duration=0", nil)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_GetAlternatives(t *testing.T) {
	f := setup(t)
	f.window(t, time.Monday, tod(9, 0), tod(17, 0))
	handler := NewHandler(f.engine)

	w := httptest.NewRecorder()
	handler.GetAlternatives(w, withResource(httptest.NewRequest(http.MethodGet, "/api/resources/42/alternatives?start=2024-01-15T07:00:00Z&end=2024-01-15T08:00:00Z", nil)))

	assert.Equal(t, http.StatusOK, w.Code)
	var slots []TimeSlotDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&slots))
	require.Len(t, slots, MaxAlternatives)
	assert.Equal(t, "2024-01-15T09:00:00Z", slots[0].Start)
}
