package app

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// Conflicts and free slots
	r.HandleFunc("/api/resources/availability", deps.SchedulingHandler.FindAvailableResources).Methods("POST")
	r.HandleFunc("/api/resources/{resourceId}/conflicts", deps.ConflictHandler.CheckConflicts).Queries("start", "{start}", "end", "{end}").Methods("GET")
	r.HandleFunc("/api/resources/{resourceId}/alternatives", deps.ConflictHandler.GetAlternatives).Queries("start", "{start}", "end", "{end}").Methods("GET")
	r.HandleFunc("/api/resources/{resourceId}/slots", deps.ConflictHandler.ListSlots).Queries("date", "{date}", "duration", "{duration}").Methods("GET")

	// Bookings
	r.HandleFunc("/api/bookings", deps.SchedulingHandler.Schedule).Methods("POST")
	r.HandleFunc("/api/bookings/{bookingId}/time", deps.SchedulingHandler.Reschedule).Methods("PUT")
	r.HandleFunc("/api/bookings/{bookingId}/cancel", deps.SchedulingHandler.Cancel).Methods("POST")

	// Course schedules
	r.HandleFunc("/api/schedules", deps.RecurrenceHandler.CreateSchedule).Methods("POST")

	// Enrollments
	r.HandleFunc("/api/schedules/{scheduleId}/enrollments", deps.EnrollmentHandler.Enroll).Methods("POST")
	r.HandleFunc("/api/schedules/{scheduleId}/enrollments", deps.EnrollmentHandler.ListEnrollments).Methods("GET")
	r.HandleFunc("/api/enrollments/{enrollmentId}", deps.EnrollmentHandler.Withdraw).Methods("DELETE")
}
