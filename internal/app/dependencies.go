package app

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klokku/booking/internal/config"
	"github.com/klokku/booking/internal/event_bus"
	"github.com/klokku/booking/internal/lease"
	"github.com/klokku/booking/internal/utils"
	"github.com/klokku/booking/pkg/availability"
	"github.com/klokku/booking/pkg/booking"
	"github.com/klokku/booking/pkg/conflict"
	"github.com/klokku/booking/pkg/course_schedule"
	"github.com/klokku/booking/pkg/enrollment"
	"github.com/klokku/booking/pkg/recurrence"
	"github.com/klokku/booking/pkg/scheduling"
	log "github.com/sirupsen/logrus"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Clock    utils.Clock
	EventBus *event_bus.EventBus
	Locker   lease.Locker

	AvailabilityRepo availability.Repository
	BookingRepo      booking.Repository
	ScheduleRepo     course_schedule.Repository
	EnrollmentRepo   enrollment.Repository

	ConflictEngine  *conflict.Engine
	ConflictHandler *conflict.Handler

	SchedulingService *scheduling.ServiceImpl
	SchedulingHandler *scheduling.Handler

	RecurrenceExpander *recurrence.Expander
	RecurrenceHandler  *recurrence.Handler

	EnrollmentService *enrollment.ServiceImpl
	EnrollmentHandler *enrollment.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *pgxpool.Pool, cfg config.Application) (*Dependencies, error) {
	deps := &Dependencies{}

	loc, err := cfg.Scheduling.Location()
	if err != nil {
		return nil, err
	}
	businessStart, businessEnd, err := cfg.Scheduling.BusinessWindow()
	if err != nil {
		return nil, err
	}

	deps.Clock = &utils.SystemClock{}
	deps.EventBus = event_bus.NewEventBus()
	event_bus.RegisterAuditLog(deps.EventBus)
	deps.Locker = newLocker(cfg.Lock)

	deps.AvailabilityRepo = availability.NewRepo(db)
	deps.BookingRepo = booking.NewRepo(db)
	deps.ScheduleRepo = course_schedule.NewRepo(db)
	deps.EnrollmentRepo = enrollment.NewRepo(db)

	deps.ConflictEngine = conflict.NewEngine(deps.AvailabilityRepo, deps.BookingRepo, conflict.Settings{
		Location:      loc,
		BusinessStart: businessStart,
		BusinessEnd:   businessEnd,
		Step:          cfg.Scheduling.SlotStep(),
	})
	deps.ConflictHandler = conflict.NewHandler(deps.ConflictEngine)

	deps.SchedulingService = scheduling.NewService(
		deps.ConflictEngine,
		deps.BookingRepo,
		deps.ScheduleRepo,
		deps.Locker,
		deps.EventBus,
		deps.Clock,
		loc,
	)
	deps.SchedulingHandler = scheduling.NewHandler(deps.SchedulingService)

	deps.RecurrenceExpander = recurrence.NewExpander(deps.SchedulingService, loc, cfg.Scheduling.RecurrenceHorizonMonths)
	deps.RecurrenceHandler = recurrence.NewHandler(deps.SchedulingService, deps.RecurrenceExpander)

	deps.EnrollmentService = enrollment.NewService(deps.EnrollmentRepo, deps.EventBus, deps.Clock)
	deps.EnrollmentHandler = enrollment.NewHandler(deps.EnrollmentService)

	return deps, nil
}

func newLocker(cfg config.Lock) lease.Locker {
	if cfg.Backend == config.LockBackendRedis {
		log.Infof("Using Redis leases at %s", cfg.Redis.Addr)
		return lease.NewRedis(lease.NewRedisClient(cfg.Redis), cfg.TTL())
	}
	log.Info("Using in-process leases")
	return lease.NewLocal()
}
