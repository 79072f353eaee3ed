package course_schedule

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type RepositoryStub struct {
	mu        sync.RWMutex
	schedules map[uuid.UUID]CourseSchedule
	createErr error
	updateErr error
	onCreate  func(CourseSchedule)
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{
		schedules: make(map[uuid.UUID]CourseSchedule),
	}
}

func (r *RepositoryStub) CreateSchedule(ctx context.Context, schedule CourseSchedule) (CourseSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return CourseSchedule{}, r.createErr
	}
	if schedule.Id == uuid.Nil {
		schedule.Id = uuid.New()
	}
	r.schedules[schedule.Id] = schedule
	if r.onCreate != nil {
		r.onCreate(schedule)
	}
	return schedule, nil
}

func (r *RepositoryStub) GetSchedule(ctx context.Context, id uuid.UUID) (CourseSchedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schedules[id]
	if !ok {
		return CourseSchedule{}, ErrScheduleNotFound
	}
	return s, nil
}

func (r *RepositoryStub) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.schedules[id]
	if !ok {
		return ErrScheduleNotFound
	}
	s.Status = status
	r.schedules[id] = s
	return nil
}

func (r *RepositoryStub) UpdateTimes(ctx context.Context, id uuid.UUID, start, end time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	s, ok := r.schedules[id]
	if !ok {
		return ErrScheduleNotFound
	}
	s.StartTime = start
	s.EndTime = end
	r.schedules[id] = s
	return nil
}

func (r *RepositoryStub) ListSeries(ctx context.Context, parentId uuid.UUID) ([]CourseSchedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []CourseSchedule
	for _, s := range r.schedules {
		if s.Id == parentId || (s.ParentId.Valid && s.ParentId.UUID == parentId) {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartTime.Before(result[j].StartTime) })
	return result, nil
}

// Helper method to make schedule creation fail
func (r *RepositoryStub) SetCreateError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createErr = err
}

// Helper method to make time updates fail
func (r *RepositoryStub) SetUpdateError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateErr = err
}

// Helper method to observe created schedules
func (r *RepositoryStub) SetCreateHook(hook func(CourseSchedule)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onCreate = hook
}

// Helper method to get every stored schedule (for testing)
func (r *RepositoryStub) All() []CourseSchedule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]CourseSchedule, 0, len(r.schedules))
	for _, s := range r.schedules {
		result = append(result, s)
	}
	return result
}

func (r *RepositoryStub) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedules = make(map[uuid.UUID]CourseSchedule)
	r.createErr = nil
	r.updateErr = nil
	r.onCreate = nil
}
