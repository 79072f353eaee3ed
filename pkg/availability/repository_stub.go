package availability

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/klokku/booking/internal/utils"
)

type RepositoryStub struct {
	mu         sync.RWMutex
	windows    map[int]Window
	exceptions map[int]Exception
	nextId     int
	err        error
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{
		windows:    make(map[int]Window),
		exceptions: make(map[int]Exception),
		nextId:     1,
	}
}

func (r *RepositoryStub) GetWindows(ctx context.Context, resourceId int, day time.Weekday, kind WindowKind) ([]Window, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.err != nil {
		return nil, r.err
	}

	var result []Window
	for _, w := range r.windows {
		if w.ResourceId == resourceId && w.DayOfWeek == day && w.Kind == kind {
			result = append(result, w)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartTime < result[j].StartTime })
	return result, nil
}

func (r *RepositoryStub) GetExceptions(ctx context.Context, resourceId int, date time.Time) ([]Exception, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.err != nil {
		return nil, r.err
	}

	var result []Exception
	for _, e := range r.exceptions {
		if e.ResourceId == resourceId && utils.SameDate(e.Date, date) {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Id < result[j].Id })
	return result, nil
}

func (r *RepositoryStub) StoreWindow(ctx context.Context, window Window) (Window, error) {
	if err := window.Validate(); err != nil {
		return Window{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	window.Id = r.nextId
	r.nextId++
	r.windows[window.Id] = window
	return window, nil
}

func (r *RepositoryStub) StoreException(ctx context.Context, exception Exception) (Exception, error) {
	if err := exception.Validate(); err != nil {
		return Exception{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	exception.Id = r.nextId
	r.nextId++
	r.exceptions[exception.Id] = exception
	return exception, nil
}

// Helper method to make every read fail (for testing store failure propagation)
func (r *RepositoryStub) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Helper method to reset the stub (useful between tests)
func (r *RepositoryStub) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.windows = make(map[int]Window)
	r.exceptions = make(map[int]Exception)
	r.nextId = 1
	r.err = nil
}
