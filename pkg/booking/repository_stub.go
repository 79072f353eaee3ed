package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klokku/booking/internal/utils"
)

type RepositoryStub struct {
	mu       sync.RWMutex
	bookings map[uuid.UUID]Booking
	err      error
	writeErr error
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{
		bookings: make(map[uuid.UUID]Booking),
	}
}

// WithTransaction restores the stored bookings when fn fails.
func (r *RepositoryStub) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	original := make(map[uuid.UUID]Booking, len(r.bookings))
	for k, v := range r.bookings {
		original[k] = v
	}
	r.mu.Unlock()

	if err := fn(ctx); err != nil {
		r.mu.Lock()
		r.bookings = original
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *RepositoryStub) GetBooking(ctx context.Context, id uuid.UUID) (Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.err != nil {
		return Booking{}, r.err
	}
	b, ok := r.bookings[id]
	if !ok {
		return Booking{}, ErrBookingNotFound
	}
	return b, nil
}

func (r *RepositoryStub) ListActiveBookings(ctx context.Context, resourceId int, date time.Time, excludeId uuid.NullUUID) ([]Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.err != nil {
		return nil, r.err
	}
	return r.activeOn(resourceId, date, excludeId), nil
}

func (r *RepositoryStub) activeOn(resourceId int, date time.Time, excludeId uuid.NullUUID) []Booking {
	var result []Booking
	for _, b := range r.bookings {
		if b.ResourceId != resourceId || !b.IsActive() || !utils.SameDate(b.Date, date) {
			continue
		}
		if excludeId.Valid && b.Id == excludeId.UUID {
			continue
		}
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartTime < result[j].StartTime })
	return result
}

// overlapsLive mirrors the store's exclusion constraint.
func (r *RepositoryStub) overlapsLive(b Booking) bool {
	for _, other := range r.activeOn(b.ResourceId, b.Date, uuid.NullUUID{UUID: b.Id, Valid: true}) {
		if other.Overlaps(b.StartTime, b.EndTime) {
			return true
		}
	}
	return false
}

func (r *RepositoryStub) StoreBooking(ctx context.Context, booking Booking) (Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return Booking{}, r.writeErr
	}

	if booking.Id == uuid.Nil {
		booking.Id = uuid.New()
	}
	if booking.IsActive() && r.overlapsLive(booking) {
		return Booking{}, ErrOverlappingBooking
	}
	booking.UpdatedAt = booking.CreatedAt
	r.bookings[booking.Id] = booking
	return booking, nil
}

func (r *RepositoryStub) UpdateTime(ctx context.Context, id uuid.UUID, date time.Time, start, end utils.TimeOfDay, updatedAt time.Time) (Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return Booking{}, r.writeErr
	}

	b, ok := r.bookings[id]
	if !ok {
		return Booking{}, ErrBookingNotFound
	}
	b.Date = date
	b.StartTime = start
	b.EndTime = end
	b.UpdatedAt = updatedAt
	if b.IsActive() && r.overlapsLive(b) {
		return Booking{}, ErrOverlappingBooking
	}
	r.bookings[id] = b
	return b, nil
}

func (r *RepositoryStub) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, updatedAt time.Time) (Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return Booking{}, r.writeErr
	}

	b, ok := r.bookings[id]
	if !ok {
		return Booking{}, ErrBookingNotFound
	}
	b.Status = status
	b.UpdatedAt = updatedAt
	r.bookings[id] = b
	return b, nil
}

// Helper method to make reads fail
func (r *RepositoryStub) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Helper method to make writes fail
func (r *RepositoryStub) SetWriteError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writeErr = err
}

// Helper method to get every stored booking (for testing)
func (r *RepositoryStub) All() []Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Booking, 0, len(r.bookings))
	for _, b := range r.bookings {
		result = append(result, b)
	}
	return result
}

func (r *RepositoryStub) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings = make(map[uuid.UUID]Booking)
	r.err = nil
	r.writeErr = nil
}
