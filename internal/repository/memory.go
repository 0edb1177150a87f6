package repository

import (
	"context"
	"sync"
	"time"

	"carbook/internal/models"
)

type expiring[T any] struct {
	value     T
	expiresAt time.Time
}

func (e expiring[T]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

type draftID struct {
	userID int64
	carID  int64
}

// MemoryStateRepository is the in-process fallback for RedisStateRepository.
type MemoryStateRepository struct {
	mu          sync.Mutex
	drafts      map[draftID]expiring[models.Draft]
	calendars   map[int64]expiring[[]*models.Booking]
	rateLimits  map[string]*rateLimitEntry
	draftTTL    time.Duration
	calendarTTL time.Duration
	now         func() time.Time
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func NewMemoryStateRepository(draftTTL, calendarTTL time.Duration) *MemoryStateRepository {
	return &MemoryStateRepository{
		drafts:      make(map[draftID]expiring[models.Draft]),
		calendars:   make(map[int64]expiring[[]*models.Booking]),
		rateLimits:  make(map[string]*rateLimitEntry),
		draftTTL:    draftTTL,
		calendarTTL: calendarTTL,
		now:         time.Now,
	}
}

func (r *MemoryStateRepository) deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return r.now().Add(ttl)
}

func (r *MemoryStateRepository) GetDraft(_ context.Context, userID, carID int64) (*models.Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := draftID{userID, carID}
	entry, ok := r.drafts[id]
	if !ok {
		return nil, nil
	}
	if entry.expired(r.now()) {
		delete(r.drafts, id)
		return nil, nil
	}
	draft := entry.value
	return &draft, nil
}

func (r *MemoryStateRepository) SaveDraft(_ context.Context, draft *models.Draft) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.drafts[draftID{draft.UserID, draft.CarID}] = expiring[models.Draft]{value: *draft, expiresAt: r.deadline(r.draftTTL)}
	return nil
}

func (r *MemoryStateRepository) ClearDraft(_ context.Context, userID, carID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.drafts, draftID{userID, carID})
	return nil
}

func (r *MemoryStateRepository) GetCalendar(_ context.Context, carID int64) ([]*models.Booking, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.calendars[carID]
	if !ok {
		return nil, false, nil
	}
	if entry.expired(r.now()) {
		delete(r.calendars, carID)
		return nil, false, nil
	}
	return cloneBookings(entry.value), true, nil
}

func (r *MemoryStateRepository) SetCalendar(_ context.Context, carID int64, bookings []*models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calendars[carID] = expiring[[]*models.Booking]{value: cloneBookings(bookings), expiresAt: r.deadline(r.calendarTTL)}
	return nil
}

func (r *MemoryStateRepository) InvalidateCalendar(_ context.Context, carID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.calendars, carID)
	return nil
}

func (r *MemoryStateRepository) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.rateLimits[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[key] = entry
	}
	entry.count++

	return entry.count <= limit, nil
}

// cloneBookings copies the booking values so cached entries cannot be mutated by callers.
func cloneBookings(in []*models.Booking) []*models.Booking {
	out := make([]*models.Booking, 0, len(in))
	for _, b := range in {
		if b == nil {
			continue
		}
		c := *b
		out = append(out, &c)
	}
	return out
}
