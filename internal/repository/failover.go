package repository

import (
	"context"
	"sync/atomic"
	"time"

	"carbook/internal/domain"
	"carbook/internal/models"

	"github.com/rs/zerolog"
)

const defaultRecoveryInterval = time.Minute

// FailoverStateRepository sends calls to the primary backend and switches to
// the fallback after the first primary error. The primary is probed again
// once per recovery interval.
type FailoverStateRepository struct {
	primary   domain.StateRepository
	fallback  domain.StateRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	recovery  time.Duration
	now       func() time.Time
}

func NewFailoverStateRepository(primary, fallback domain.StateRepository, logger *zerolog.Logger) *FailoverStateRepository {
	return &FailoverStateRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		recovery: defaultRecoveryInterval,
		now:      time.Now,
	}
}

// IsDegraded reports whether calls are currently served by the fallback.
func (r *FailoverStateRepository) IsDegraded() bool {
	return r.isDown.Load()
}

func (r *FailoverStateRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	last := r.lastCheck.Load()
	now := r.now().UnixNano()
	if time.Duration(now-last) < r.recovery {
		return false
	}
	// только один вызывающий делает пробный запрос
	return r.lastCheck.CompareAndSwap(last, now)
}

func (r *FailoverStateRepository) markDown(op string, err error) {
	r.lastCheck.Store(r.now().UnixNano())
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Str("op", op).Msg("Primary state repository failed, falling back to memory")
	}
}

func (r *FailoverStateRepository) markUp() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary state repository recovered")
	}
}

func (r *FailoverStateRepository) GetDraft(ctx context.Context, userID, carID int64) (*models.Draft, error) {
	if r.usePrimary() {
		draft, err := r.primary.GetDraft(ctx, userID, carID)
		if err == nil {
			r.markUp()
			return draft, nil
		}
		r.markDown("get_draft", err)
	}
	return r.fallback.GetDraft(ctx, userID, carID)
}

func (r *FailoverStateRepository) SaveDraft(ctx context.Context, draft *models.Draft) error {
	if r.usePrimary() {
		err := r.primary.SaveDraft(ctx, draft)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown("save_draft", err)
	}
	return r.fallback.SaveDraft(ctx, draft)
}

func (r *FailoverStateRepository) ClearDraft(ctx context.Context, userID, carID int64) error {
	// черновик мог быть сохранен в любом из хранилищ
	fallbackErr := r.fallback.ClearDraft(ctx, userID, carID)
	if r.usePrimary() {
		err := r.primary.ClearDraft(ctx, userID, carID)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown("clear_draft", err)
	}
	return fallbackErr
}

func (r *FailoverStateRepository) GetCalendar(ctx context.Context, carID int64) ([]*models.Booking, bool, error) {
	if r.usePrimary() {
		bookings, ok, err := r.primary.GetCalendar(ctx, carID)
		if err == nil {
			r.markUp()
			return bookings, ok, nil
		}
		r.markDown("get_calendar", err)
	}
	return r.fallback.GetCalendar(ctx, carID)
}

func (r *FailoverStateRepository) SetCalendar(ctx context.Context, carID int64, bookings []*models.Booking) error {
	if r.usePrimary() {
		err := r.primary.SetCalendar(ctx, carID, bookings)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown("set_calendar", err)
	}
	return r.fallback.SetCalendar(ctx, carID, bookings)
}

// InvalidateCalendar always clears the fallback copy as well, so a recovered
// primary is never shadowed by data cached during an outage.
func (r *FailoverStateRepository) InvalidateCalendar(ctx context.Context, carID int64) error {
	fallbackErr := r.fallback.InvalidateCalendar(ctx, carID)
	if r.usePrimary() {
		err := r.primary.InvalidateCalendar(ctx, carID)
		if err == nil {
			r.markUp()
			return fallbackErr
		}
		r.markDown("invalidate_calendar", err)
	}
	return fallbackErr
}

func (r *FailoverStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			r.markUp()
			return allowed, nil
		}
		r.markDown("check_rate_limit", err)
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}

var (
	_ domain.StateRepository = (*RedisStateRepository)(nil)
	_ domain.StateRepository = (*MemoryStateRepository)(nil)
	_ domain.StateRepository = (*FailoverStateRepository)(nil)
)
