package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"carbook/internal/auth"
	"carbook/internal/availability"
	"carbook/internal/database"
	"carbook/internal/daterange"
	"carbook/internal/domain"
	"carbook/internal/events"
	"carbook/internal/metrics"
	"carbook/internal/models"
	"carbook/internal/storage"

	"github.com/rs/zerolog"
)

var (
	ErrInvalidID    = errors.New("invalid booking id")
	ErrInvalidDraft = errors.New("invalid booking draft")
)

type BookingService struct {
	store         domain.RecordStore
	objects       domain.ObjectStore
	cache         domain.CalendarCache
	eventBus      domain.EventPublisher
	maxImageWidth int
	logger        *zerolog.Logger

	// generations считает инвалидации по машинам; заполнение кэша
	// пропускается, если за время чтения из хранилища календарь устарел.
	genMu       sync.Mutex
	generations map[int64]uint64
}

func NewBookingService(store domain.RecordStore, objects domain.ObjectStore, cache domain.CalendarCache, eventBus domain.EventPublisher, maxImageWidth int, logger *zerolog.Logger) *BookingService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &BookingService{
		store:         store,
		objects:       objects,
		cache:         cache,
		eventBus:      eventBus,
		maxImageWidth: maxImageWidth,
		logger:        logger,
		generations:   make(map[int64]uint64),
	}
}

// Create stores a new booking built from a valid draft. Images are uploaded
// before the insert; a failed upload leaves its URL empty.
func (s *BookingService) Create(ctx context.Context, draft models.Draft, carID int64) models.Response {
	if !ComputeValidity(draft) {
		return s.reject("create", ErrInvalidDraft, models.MsgInvalidDraft)
	}
	if err := daterange.Validate(draft.DateRange.From, draft.DateRange.To); err != nil {
		return s.reject("create", err, models.MsgInvalidDraft)
	}
	if carID == 0 {
		return s.reject("create", ErrInvalidID, models.MsgInvalidID)
	}

	// Клиентский ID никогда не попадает в хранилище
	booking := &models.Booking{
		CarID:       carID,
		From:        daterange.Normalize(draft.DateRange.From),
		To:          daterange.Normalize(draft.DateRange.To),
		Description: strings.TrimSpace(draft.Description),
		Summary:     strings.TrimSpace(draft.Summary),
	}
	booking.PickupImageURL = s.uploadImage(ctx, carID, storage.ImagePickup, draft.PickupImage)
	booking.DropImageURL = s.uploadImage(ctx, carID, storage.ImageDrop, draft.DropImage)

	err := s.store.InsertBooking(ctx, booking)
	s.invalidate(ctx, carID)
	if err != nil {
		return s.storeFailure("create", err, carID)
	}

	s.publish(events.EventBookingCreated, events.NewBookingPayload(booking, changedBy(ctx)))
	metrics.IncBookingOp("create", models.StatusSuccess)
	s.logger.Info().Int64("booking_id", booking.ID).Int64("car_id", carID).Msg("Booking created")
	return models.Success(models.MsgBookingCreated)
}

// Update rewrites an existing booking. URLs of images that are not replaced
// are written back as the caller supplied them.
func (s *BookingService) Update(ctx context.Context, patch models.BookingPatch) models.Response {
	if patch.ID == 0 || patch.CarID == 0 {
		return s.reject("update", ErrInvalidID, models.MsgInvalidID)
	}
	description := strings.TrimSpace(patch.Description)
	summary := strings.TrimSpace(patch.Summary)
	if description == "" || summary == "" {
		return s.reject("update", ErrInvalidDraft, models.MsgInvalidDraft)
	}

	update := models.BookingUpdate{
		Description:    description,
		Summary:        summary,
		PickupImageURL: patch.PickupImageURL,
		DropImageURL:   patch.DropImageURL,
	}
	if patch.Range != nil {
		if err := daterange.Validate(patch.Range.From, patch.Range.To); err != nil {
			return s.reject("update", err, models.MsgInvalidDraft)
		}
		update.Range = &models.DateRange{
			From: daterange.Normalize(patch.Range.From),
			To:   daterange.Normalize(patch.Range.To),
		}
	}

	if url := s.uploadImage(ctx, patch.CarID, storage.ImagePickup, patch.PickupImage); url != "" {
		update.PickupImageURL = url
	}
	if url := s.uploadImage(ctx, patch.CarID, storage.ImageDrop, patch.DropImage); url != "" {
		update.DropImageURL = url
	}

	err := s.store.UpdateBooking(ctx, patch.ID, update)
	s.invalidate(ctx, patch.CarID)
	if err != nil {
		return s.storeFailure("update", err, patch.CarID)
	}

	updated := &models.Booking{
		ID:          patch.ID,
		CarID:       patch.CarID,
		Description: description,
		Summary:     summary,
	}
	if update.Range != nil {
		updated.From, updated.To = update.Range.From, update.Range.To
	}
	s.publish(events.EventBookingUpdated, events.NewBookingPayload(updated, changedBy(ctx)))
	metrics.IncBookingOp("update", models.StatusSuccess)
	s.logger.Info().Int64("booking_id", patch.ID).Msg("Booking updated")
	return models.Success(models.MsgBookingUpdated)
}

// Delete removes a booking by ID. A missing booking is reported as a failure
// and not retried.
func (s *BookingService) Delete(ctx context.Context, booking *models.Booking) models.Response {
	if booking == nil || booking.ID == 0 {
		return s.reject("delete", ErrInvalidID, models.MsgInvalidID)
	}

	err := s.store.DeleteBooking(ctx, booking.ID)
	s.invalidate(ctx, booking.CarID)
	if err != nil {
		return s.storeFailure("delete", err, booking.CarID)
	}

	s.publish(events.EventBookingDeleted, events.NewBookingPayload(booking, changedBy(ctx)))
	metrics.IncBookingOp("delete", models.StatusSuccess)
	s.logger.Info().Int64("booking_id", booking.ID).Int64("car_id", booking.CarID).Msg("Booking deleted")
	return models.Success(models.MsgBookingDeleted)
}

// ResolveClickedDate returns the booking covering date, or nil for a free day.
func (s *BookingService) ResolveClickedDate(bookings []*models.Booking, date time.Time) *models.Booking {
	return availability.FindBookingForDate(bookings, date)
}

// ListBookings reads a car calendar through the cache.
func (s *BookingService) ListBookings(ctx context.Context, carID int64) ([]*models.Booking, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.GetCalendar(ctx, carID)
		if err != nil {
			s.logger.Warn().Err(err).Int64("car_id", carID).Msg("Calendar cache read failed")
		}
		metrics.IncCalendarCache(ok)
		if ok {
			return cached, nil
		}
	}

	gen := s.generation(carID)
	bookings, err := s.store.ListBookings(ctx, carID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if s.generation(carID) != gen {
			s.logger.Debug().Int64("car_id", carID).Msg("Calendar changed during read, cache fill skipped")
			return bookings, nil
		}
		if err := s.cache.SetCalendar(ctx, carID, bookings); err != nil {
			s.logger.Warn().Err(err).Int64("car_id", carID).Msg("Calendar cache write failed")
		}
	}
	return bookings, nil
}

func (s *BookingService) Calendar(ctx context.Context, carID int64) (*models.Calendar, error) {
	bookings, err := s.ListBookings(ctx, carID)
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []*models.Booking{}
	}
	return &models.Calendar{
		CarID:       carID,
		Bookings:    bookings,
		BlockedDays: availability.CalendarDays(bookings),
	}, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	if id == 0 {
		return nil, ErrInvalidID
	}
	return s.store.GetBooking(ctx, id)
}

// Conflicts lists bookings of the car overlapping [from, to], ignoring excludeID.
func (s *BookingService) Conflicts(ctx context.Context, carID int64, from, to time.Time, excludeID int64) ([]*models.Booking, error) {
	if err := daterange.Validate(from, to); err != nil {
		return nil, err
	}
	bookings, err := s.ListBookings(ctx, carID)
	if err != nil {
		return nil, err
	}
	return availability.NewIndex(bookings).Conflicts(from, to, excludeID), nil
}

func (s *BookingService) uploadImage(ctx context.Context, carID int64, kind storage.ImageKind, img *models.ImageFile) string {
	if img == nil || s.objects == nil {
		return ""
	}

	data, err := storage.NormalizeImage(img, s.maxImageWidth)
	if err != nil {
		metrics.IncUploadFailure(string(kind))
		s.logger.Warn().Err(err).Str("kind", string(kind)).Str("file", img.Name).Msg("Image rejected")
		return ""
	}

	stored, err := s.objects.Upload(ctx, storage.BookingImagePath(carID, kind), data, storage.PNGContentType)
	if err != nil {
		metrics.IncUploadFailure(string(kind))
		s.logger.Error().Err(err).Str("kind", string(kind)).Int64("car_id", carID).Msg("Image upload failed")
		return ""
	}
	return s.objects.PublicURL(stored)
}

// InvalidateCalendar marks the car calendar stale and drops its cached copy.
func (s *BookingService) InvalidateCalendar(ctx context.Context, carID int64) error {
	if carID == 0 {
		return nil
	}
	s.genMu.Lock()
	s.generations[carID]++
	s.genMu.Unlock()

	if s.cache == nil {
		return nil
	}
	return s.cache.InvalidateCalendar(ctx, carID)
}

func (s *BookingService) generation(carID int64) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[carID]
}

func (s *BookingService) invalidate(ctx context.Context, carID int64) {
	if err := s.InvalidateCalendar(ctx, carID); err != nil {
		s.logger.Warn().Err(err).Int64("car_id", carID).Msg("Calendar invalidation failed")
	}
}

func (s *BookingService) publish(eventType string, payload interface{}) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("Event publish failed")
	}
}

func (s *BookingService) reject(op string, err error, msg string) models.Response {
	metrics.IncBookingOp(op, models.StatusError)
	s.logger.Debug().Err(err).Str("op", op).Msg("Booking request rejected")
	return models.Failure(msg)
}

func (s *BookingService) storeFailure(op string, err error, carID int64) models.Response {
	metrics.IncBookingOp(op, models.StatusError)
	if errors.Is(err, database.ErrRangeConflict) {
		s.logger.Info().Err(err).Str("op", op).Int64("car_id", carID).Msg("Booking range conflict")
		return models.Failure(models.MsgRangeConflict)
	}
	s.logger.Error().Err(err).Str("op", op).Int64("car_id", carID).Msg("Booking store failed")
	return models.Failure(models.MsgServerError)
}

func changedBy(ctx context.Context) int64 {
	id, _ := auth.UserIDFromContext(ctx)
	return id
}
