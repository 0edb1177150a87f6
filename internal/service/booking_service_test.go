package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"carbook/internal/auth"
	"carbook/internal/database"
	"carbook/internal/events"
	"carbook/internal/models"
	"carbook/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

type bookingFixture struct {
	store   *mockStore
	objects *mockObjects
	cache   *repository.MemoryStateRepository
	events  []*events.Event
	svc     *BookingService
}

func newBookingFixture() *bookingFixture {
	f := &bookingFixture{
		store:   new(mockStore),
		objects: new(mockObjects),
		cache:   repository.NewMemoryStateRepository(time.Hour, time.Hour),
	}
	bus := events.NewEventBus(nil)
	bus.SubscribeAll(func(e *events.Event) error {
		f.events = append(f.events, e)
		return nil
	})
	logger := zerolog.Nop()
	f.svc = NewBookingService(f.store, f.objects, f.cache, bus, 0, &logger)
	return f
}

// primeCache stores a marker calendar so tests can tell whether it was invalidated.
func (f *bookingFixture) primeCache(t *testing.T, carID int64) {
	t.Helper()
	require.NoError(t, f.cache.SetCalendar(context.Background(), carID, []*models.Booking{{ID: 999, CarID: carID}}))
}

func (f *bookingFixture) cached(t *testing.T, carID int64) bool {
	t.Helper()
	_, ok, err := f.cache.GetCalendar(context.Background(), carID)
	require.NoError(t, err)
	return ok
}

func validDraft() models.Draft {
	return models.Draft{
		CarID:       7,
		BookingID:   55,
		DateRange:   &models.DateRange{From: day("2024-03-01"), To: day("2024-03-03")},
		Description: "Airport run",
		Summary:     "Full tank",
		IsValid:     true,
	}
}

func isPickup(p string) bool { return strings.Contains(p, "-booking-pickup-") }
func isDrop(p string) bool   { return strings.Contains(p, "-booking-drop-") }

func TestBookingService_Create(t *testing.T) {
	ctx := auth.WithUserID(context.Background(), 3)

	t.Run("Success", func(t *testing.T) {
		f := newBookingFixture()
		f.primeCache(t, 7)

		f.store.On("InsertBooking", ctx, mock.MatchedBy(func(b *models.Booking) bool {
			return b.ID == 0 && b.CarID == 7 && b.Description == "Airport run" &&
				b.From.Equal(day("2024-03-01")) && b.To.Equal(day("2024-03-03"))
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*models.Booking).ID = 42
		}).Return(nil).Once()

		resp := f.svc.Create(ctx, validDraft(), 7)

		assert.Equal(t, models.Success(models.MsgBookingCreated), resp)
		assert.False(t, f.cached(t, 7))
		require.Len(t, f.events, 1)
		assert.Equal(t, events.EventBookingCreated, f.events[0].Type)
		assert.Equal(t, "car-7", f.events[0].Key)
		assert.Contains(t, string(f.events[0].Payload), `"booking_id":42`)
		assert.Contains(t, string(f.events[0].Payload), `"changed_by_id":3`)
		f.store.AssertExpectations(t)
	})

	t.Run("InvalidDraftMakesNoRemoteCalls", func(t *testing.T) {
		f := newBookingFixture()
		f.primeCache(t, 7)

		draft := validDraft()
		draft.Summary = "   "
		resp := f.svc.Create(ctx, draft, 7)

		assert.Equal(t, models.Failure(models.MsgInvalidDraft), resp)
		assert.True(t, f.cached(t, 7))
		assert.Empty(t, f.events)
		f.store.AssertNotCalled(t, "InsertBooking", mock.Anything, mock.Anything)
		f.objects.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("MissingRange", func(t *testing.T) {
		f := newBookingFixture()
		draft := validDraft()
		draft.DateRange = nil

		assert.Equal(t, models.Failure(models.MsgInvalidDraft), f.svc.Create(ctx, draft, 7))
		f.store.AssertNotCalled(t, "InsertBooking", mock.Anything, mock.Anything)
	})

	t.Run("ReversedRange", func(t *testing.T) {
		f := newBookingFixture()
		draft := validDraft()
		draft.DateRange = &models.DateRange{From: day("2024-03-05"), To: day("2024-03-01")}

		assert.Equal(t, models.Failure(models.MsgInvalidDraft), f.svc.Create(ctx, draft, 7))
		f.store.AssertNotCalled(t, "InsertBooking", mock.Anything, mock.Anything)
	})

	t.Run("PickupUploadFailureKeepsGoing", func(t *testing.T) {
		f := newBookingFixture()

		f.objects.On("Upload", ctx, mock.MatchedBy(isPickup), mock.Anything, "image/png").
			Return("", errors.New("bucket unavailable")).Once()
		f.objects.On("Upload", ctx, mock.MatchedBy(isDrop), mock.Anything, "image/png").
			Return("public/car-7-booking-drop-x.png", nil).Once()

		var inserted *models.Booking
		f.store.On("InsertBooking", ctx, mock.Anything).Run(func(args mock.Arguments) {
			inserted = args.Get(1).(*models.Booking)
			inserted.ID = 43
		}).Return(nil).Once()

		draft := validDraft()
		draft.PickupImage = pngFile(t, "pickup.png")
		draft.DropImage = pngFile(t, "drop.jpg")

		resp := f.svc.Create(ctx, draft, 7)

		assert.True(t, resp.OK())
		require.NotNil(t, inserted)
		assert.Empty(t, inserted.PickupImageURL)
		assert.Equal(t, "http://files/public/car-7-booking-drop-x.png", inserted.DropImageURL)
		f.objects.AssertExpectations(t)
	})

	t.Run("RejectedImageIsNotUploaded", func(t *testing.T) {
		f := newBookingFixture()
		f.store.On("InsertBooking", ctx, mock.Anything).Return(nil).Once()

		draft := validDraft()
		draft.PickupImage = &models.ImageFile{Name: "notes.txt", Data: []byte("hello")}

		assert.True(t, f.svc.Create(ctx, draft, 7).OK())
		f.objects.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("RangeConflict", func(t *testing.T) {
		f := newBookingFixture()
		f.primeCache(t, 7)
		f.store.On("InsertBooking", ctx, mock.Anything).Return(database.ErrRangeConflict).Once()

		resp := f.svc.Create(ctx, validDraft(), 7)

		assert.Equal(t, models.Failure(models.MsgRangeConflict), resp)
		assert.False(t, f.cached(t, 7))
		assert.Empty(t, f.events)
	})

	t.Run("StoreFailure", func(t *testing.T) {
		f := newBookingFixture()
		f.store.On("InsertBooking", ctx, mock.Anything).Return(errors.New("disk full")).Once()

		assert.Equal(t, models.Failure(models.MsgServerError), f.svc.Create(ctx, validDraft(), 7))
	})
}

func TestBookingService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("MissingIDMakesNoStoreCall", func(t *testing.T) {
		f := newBookingFixture()
		f.primeCache(t, 7)

		resp := f.svc.Update(ctx, models.BookingPatch{CarID: 7, Description: "a", Summary: "b"})

		assert.Equal(t, models.Failure(models.MsgInvalidID), resp)
		assert.True(t, f.cached(t, 7))
		f.store.AssertNotCalled(t, "UpdateBooking", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("MissingCarIDMakesNoRemoteCalls", func(t *testing.T) {
		f := newBookingFixture()

		resp := f.svc.Update(ctx, models.BookingPatch{
			ID: 10, Description: "a", Summary: "b",
			DropImage: pngFile(t, "drop.png"),
		})

		assert.Equal(t, models.Failure(models.MsgInvalidID), resp)
		f.store.AssertNotCalled(t, "UpdateBooking", mock.Anything, mock.Anything, mock.Anything)
		f.objects.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		assert.Empty(t, f.events)
	})

	t.Run("KeepsExistingURLs", func(t *testing.T) {
		f := newBookingFixture()
		f.primeCache(t, 7)

		want := models.BookingUpdate{
			Description:    "New text",
			Summary:        "New summary",
			PickupImageURL: "http://files/old-pickup.png",
			DropImageURL:   "http://files/old-drop.png",
		}
		f.store.On("UpdateBooking", ctx, int64(10), want).Return(nil).Once()

		resp := f.svc.Update(ctx, models.BookingPatch{
			ID:             10,
			CarID:          7,
			Description:    " New text ",
			Summary:        "New summary",
			PickupImageURL: "http://files/old-pickup.png",
			DropImageURL:   "http://files/old-drop.png",
		})

		assert.Equal(t, models.Success(models.MsgBookingUpdated), resp)
		assert.False(t, f.cached(t, 7))
		require.Len(t, f.events, 1)
		assert.Equal(t, events.EventBookingUpdated, f.events[0].Type)
		f.store.AssertExpectations(t)
	})

	t.Run("NewImageReplacesURL", func(t *testing.T) {
		f := newBookingFixture()
		f.objects.On("Upload", ctx, mock.MatchedBy(isDrop), mock.Anything, "image/png").
			Return("public/new-drop.png", nil).Once()
		f.store.On("UpdateBooking", ctx, int64(10), mock.MatchedBy(func(u models.BookingUpdate) bool {
			return u.PickupImageURL == "http://files/old-pickup.png" && u.DropImageURL == "http://files/public/new-drop.png"
		})).Return(nil).Once()

		resp := f.svc.Update(ctx, models.BookingPatch{
			ID:             10,
			CarID:          7,
			Description:    "d",
			Summary:        "s",
			PickupImageURL: "http://files/old-pickup.png",
			DropImageURL:   "http://files/old-drop.png",
			DropImage:      pngFile(t, "drop.png"),
		})

		assert.True(t, resp.OK())
		f.store.AssertExpectations(t)
		f.objects.AssertExpectations(t)
	})

	t.Run("Reschedule", func(t *testing.T) {
		f := newBookingFixture()
		f.store.On("UpdateBooking", ctx, int64(10), mock.MatchedBy(func(u models.BookingUpdate) bool {
			return u.Range != nil && u.Range.From.Equal(day("2024-04-01")) && u.Range.To.Equal(day("2024-04-02"))
		})).Return(nil).Once()

		resp := f.svc.Update(ctx, models.BookingPatch{
			ID: 10, CarID: 7, Description: "d", Summary: "s",
			Range: &models.DateRange{From: day("2024-04-01").Add(15 * time.Hour), To: day("2024-04-02")},
		})

		assert.True(t, resp.OK())
		f.store.AssertExpectations(t)
	})

	t.Run("InvalidRescheduleIsLocal", func(t *testing.T) {
		f := newBookingFixture()

		resp := f.svc.Update(ctx, models.BookingPatch{
			ID: 10, CarID: 7, Description: "d", Summary: "s",
			Range: &models.DateRange{From: day("2024-04-03"), To: day("2024-04-02")},
		})

		assert.Equal(t, models.Failure(models.MsgInvalidDraft), resp)
		f.store.AssertNotCalled(t, "UpdateBooking", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("NotFound", func(t *testing.T) {
		f := newBookingFixture()
		f.store.On("UpdateBooking", ctx, int64(10), mock.Anything).Return(database.ErrNotFound).Once()

		resp := f.svc.Update(ctx, models.BookingPatch{ID: 10, CarID: 7, Description: "d", Summary: "s"})

		assert.Equal(t, models.Failure(models.MsgServerError), resp)
		assert.Empty(t, f.events)
	})
}

func TestBookingService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newBookingFixture()
		f.primeCache(t, 7)
		f.store.On("DeleteBooking", ctx, int64(10)).Return(nil).Once()

		resp := f.svc.Delete(ctx, &models.Booking{ID: 10, CarID: 7})

		assert.Equal(t, models.Success(models.MsgBookingDeleted), resp)
		assert.False(t, f.cached(t, 7))
		require.Len(t, f.events, 1)
		assert.Equal(t, events.EventBookingDeleted, f.events[0].Type)
	})

	t.Run("NotFoundIsNotRetried", func(t *testing.T) {
		f := newBookingFixture()
		f.primeCache(t, 7)
		f.store.On("DeleteBooking", ctx, int64(10)).Return(database.ErrNotFound).Once()

		resp := f.svc.Delete(ctx, &models.Booking{ID: 10, CarID: 7})

		assert.Equal(t, models.Failure(models.MsgServerError), resp)
		assert.False(t, f.cached(t, 7))
		f.store.AssertNumberOfCalls(t, "DeleteBooking", 1)
	})

	t.Run("MissingID", func(t *testing.T) {
		f := newBookingFixture()

		assert.Equal(t, models.Failure(models.MsgInvalidID), f.svc.Delete(ctx, nil))
		assert.Equal(t, models.Failure(models.MsgInvalidID), f.svc.Delete(ctx, &models.Booking{CarID: 7}))
		f.store.AssertNotCalled(t, "DeleteBooking", mock.Anything, mock.Anything)
	})
}

func TestBookingService_ReadSide(t *testing.T) {
	ctx := context.Background()
	bookings := []*models.Booking{
		{ID: 1, CarID: 7, From: day("2024-03-01"), To: day("2024-03-03")},
		{ID: 2, CarID: 7, From: day("2024-03-03"), To: day("2024-03-04")},
	}

	t.Run("ListBookingsFillsCache", func(t *testing.T) {
		f := newBookingFixture()
		f.store.On("ListBookings", ctx, int64(7)).Return(bookings, nil).Once()

		got, err := f.svc.ListBookings(ctx, 7)
		require.NoError(t, err)
		assert.Len(t, got, 2)

		got, err = f.svc.ListBookings(ctx, 7)
		require.NoError(t, err)
		assert.Len(t, got, 2)
		f.store.AssertNumberOfCalls(t, "ListBookings", 1)
	})

	t.Run("InvalidationDuringReadSkipsCacheFill", func(t *testing.T) {
		f := newBookingFixture()
		stale := []*models.Booking{bookings[0]}
		f.store.On("ListBookings", ctx, int64(7)).Run(func(args mock.Arguments) {
			// параллельная запись успела инвалидировать календарь
			require.NoError(t, f.svc.InvalidateCalendar(ctx, 7))
		}).Return(stale, nil).Once()
		f.store.On("ListBookings", ctx, int64(7)).Return(bookings, nil).Once()

		got, err := f.svc.ListBookings(ctx, 7)
		require.NoError(t, err)
		assert.Len(t, got, 1)
		assert.False(t, f.cached(t, 7))

		got, err = f.svc.ListBookings(ctx, 7)
		require.NoError(t, err)
		assert.Len(t, got, 2)
		assert.True(t, f.cached(t, 7))
		f.store.AssertNumberOfCalls(t, "ListBookings", 2)
	})

	t.Run("InvalidateCalendarIgnoresZeroCar", func(t *testing.T) {
		f := newBookingFixture()
		f.primeCache(t, 7)
		assert.NoError(t, f.svc.InvalidateCalendar(ctx, 0))
		assert.True(t, f.cached(t, 7))

		assert.NoError(t, f.svc.InvalidateCalendar(ctx, 7))
		assert.False(t, f.cached(t, 7))
	})

	t.Run("StoreError", func(t *testing.T) {
		f := newBookingFixture()
		f.store.On("ListBookings", ctx, int64(7)).Return(nil, errors.New("locked")).Once()

		_, err := f.svc.ListBookings(ctx, 7)
		assert.Error(t, err)
		assert.False(t, f.cached(t, 7))
	})

	t.Run("Calendar", func(t *testing.T) {
		f := newBookingFixture()
		f.store.On("ListBookings", ctx, int64(7)).Return(bookings, nil).Once()

		cal, err := f.svc.Calendar(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(7), cal.CarID)
		require.Len(t, cal.BlockedDays, 4)
		assert.Equal(t, models.CalendarDay{Date: "2024-03-03", BookingID: 1}, cal.BlockedDays[2])
	})

	t.Run("EmptyCalendar", func(t *testing.T) {
		f := newBookingFixture()
		f.store.On("ListBookings", ctx, int64(8)).Return(nil, nil).Once()

		cal, err := f.svc.Calendar(ctx, 8)
		require.NoError(t, err)
		assert.NotNil(t, cal.Bookings)
		assert.Empty(t, cal.BlockedDays)
	})

	t.Run("ResolveClickedDate", func(t *testing.T) {
		f := newBookingFixture()

		assert.Equal(t, int64(1), f.svc.ResolveClickedDate(bookings, day("2024-03-03")).ID)
		assert.Equal(t, int64(2), f.svc.ResolveClickedDate(bookings, day("2024-03-04")).ID)
		assert.Nil(t, f.svc.ResolveClickedDate(bookings, day("2024-03-05")))
	})

	t.Run("Conflicts", func(t *testing.T) {
		f := newBookingFixture()
		f.store.On("ListBookings", ctx, int64(7)).Return(bookings, nil).Once()

		got, err := f.svc.Conflicts(ctx, 7, day("2024-03-04"), day("2024-03-06"), 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, int64(2), got[0].ID)

		got, err = f.svc.Conflicts(ctx, 7, day("2024-03-04"), day("2024-03-06"), 2)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("GetBookingZeroID", func(t *testing.T) {
		f := newBookingFixture()

		_, err := f.svc.GetBooking(ctx, 0)
		assert.ErrorIs(t, err, ErrInvalidID)
	})
}
