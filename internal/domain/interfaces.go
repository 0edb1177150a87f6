package domain

import (
	"context"
	"time"

	"carbook/internal/models"
)

// RecordStore is the authoritative storage of bookings.
type RecordStore interface {
	ListBookings(ctx context.Context, carID int64) ([]*models.Booking, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	InsertBooking(ctx context.Context, booking *models.Booking) error
	UpdateBooking(ctx context.Context, id int64, update models.BookingUpdate) error
	DeleteBooking(ctx context.Context, id int64) error
}

type CarRepository interface {
	ListCars(ctx context.Context) ([]*models.Car, error)
	GetCar(ctx context.Context, id int64) (*models.Car, error)
	CreateCar(ctx context.Context, car *models.Car) error
	UpdateCar(ctx context.Context, car *models.Car) error
	DeleteCar(ctx context.Context, id int64) error
}

type UserRepository interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error
}

// ObjectStore keeps uploaded images. Upload never overwrites an existing key.
type ObjectStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
	PublicURL(storedPath string) string
}

// CalendarInvalidator tells views of a car calendar that their data is stale.
type CalendarInvalidator interface {
	InvalidateCalendar(ctx context.Context, carID int64) error
}

// CalendarCache holds read-through copies of per-car booking lists.
type CalendarCache interface {
	CalendarInvalidator
	GetCalendar(ctx context.Context, carID int64) ([]*models.Booking, bool, error)
	SetCalendar(ctx context.Context, carID int64, bookings []*models.Booking) error
}

type DraftRepository interface {
	GetDraft(ctx context.Context, userID, carID int64) (*models.Draft, error)
	SaveDraft(ctx context.Context, draft *models.Draft) error
	ClearDraft(ctx context.Context, userID, carID int64) error
}

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// StateRepository is the full surface of the Redis/memory state backends.
type StateRepository interface {
	CalendarCache
	DraftRepository
	RateLimiter
}

type BookingService interface {
	Create(ctx context.Context, draft models.Draft, carID int64) models.Response
	Update(ctx context.Context, patch models.BookingPatch) models.Response
	Delete(ctx context.Context, booking *models.Booking) models.Response
	ResolveClickedDate(bookings []*models.Booking, date time.Time) *models.Booking
	ListBookings(ctx context.Context, carID int64) ([]*models.Booking, error)
	Calendar(ctx context.Context, carID int64) (*models.Calendar, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	Conflicts(ctx context.Context, carID int64, from, to time.Time, excludeID int64) ([]*models.Booking, error)
}

type CarService interface {
	ListCars(ctx context.Context) ([]*models.Car, error)
	GetCar(ctx context.Context, id int64) (*models.Car, error)
	CreateCar(ctx context.Context, car *models.Car) models.Response
	UpdateCar(ctx context.Context, car *models.Car) models.Response
	DeleteCar(ctx context.Context, id int64) models.Response
}

type UserService interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UpdateProfile(ctx context.Context, userID int64, patch models.UserPatch) models.Response
}
