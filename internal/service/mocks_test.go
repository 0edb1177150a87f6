package service

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"carbook/internal/models"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListBookings(ctx context.Context, carID int64) ([]*models.Booking, error) {
	args := m.Called(ctx, carID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}

func (m *mockStore) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockStore) InsertBooking(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockStore) UpdateBooking(ctx context.Context, id int64, u models.BookingUpdate) error {
	return m.Called(ctx, id, u).Error(0)
}

func (m *mockStore) DeleteBooking(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type mockObjects struct {
	mock.Mock
}

func (m *mockObjects) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, path, data, contentType)
	return args.String(0), args.Error(1)
}

func (m *mockObjects) PublicURL(storedPath string) string {
	return "http://files/" + storedPath
}

type mockCars struct {
	mock.Mock
}

func (m *mockCars) ListCars(ctx context.Context) ([]*models.Car, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Car), args.Error(1)
}

func (m *mockCars) GetCar(ctx context.Context, id int64) (*models.Car, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Car), args.Error(1)
}

func (m *mockCars) CreateCar(ctx context.Context, c *models.Car) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCars) UpdateCar(ctx context.Context, c *models.Car) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCars) DeleteCar(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type mockUsers struct {
	mock.Mock
}

func (m *mockUsers) ListUsers(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *mockUsers) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUsers) CreateUser(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUsers) UpdateUser(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}

func pngFile(t *testing.T, name string) *models.ImageFile {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 4))))
	return &models.ImageFile{Name: name, ContentType: "image/png", Data: buf.Bytes()}
}
