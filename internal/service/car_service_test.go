package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"carbook/internal/models"
	"carbook/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newCarFixture() (*CarService, *mockCars, *mockObjects, *repository.MemoryStateRepository) {
	cars := new(mockCars)
	objects := new(mockObjects)
	cache := repository.NewMemoryStateRepository(time.Hour, time.Hour)
	logger := zerolog.Nop()
	return NewCarService(cars, objects, cache, nil, 0, &logger), cars, objects, cache
}

func TestCarService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("WithImage", func(t *testing.T) {
		svc, cars, objects, _ := newCarFixture()
		objects.On("Upload", ctx, mock.AnythingOfType("string"), mock.Anything, "image/png").
			Return("public/car-x.png", nil).Once()
		cars.On("CreateCar", ctx, mock.MatchedBy(func(c *models.Car) bool {
			return c.Name == "Octavia" && c.ImageURL == "http://files/public/car-x.png"
		})).Return(nil).Once()

		resp := svc.CreateCar(ctx, &models.Car{Name: " Octavia ", Image: pngFile(t, "car.png")})

		assert.Equal(t, models.Success(models.MsgCarCreated), resp)
		cars.AssertExpectations(t)
	})

	t.Run("NameRequired", func(t *testing.T) {
		svc, cars, _, _ := newCarFixture()

		assert.Equal(t, models.Failure(models.MsgInvalidCar), svc.CreateCar(ctx, &models.Car{}))
		cars.AssertNotCalled(t, "CreateCar", mock.Anything, mock.Anything)
	})

	t.Run("StoreError", func(t *testing.T) {
		svc, cars, _, _ := newCarFixture()
		cars.On("CreateCar", ctx, mock.Anything).Return(errors.New("boom")).Once()

		assert.Equal(t, models.Failure(models.MsgServerError), svc.CreateCar(ctx, &models.Car{Name: "A"}))
	})
}

func TestCarService_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("UpdateNeedsID", func(t *testing.T) {
		svc, cars, _, _ := newCarFixture()

		assert.Equal(t, models.Failure(models.MsgInvalidID), svc.UpdateCar(ctx, &models.Car{Name: "A"}))
		cars.AssertNotCalled(t, "UpdateCar", mock.Anything, mock.Anything)
	})

	t.Run("UpdateKeepsImage", func(t *testing.T) {
		svc, cars, objects, _ := newCarFixture()
		cars.On("UpdateCar", ctx, mock.MatchedBy(func(c *models.Car) bool {
			return c.ImageURL == "http://files/old.png"
		})).Return(nil).Once()

		resp := svc.UpdateCar(ctx, &models.Car{ID: 3, Name: "A", ImageURL: "http://files/old.png"})

		assert.Equal(t, models.Success(models.MsgCarUpdated), resp)
		objects.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("DeleteInvalidatesCalendar", func(t *testing.T) {
		svc, cars, _, cache := newCarFixture()
		require.NoError(t, cache.SetCalendar(ctx, 3, []*models.Booking{{ID: 1}}))
		cars.On("DeleteCar", ctx, int64(3)).Return(nil).Once()

		assert.Equal(t, models.Success(models.MsgCarDeleted), svc.DeleteCar(ctx, 3))

		_, ok, err := cache.GetCalendar(ctx, 3)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("DeleteZeroID", func(t *testing.T) {
		svc, cars, _, _ := newCarFixture()

		assert.Equal(t, models.Failure(models.MsgInvalidID), svc.DeleteCar(ctx, 0))
		cars.AssertNotCalled(t, "DeleteCar", mock.Anything, mock.Anything)
	})
}
