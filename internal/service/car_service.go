package service

import (
	"context"
	"strings"
	"time"

	"carbook/internal/domain"
	"carbook/internal/events"
	"carbook/internal/metrics"
	"carbook/internal/models"
	"carbook/internal/storage"

	"github.com/rs/zerolog"
)

type CarService struct {
	cars          domain.CarRepository
	objects       domain.ObjectStore
	invalidator   domain.CalendarInvalidator
	eventBus      domain.EventPublisher
	maxImageWidth int
	logger        *zerolog.Logger
}

func NewCarService(cars domain.CarRepository, objects domain.ObjectStore, invalidator domain.CalendarInvalidator, eventBus domain.EventPublisher, maxImageWidth int, logger *zerolog.Logger) *CarService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &CarService{
		cars:          cars,
		objects:       objects,
		invalidator:   invalidator,
		eventBus:      eventBus,
		maxImageWidth: maxImageWidth,
		logger:        logger,
	}
}

func (s *CarService) ListCars(ctx context.Context) ([]*models.Car, error) {
	return s.cars.ListCars(ctx)
}

func (s *CarService) GetCar(ctx context.Context, id int64) (*models.Car, error) {
	if id == 0 {
		return nil, ErrInvalidID
	}
	return s.cars.GetCar(ctx, id)
}

func (s *CarService) CreateCar(ctx context.Context, car *models.Car) models.Response {
	if car == nil || strings.TrimSpace(car.Name) == "" {
		return models.Failure(models.MsgInvalidCar)
	}
	car.ID = 0
	car.Name = strings.TrimSpace(car.Name)
	if url := s.uploadImage(ctx, car.Image); url != "" {
		car.ImageURL = url
	}

	if err := s.cars.CreateCar(ctx, car); err != nil {
		s.logger.Error().Err(err).Str("name", car.Name).Msg("Failed to create car")
		return models.Failure(models.MsgServerError)
	}

	s.publish(events.EventCarCreated, car)
	return models.Success(models.MsgCarCreated)
}

func (s *CarService) UpdateCar(ctx context.Context, car *models.Car) models.Response {
	if car == nil || car.ID == 0 {
		return models.Failure(models.MsgInvalidID)
	}
	if strings.TrimSpace(car.Name) == "" {
		return models.Failure(models.MsgInvalidCar)
	}
	car.Name = strings.TrimSpace(car.Name)
	if url := s.uploadImage(ctx, car.Image); url != "" {
		car.ImageURL = url
	}

	if err := s.cars.UpdateCar(ctx, car); err != nil {
		s.logger.Error().Err(err).Int64("car_id", car.ID).Msg("Failed to update car")
		return models.Failure(models.MsgServerError)
	}

	s.publish(events.EventCarUpdated, car)
	return models.Success(models.MsgCarUpdated)
}

// DeleteCar removes the car together with its bookings.
func (s *CarService) DeleteCar(ctx context.Context, id int64) models.Response {
	if id == 0 {
		return models.Failure(models.MsgInvalidID)
	}

	err := s.cars.DeleteCar(ctx, id)
	if s.invalidator != nil {
		if ierr := s.invalidator.InvalidateCalendar(ctx, id); ierr != nil {
			s.logger.Warn().Err(ierr).Int64("car_id", id).Msg("Calendar invalidation failed")
		}
	}
	if err != nil {
		s.logger.Error().Err(err).Int64("car_id", id).Msg("Failed to delete car")
		return models.Failure(models.MsgServerError)
	}

	s.publish(events.EventCarDeleted, &models.Car{ID: id})
	return models.Success(models.MsgCarDeleted)
}

func (s *CarService) uploadImage(ctx context.Context, img *models.ImageFile) string {
	if img == nil || s.objects == nil {
		return ""
	}
	data, err := storage.NormalizeImage(img, s.maxImageWidth)
	if err != nil {
		metrics.IncUploadFailure("car")
		s.logger.Warn().Err(err).Str("file", img.Name).Msg("Car image rejected")
		return ""
	}
	stored, err := s.objects.Upload(ctx, storage.CarImagePath(), data, storage.PNGContentType)
	if err != nil {
		metrics.IncUploadFailure("car")
		s.logger.Error().Err(err).Msg("Car image upload failed")
		return ""
	}
	return s.objects.PublicURL(stored)
}

func (s *CarService) publish(eventType string, car *models.Car) {
	if s.eventBus == nil {
		return
	}
	payload := events.CarEventPayload{CarID: car.ID, Name: car.Name, OccurredAt: time.Now().UTC()}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("Event publish failed")
	}
}
