package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"carbook/internal/config"
	"carbook/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisStateRepository struct {
	client      *redis.Client
	draftTTL    time.Duration
	calendarTTL time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisStateRepository(client *redis.Client, draftTTL, calendarTTL time.Duration) *RedisStateRepository {
	return &RedisStateRepository{
		client:      client,
		draftTTL:    draftTTL,
		calendarTTL: calendarTTL,
	}
}

func draftKey(userID, carID int64) string {
	return fmt.Sprintf("draft:%d:%d", userID, carID)
}

func calendarKey(carID int64) string {
	return fmt.Sprintf("calendar:%d", carID)
}

func rateLimitKey(key string) string {
	return "rate_limit:" + key
}

func (r *RedisStateRepository) GetDraft(ctx context.Context, userID, carID int64) (*models.Draft, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, draftKey(userID, carID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft from redis: %w", err)
	}

	var draft models.Draft
	if err := json.Unmarshal(val, &draft); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	return &draft, nil
}

func (r *RedisStateRepository) SaveDraft(ctx context.Context, draft *models.Draft) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	if err := r.client.Set(ctx, draftKey(draft.UserID, draft.CarID), data, r.draftTTL).Err(); err != nil {
		return fmt.Errorf("failed to set draft in redis: %w", err)
	}
	return nil
}

func (r *RedisStateRepository) ClearDraft(ctx context.Context, userID, carID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, draftKey(userID, carID)).Err(); err != nil {
		return fmt.Errorf("failed to delete draft from redis: %w", err)
	}
	return nil
}

func (r *RedisStateRepository) GetCalendar(ctx context.Context, carID int64) ([]*models.Booking, bool, error) {
	if r.client == nil {
		return nil, false, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, calendarKey(carID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get calendar from redis: %w", err)
	}

	var bookings []*models.Booking
	if err := json.Unmarshal(val, &bookings); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal calendar: %w", err)
	}
	return bookings, true, nil
}

func (r *RedisStateRepository) SetCalendar(ctx context.Context, carID int64, bookings []*models.Booking) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if bookings == nil {
		bookings = []*models.Booking{}
	}
	data, err := json.Marshal(bookings)
	if err != nil {
		return fmt.Errorf("failed to marshal calendar: %w", err)
	}
	if err := r.client.Set(ctx, calendarKey(carID), data, r.calendarTTL).Err(); err != nil {
		return fmt.Errorf("failed to set calendar in redis: %w", err)
	}
	return nil
}

func (r *RedisStateRepository) InvalidateCalendar(ctx context.Context, carID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, calendarKey(carID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate calendar: %w", err)
	}
	return nil
}

func (r *RedisStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	rk := rateLimitKey(key)

	count, err := r.client.Incr(ctx, rk).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, rk, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return count <= int64(limit), nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
