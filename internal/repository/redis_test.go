package repository

import (
	"context"
	"testing"
	"time"

	"carbook/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *RedisStateRepository) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })

	return s, NewRedisStateRepository(client, time.Hour, 10*time.Minute)
}

func TestRedisStateRepository_Drafts(t *testing.T) {
	s, repo := setupRedis(t)
	ctx := context.Background()

	t.Run("SaveAndGet", func(t *testing.T) {
		draft := &models.Draft{
			UserID:      1,
			CarID:       7,
			Description: "weekend",
			Summary:     "client",
			DateRange: &models.DateRange{
				From: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
				To:   time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
			},
			PickupImage: &models.ImageFile{Name: "p.png", ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}},
			IsValid:     true,
		}
		require.NoError(t, repo.SaveDraft(ctx, draft))

		got, err := repo.GetDraft(ctx, 1, 7)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "weekend", got.Description)
		assert.True(t, got.DateRange.From.Equal(draft.DateRange.From))
		require.NotNil(t, got.PickupImage)
		assert.Equal(t, draft.PickupImage.Data, got.PickupImage.Data)
		assert.True(t, got.IsValid)

		assert.Equal(t, time.Hour, s.TTL(draftKey(1, 7)))
	})

	t.Run("DraftsAreScopedPerCar", func(t *testing.T) {
		got, err := repo.GetDraft(ctx, 1, 8)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Clear", func(t *testing.T) {
		require.NoError(t, repo.ClearDraft(ctx, 1, 7))
		got, err := repo.GetDraft(ctx, 1, 7)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Expires", func(t *testing.T) {
		require.NoError(t, repo.SaveDraft(ctx, &models.Draft{UserID: 2, CarID: 7}))
		s.FastForward(2 * time.Hour)
		got, err := repo.GetDraft(ctx, 2, 7)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestRedisStateRepository_Calendar(t *testing.T) {
	_, repo := setupRedis(t)
	ctx := context.Background()

	_, ok, err := repo.GetCalendar(ctx, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	bookings := []*models.Booking{{ID: 1, CarID: 3, Description: "a"}}
	require.NoError(t, repo.SetCalendar(ctx, 3, bookings))

	got, ok, err := repo.GetCalendar(ctx, 3)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)

	require.NoError(t, repo.SetCalendar(ctx, 4, nil))
	got, ok, err = repo.GetCalendar(ctx, 4)
	require.NoError(t, err)
	assert.True(t, ok, "empty calendars are cached too")
	assert.Empty(t, got)

	require.NoError(t, repo.InvalidateCalendar(ctx, 3))
	_, ok, err = repo.GetCalendar(ctx, 3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStateRepository_RateLimit(t *testing.T) {
	s, repo := setupRedis(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := repo.CheckRateLimit(ctx, "login:10.0.0.1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := repo.CheckRateLimit(ctx, "login:10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = repo.CheckRateLimit(ctx, "login:10.0.0.2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	s.FastForward(2 * time.Minute)
	allowed, err = repo.CheckRateLimit(ctx, "login:10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisStateRepository_Errors(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: s.Addr(), MaxRetries: -1})
	defer client.Close()
	repo := NewRedisStateRepository(client, time.Hour, time.Hour)
	ctx := context.Background()
	s.Close()

	_, err = repo.GetDraft(ctx, 1, 1)
	assert.Error(t, err)
	_, _, err = repo.GetCalendar(ctx, 1)
	assert.Error(t, err)
	assert.Error(t, repo.InvalidateCalendar(ctx, 1))

	nilRepo := NewRedisStateRepository(nil, time.Hour, time.Hour)
	assert.Error(t, nilRepo.SaveDraft(ctx, &models.Draft{}))
}

func TestPing(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(configFor(s.Addr()))
	defer Close(client)

	assert.NoError(t, Ping(context.Background(), client))
}
