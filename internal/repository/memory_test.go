package repository

import (
	"context"
	"testing"
	"time"

	"carbook/internal/config"
	"carbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func configFor(addr string) config.RedisConfig {
	return config.RedisConfig{Address: addr}
}

func TestMemoryStateRepository(t *testing.T) {
	repo := NewMemoryStateRepository(time.Hour, time.Minute)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	t.Run("Drafts", func(t *testing.T) {
		draft := &models.Draft{UserID: 1, CarID: 2, Description: "x"}
		require.NoError(t, repo.SaveDraft(ctx, draft))

		draft.Description = "mutated after save"
		got, err := repo.GetDraft(ctx, 1, 2)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "x", got.Description)

		now = now.Add(2 * time.Hour)
		got, err = repo.GetDraft(ctx, 1, 2)
		require.NoError(t, err)
		assert.Nil(t, got, "expired")

		require.NoError(t, repo.SaveDraft(ctx, &models.Draft{UserID: 1, CarID: 2}))
		require.NoError(t, repo.ClearDraft(ctx, 1, 2))
		got, _ = repo.GetDraft(ctx, 1, 2)
		assert.Nil(t, got)
	})

	t.Run("Calendar", func(t *testing.T) {
		require.NoError(t, repo.SetCalendar(ctx, 5, []*models.Booking{{ID: 9, CarID: 5}}))

		got, ok, err := repo.GetCalendar(ctx, 5)
		require.NoError(t, err)
		require.True(t, ok)
		got[0].Description = "mutated"

		again, _, _ := repo.GetCalendar(ctx, 5)
		assert.Empty(t, again[0].Description)

		require.NoError(t, repo.InvalidateCalendar(ctx, 5))
		_, ok, _ = repo.GetCalendar(ctx, 5)
		assert.False(t, ok)

		require.NoError(t, repo.SetCalendar(ctx, 5, nil))
		now = now.Add(2 * time.Minute)
		_, ok, _ = repo.GetCalendar(ctx, 5)
		assert.False(t, ok, "expired")
	})

	t.Run("RateLimit", func(t *testing.T) {
		allowed, _ := repo.CheckRateLimit(ctx, "k", 2, time.Second)
		assert.True(t, allowed)
		allowed, _ = repo.CheckRateLimit(ctx, "k", 2, time.Second)
		assert.True(t, allowed)
		allowed, _ = repo.CheckRateLimit(ctx, "k", 2, time.Second)
		assert.False(t, allowed)

		now = now.Add(2 * time.Second)
		allowed, _ = repo.CheckRateLimit(ctx, "k", 2, time.Second)
		assert.True(t, allowed)
	})
}
