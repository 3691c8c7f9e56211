package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisRepo(t *testing.T) (*miniredis.Miniredis, *RedisCacheRepository) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return s, NewRedisCacheRepository(client)
}

func TestRedisCacheRepository(t *testing.T) {
	s, repo := newMiniredisRepo(t)
	ctx := context.Background()

	t.Run("SetAndGetURL", func(t *testing.T) {
		require.NoError(t, repo.SetURL(ctx, "photo.jpg", "https://example.com/photo", time.Hour))

		got, err := repo.GetURL(ctx, "photo.jpg")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/photo", got)

		// Ключи хранятся с префиксом image_url.
		assert.True(t, s.Exists("image_url:photo.jpg"))
	})

	t.Run("GetMissingURL", func(t *testing.T) {
		got, err := repo.GetURL(ctx, "missing.jpg")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("DeleteURL", func(t *testing.T) {
		require.NoError(t, repo.SetURL(ctx, "gone.jpg", "https://example.com/gone", time.Hour))
		require.NoError(t, repo.DeleteURL(ctx, "gone.jpg"))

		got, err := repo.GetURL(ctx, "gone.jpg")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("URLExpiry", func(t *testing.T) {
		require.NoError(t, repo.SetURL(ctx, "ttl.jpg", "https://example.com/ttl", time.Minute))
		s.FastForward(2 * time.Minute)

		got, err := repo.GetURL(ctx, "ttl.jpg")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestRedisRateLimit(t *testing.T) {
	s, repo := newMiniredisRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, err := repo.CheckRateLimit(ctx, "1.2.3.4", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i)
	}

	ok, err := repo.CheckRateLimit(ctx, "1.2.3.4", 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// Окно истекает, счетчик сбрасывается.
	s.FastForward(2 * time.Minute)
	ok, err = repo.CheckRateLimit(ctx, "1.2.3.4", 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPingAndClose(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	require.NoError(t, Ping(context.Background(), client))
	require.NoError(t, Close(client))
	assert.NoError(t, Close(nil))
}
