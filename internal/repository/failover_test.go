package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockCache struct {
	mock.Mock
}

func (m *mockCache) GetURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *mockCache) SetURL(ctx context.Context, key, url string, ttl time.Duration) error {
	args := m.Called(ctx, key, url, ttl)
	return args.Error(0)
}

func (m *mockCache) DeleteURL(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *mockCache) CheckRateLimit(ctx context.Context, clientKey string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, clientKey, limit, window)
	return args.Bool(0), args.Error(1)
}

func TestFailoverCacheRepository(t *testing.T) {
	logger := zerolog.New(io.Discard)
	ctx := context.Background()
	redisErr := errors.New("connection refused")

	t.Run("PrimarySuccess", func(t *testing.T) {
		primary := new(mockCache)
		fallback := new(mockCache)
		repo := NewFailoverCacheRepository(primary, fallback, &logger)

		primary.On("GetURL", ctx, "a.jpg").Return("https://drive/a", nil).Once()

		got, err := repo.GetURL(ctx, "a.jpg")
		assert.NoError(t, err)
		assert.Equal(t, "https://drive/a", got)
		primary.AssertExpectations(t)
		fallback.AssertNotCalled(t, "GetURL", mock.Anything, mock.Anything)
	})

	t.Run("FallbackOnPrimaryError", func(t *testing.T) {
		primary := new(mockCache)
		fallback := new(mockCache)
		repo := NewFailoverCacheRepository(primary, fallback, &logger)

		primary.On("SetURL", ctx, "a.jpg", "url", time.Hour).Return(redisErr).Once()
		fallback.On("SetURL", ctx, "a.jpg", "url", time.Hour).Return(nil).Once()

		assert.NoError(t, repo.SetURL(ctx, "a.jpg", "url", time.Hour))
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("StaysOnFallbackWhileDown", func(t *testing.T) {
		primary := new(mockCache)
		fallback := new(mockCache)
		repo := NewFailoverCacheRepository(primary, fallback, &logger)

		primary.On("CheckRateLimit", ctx, "ip", 5, time.Minute).Return(false, redisErr).Once()
		fallback.On("CheckRateLimit", ctx, "ip", 5, time.Minute).Return(true, nil).Twice()

		ok, err := repo.CheckRateLimit(ctx, "ip", 5, time.Minute)
		assert.NoError(t, err)
		assert.True(t, ok)

		// Within the probe interval the primary is not retried.
		ok, err = repo.CheckRateLimit(ctx, "ip", 5, time.Minute)
		assert.NoError(t, err)
		assert.True(t, ok)

		primary.AssertNumberOfCalls(t, "CheckRateLimit", 1)
		fallback.AssertExpectations(t)
	})

	t.Run("RecoversAfterProbe", func(t *testing.T) {
		primary := new(mockCache)
		fallback := new(mockCache)
		repo := NewFailoverCacheRepository(primary, fallback, &logger)

		primary.On("DeleteURL", ctx, "a.jpg").Return(redisErr).Once()
		fallback.On("DeleteURL", ctx, "a.jpg").Return(nil).Once()
		assert.NoError(t, repo.DeleteURL(ctx, "a.jpg"))

		// Simulate the probe window elapsing.
		repo.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())

		primary.On("DeleteURL", ctx, "b.jpg").Return(nil).Once()
		assert.NoError(t, repo.DeleteURL(ctx, "b.jpg"))
		assert.False(t, repo.isDown.Load())

		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})
}
