package repository

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// FailoverCacheRepository serves from the primary (redis) until it errors,
// then switches to the fallback and probes the primary again after a minute.
type FailoverCacheRepository struct {
	primary   CacheRepository
	fallback  CacheRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64 // unix nanos of the last failed probe
}

func NewFailoverCacheRepository(primary, fallback CacheRepository, logger *zerolog.Logger) *FailoverCacheRepository {
	return &FailoverCacheRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverCacheRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("primary cache repository failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverCacheRepository) shouldProbe() bool {
	return r.isDown.Load() && time.Since(time.Unix(0, r.lastCheck.Load())) > time.Minute
}

func (r *FailoverCacheRepository) GetURL(ctx context.Context, key string) (string, error) {
	if !r.isDown.Load() || r.shouldProbe() {
		val, err := r.primary.GetURL(ctx, key)
		if err == nil {
			r.isDown.Store(false)
			return val, nil
		}
		r.markDown(err)
	}
	return r.fallback.GetURL(ctx, key)
}

func (r *FailoverCacheRepository) SetURL(ctx context.Context, key, url string, ttl time.Duration) error {
	if !r.isDown.Load() || r.shouldProbe() {
		err := r.primary.SetURL(ctx, key, url, ttl)
		if err == nil {
			r.isDown.Store(false)
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.SetURL(ctx, key, url, ttl)
}

func (r *FailoverCacheRepository) DeleteURL(ctx context.Context, key string) error {
	if !r.isDown.Load() || r.shouldProbe() {
		err := r.primary.DeleteURL(ctx, key)
		if err == nil {
			r.isDown.Store(false)
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.DeleteURL(ctx, key)
}

func (r *FailoverCacheRepository) CheckRateLimit(ctx context.Context, clientKey string, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() || r.shouldProbe() {
		ok, err := r.primary.CheckRateLimit(ctx, clientKey, limit, window)
		if err == nil {
			r.isDown.Store(false)
			return ok, nil
		}
		r.markDown(err)
	}
	return r.fallback.CheckRateLimit(ctx, clientKey, limit, window)
}

var _ CacheRepository = (*FailoverCacheRepository)(nil)
var _ CacheRepository = (*RedisCacheRepository)(nil)
