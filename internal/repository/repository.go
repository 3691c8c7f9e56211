package repository

import (
	"context"
	"time"
)

// CacheRepository backs the short-lived shared state of the API: public
// image URLs resolved through Drive and the per-client booking rate limit
// counters. Redis is the primary implementation, memory the fallback.
type CacheRepository interface {
	GetURL(ctx context.Context, key string) (string, error)
	SetURL(ctx context.Context, key, url string, ttl time.Duration) error
	DeleteURL(ctx context.Context, key string) error
	CheckRateLimit(ctx context.Context, clientKey string, limit int, window time.Duration) (bool, error)
}
