package repository

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

type rateWindow struct {
	count    int
	windowAt time.Time
}

// MemoryCacheRepository is the in-process fallback used when redis is absent
// or unreachable. Entries expire lazily on read.
type MemoryCacheRepository struct {
	mu    sync.Mutex
	urls  map[string]memoryEntry
	rates map[string]rateWindow
}

func NewMemoryCacheRepository() *MemoryCacheRepository {
	return &MemoryCacheRepository{
		urls:  make(map[string]memoryEntry),
		rates: make(map[string]rateWindow),
	}
}

func (m *MemoryCacheRepository) GetURL(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.urls[key]
	if !ok {
		return "", nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(m.urls, key)
		return "", nil
	}
	return entry.value, nil
}

func (m *MemoryCacheRepository) SetURL(_ context.Context, key, url string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := memoryEntry{value: url}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.urls[key] = entry
	return nil
}

func (m *MemoryCacheRepository) DeleteURL(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.urls, key)
	return nil
}

func (m *MemoryCacheRepository) CheckRateLimit(_ context.Context, clientKey string, limit int, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	w, ok := m.rates[clientKey]
	if !ok || now.Sub(w.windowAt) > window {
		m.rates[clientKey] = rateWindow{count: 1, windowAt: now}
		return true, nil
	}
	w.count++
	m.rates[clientKey] = w
	return w.count <= limit, nil
}

var _ CacheRepository = (*MemoryCacheRepository)(nil)
