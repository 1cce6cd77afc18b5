// Package cache provides the TTL response cache. A single typed component
// owns the key format and expiry checks, so writers (the store's caching
// middleware) and readers share one contract instead of agreeing informally
// on key strings.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// DefaultTTL is the validity window applied when Set is called with zero.
const DefaultTTL = 5 * time.Minute

// Entry is a cached response with its validity window.
type Entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	TTL       time.Duration   `json:"ttl"`
}

// Expired reports whether the entry is past its window at the given time.
// The boundary is exclusive: an entry written at t0 with TTL T is gone at
// exactly t0+T.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.Timestamp.Add(e.TTL))
}

// Cache is a TTL-bounded key-value response cache. Expired entries read as
// absent and are evicted on read. There is no LRU or size bound; entries
// persist until expiry or explicit invalidation.
type Cache interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	Set(ctx context.Context, key string, data json.RawMessage, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// =============================================================================
// Memory Cache
// =============================================================================

// Memory is an in-process cache, the session-storage analog.
type Memory struct {
	mu      sync.Mutex
	entries map[string]Entry

	// now is replaceable for tests.
	now func() time.Time
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if entry.Expired(m.now()) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return entry.Data, true, nil
}

func (m *Memory) Set(_ context.Context, key string, data json.RawMessage, ttl time.Duration) error {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = Entry{
		Data:      append(json.RawMessage(nil), data...),
		Timestamp: m.now(),
		TTL:       ttl,
	}
	return nil
}

func (m *Memory) Invalidate(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]Entry)
	return nil
}
