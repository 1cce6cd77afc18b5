package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

// fakeClock lets tests step time deterministically.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache() (*Memory, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := NewMemory()
	m.now = clock.now
	return m, clock
}

func TestMemory_HitWithinWindow(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestCache()

	if err := m.Set(ctx, "vouchers", json.RawMessage(`[{"id":"v1"}]`), time.Minute); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	clock.advance(59 * time.Second)
	data, ok, err := m.Get(ctx, "vouchers")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !ok {
		t.Fatal("Get() miss inside the window, want hit")
	}
	if got := string(data); got != `[{"id":"v1"}]` {
		t.Errorf("Get() = %s, want original payload", got)
	}
}

func TestMemory_ExpiryBoundaryIsExclusive(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestCache()

	if err := m.Set(ctx, "k", json.RawMessage(`1`), time.Minute); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	// At exactly t0+TTL the entry is already gone.
	clock.advance(time.Minute)
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Error("Get() hit at exactly t0+TTL, want miss")
	}
}

func TestMemory_ExpiredReadEvicts(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestCache()

	m.Set(ctx, "k", json.RawMessage(`1`), time.Minute)
	clock.advance(2 * time.Minute)

	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatal("Get() hit after expiry, want miss")
	}

	m.mu.Lock()
	_, still := m.entries["k"]
	m.mu.Unlock()
	if still {
		t.Error("expired entry still present after read, want evicted")
	}
}

func TestMemory_ZeroTTLUsesDefault(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestCache()

	m.Set(ctx, "k", json.RawMessage(`1`), 0)

	clock.advance(DefaultTTL - time.Second)
	if _, ok, _ := m.Get(ctx, "k"); !ok {
		t.Error("Get() miss just before default TTL, want hit")
	}

	clock.advance(2 * time.Second)
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Error("Get() hit past default TTL, want miss")
	}
}

func TestMemory_InvalidateAndClear(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestCache()

	m.Set(ctx, "a", json.RawMessage(`1`), time.Minute)
	m.Set(ctx, "b", json.RawMessage(`2`), time.Minute)

	if err := m.Invalidate(ctx, "a"); err != nil {
		t.Fatalf("Invalidate() error: %v", err)
	}
	if _, ok, _ := m.Get(ctx, "a"); ok {
		t.Error("Get(a) hit after Invalidate, want miss")
	}
	if _, ok, _ := m.Get(ctx, "b"); !ok {
		t.Error("Get(b) miss after invalidating a, want hit")
	}

	if err := m.Clear(ctx); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if _, ok, _ := m.Get(ctx, "b"); ok {
		t.Error("Get(b) hit after Clear, want miss")
	}
}

func TestMemory_SetCopiesData(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestCache()

	buf := []byte(`{"n":1}`)
	m.Set(ctx, "k", buf, time.Minute)
	buf[5] = '9'

	data, _, _ := m.Get(ctx, "k")
	if got := string(data); got != `{"n":1}` {
		t.Errorf("Get() = %s, cached entry aliases the caller's buffer", got)
	}
}

func TestMemory_OverwriteRestartsWindow(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestCache()

	m.Set(ctx, "k", json.RawMessage(`1`), time.Minute)
	clock.advance(50 * time.Second)
	m.Set(ctx, "k", json.RawMessage(`2`), time.Minute)
	clock.advance(50 * time.Second)

	data, ok, _ := m.Get(ctx, "k")
	if !ok {
		t.Fatal("Get() miss after overwrite, want hit with fresh window")
	}
	if got := string(data); got != `2` {
		t.Errorf("Get() = %s, want 2", got)
	}
}
