package cache

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

type countingRecorder struct {
	hits, misses int
}

func (r *countingRecorder) CacheHit()  { r.hits++ }
func (r *countingRecorder) CacheMiss() { r.misses++ }

func TestGet_ExpiryIsIdempotent(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	c.SetWithTTL("categories", []string{"a"}, time.Minute)

	if _, ok := c.Get("categories"); !ok {
		t.Fatal("expected fresh entry to be returned")
	}

	clock.Advance(time.Minute + time.Millisecond)

	for i := 0; i < 3; i++ {
		if v, ok := c.Get("categories"); ok || v != nil {
			t.Fatalf("call %d: expired entry returned %v", i, v)
		}
	}
	if c.Has("categories") {
		t.Error("Has() should report expired entry as absent")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be purged on read, Len() = %d", c.Len())
	}
}

func TestGet_BoundaryIsStillFresh(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	c.SetWithTTL("k", 1, time.Minute)
	clock.Advance(time.Minute)

	if _, ok := c.Get("k"); !ok {
		t.Error("entry exactly at its ttl should still be present")
	}
}

func TestSetWithTTL_NonPositiveTTLIsExpired(t *testing.T) {
	tests := []struct {
		name string
		ttl  time.Duration
	}{
		{name: "zero", ttl: 0},
		{name: "negative", ttl: -time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(WithClock(newFakeClock().Now))
			c.SetWithTTL("k", "v", tt.ttl)

			if _, ok := c.Get("k"); ok {
				t.Error("expected entry to be immediately expired")
			}
		})
	}
}

func TestSet_UsesDefaultTTL(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now), WithDefaultTTL(2*time.Minute))

	c.Set("k", "v")
	clock.Advance(90 * time.Second)
	if !c.Has("k") {
		t.Fatal("entry should survive within the default ttl")
	}

	clock.Advance(time.Minute)
	if c.Has("k") {
		t.Error("entry should expire after the default ttl")
	}
}

func TestDelete(t *testing.T) {
	c := New()
	c.Set("k", "v")

	if !c.Delete("k") {
		t.Error("Delete() of existing key should return true")
	}
	if c.Delete("k") {
		t.Error("Delete() of missing key should return false")
	}
}

func TestInvalidatePattern(t *testing.T) {
	c := New()
	for _, key := range []string{"bookings_me", "admin_bookings_page_1", "categories", "user_profile"} {
		c.Set(key, key)
	}

	removed := c.InvalidatePattern("bookings")

	if removed != 2 {
		t.Errorf("InvalidatePattern() removed %d, want 2", removed)
	}
	want := []string{"categories", "user_profile"}
	if got := c.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
}

func TestCleanup(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	c.SetWithTTL("short", 1, time.Second)
	c.SetWithTTL("long", 2, time.Hour)
	clock.Advance(time.Minute)

	if removed := c.Cleanup(); removed != 1 {
		t.Errorf("Cleanup() removed %d, want 1", removed)
	}
	if got := c.Keys(); !reflect.DeepEqual(got, []string{"long"}) {
		t.Errorf("Keys() = %v", got)
	}
}

func TestClear(t *testing.T) {
	c := New()
	c.Set("a", 1)
	c.Set("b", 2)

	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear()", c.Len())
	}
}

func TestWithCache_FetchesOnceWithinTTL(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))
	calls := 0
	fetch := func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	}

	first, err := WithCache(context.Background(), c, "counter", time.Minute, fetch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := WithCache(context.Background(), c, "counter", time.Minute, fetch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
	if first != second {
		t.Errorf("cached value %d differs from first %d", second, first)
	}

	clock.Advance(2 * time.Minute)
	if _, err := WithCache(context.Background(), c, "counter", time.Minute, fetch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("fetch should run again after expiry, calls = %d", calls)
	}
}

func TestWithCache_ErrorsAreNotCached(t *testing.T) {
	c := New()
	boom := errors.New("boom")
	calls := 0
	fetch := func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", boom
		}
		return "ok", nil
	}

	if _, err := WithCache(context.Background(), c, "k", time.Minute, fetch); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if c.Has("k") {
		t.Fatal("failed fetch must not populate the cache")
	}

	v, err := WithCache(context.Background(), c, "k", time.Minute, fetch)
	if err != nil || v != "ok" {
		t.Errorf("got %q, %v", v, err)
	}
}

func TestWithCache_TypeMismatchRefetches(t *testing.T) {
	c := New()
	c.Set("k", "a string")

	v, err := WithCache(context.Background(), c, "k", time.Minute, func(ctx context.Context) (int, error) {
		return 7, nil
	})
	if err != nil || v != 7 {
		t.Errorf("got %d, %v", v, err)
	}
}

func TestRecorder(t *testing.T) {
	rec := &countingRecorder{}
	c := New(WithRecorder(rec))

	c.Get("missing")
	c.Set("k", 1)
	c.Get("k")
	c.Get("k")

	if rec.hits != 2 || rec.misses != 1 {
		t.Errorf("hits=%d misses=%d, want 2 and 1", rec.hits, rec.misses)
	}
}

func TestStartJanitor_SweepsAndStops(t *testing.T) {
	c := New()
	c.SetWithTTL("gone", 1, -time.Second)

	c.StartJanitor(5 * time.Millisecond)
	c.StartJanitor(5 * time.Millisecond)
	defer c.Stop()

	deadline := time.Now().Add(time.Second)
	for c.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("janitor did not sweep the expired entry")
		}
		time.Sleep(5 * time.Millisecond)
	}

	c.Stop()
	c.Stop()
}
