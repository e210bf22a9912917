package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	DefaultTTL             = 5 * time.Minute
	DefaultCleanupInterval = 10 * time.Minute
)

// Entry is one cached value. It is logically absent once
// now - Timestamp > TTL; a TTL of zero or less is always expired.
type Entry struct {
	Data      any
	Timestamp time.Time
	TTL       time.Duration
}

func (e Entry) expired(now time.Time) bool {
	return e.TTL <= 0 || now.Sub(e.Timestamp) > e.TTL
}

// Recorder receives hit/miss notifications. *metrics.Metrics satisfies it.
type Recorder interface {
	CacheHit()
	CacheMiss()
}

type Option func(*Cache)

func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.defaultTTL = ttl }
}

func WithRecorder(r Recorder) Option {
	return func(c *Cache) { c.recorder = r }
}

// WithClock replaces time.Now; used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// Cache is a process-wide TTL map. Each method is atomic; sequences of
// calls are not.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]Entry
	defaultTTL time.Duration
	now        func() time.Time
	recorder   Recorder

	stopOnce sync.Once
	stopCh   chan struct{}
	running  bool
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries:    make(map[string]Entry),
		defaultTTL: DefaultTTL,
		now:        time.Now,
		stopCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) Set(key string, data any) {
	c.SetWithTTL(key, data, c.defaultTTL)
}

func (c *Cache) SetWithTTL(key string, data any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = Entry{Data: data, Timestamp: c.now(), TTL: ttl}
}

// Get returns the stored value, purging it first if it has expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	entry, ok := c.lookupLocked(key)
	c.mu.Unlock()

	if c.recorder != nil {
		if ok {
			c.recorder.CacheHit()
		} else {
			c.recorder.CacheMiss()
		}
	}
	if !ok {
		return nil, false
	}
	return entry.Data, true
}

func (c *Cache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.lookupLocked(key)
	return ok
}

func (c *Cache) lookupLocked(key string) (Entry, bool) {
	entry, ok := c.entries[key]
	if !ok {
		return Entry{}, false
	}
	if entry.expired(c.now()) {
		delete(c.entries, key)
		return Entry{}, false
	}
	return entry, true
}

func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]Entry)
}

// Cleanup removes every expired entry and reports how many were dropped.
func (c *Cache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Keys lists stored keys in sorted order, expired or not.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// InvalidatePattern deletes every key containing substr.
func (c *Cache) InvalidatePattern(substr string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if strings.Contains(key, substr) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps expired entries every interval until Stop is called.
// Calling it more than once has no effect.
func (c *Cache) StartJanitor(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.Cleanup()
			case <-c.stopCh:
				return
			}
		}
	}()
}

func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// WithCache returns the cached value for key when present, otherwise calls
// fetch and stores its result under key with ttl. Errors are returned
// without being cached.
//
// Concurrent calls for the same key are not coalesced: each caller that
// misses runs its own fetch and the last writer wins.
func WithCache[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fetch func(ctx context.Context) (T, error)) (T, error) {
	if cached, ok := c.Get(key); ok {
		if v, ok := cached.(T); ok {
			return v, nil
		}
		c.Delete(key)
	}

	v, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.SetWithTTL(key, v, ttl)
	return v, nil
}
