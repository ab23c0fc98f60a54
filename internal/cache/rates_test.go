package cache

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func TestRateCacheExpiry(t *testing.T) {
	clock := newClock()
	c := NewRateCache(time.Minute, clock.Now)

	c.Put("USD", "EUR", 0.85)
	if rate, ok := c.Get("USD", "EUR"); !ok || rate != 0.85 {
		t.Fatalf("expected fresh hit, got %v %v", rate, ok)
	}

	clock.Advance(59 * time.Second)
	if _, ok := c.Get("USD", "EUR"); !ok {
		t.Fatal("expected hit just before ttl")
	}

	clock.Advance(time.Second)
	if _, ok := c.Get("USD", "EUR"); ok {
		t.Fatal("expected miss once age reaches ttl")
	}
	if c.Len() != 1 {
		t.Fatalf("expired entry should stay stored until overwritten, len=%d", c.Len())
	}

	c.Put("USD", "EUR", 0.9)
	if rate, ok := c.Get("USD", "EUR"); !ok || rate != 0.9 {
		t.Fatalf("expected overwritten rate, got %v %v", rate, ok)
	}
	if c.Len() != 1 {
		t.Fatalf("overwrite must reuse the key, len=%d", c.Len())
	}
}

func TestRateCacheKeys(t *testing.T) {
	c := NewRateCache(time.Hour, nil)
	c.Put("usd", " eur ", 0.85)

	if rate, ok := c.Get("USD", "EUR"); !ok || rate != 0.85 {
		t.Fatalf("keys should be case-insensitive, got %v %v", rate, ok)
	}
	if _, ok := c.Get("EUR", "USD"); ok {
		t.Fatal("reverse direction must not be derived")
	}
}

func TestRateCacheClear(t *testing.T) {
	c := NewRateCache(time.Hour, nil)
	c.Put("USD", "EUR", 0.85)
	c.Put("USD", "GBP", 0.75)
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, len=%d", c.Len())
	}
	if _, ok := c.Get("USD", "GBP"); ok {
		t.Fatal("expected miss after clear")
	}
}

func TestTTLCacheConcurrentAccess(t *testing.T) {
	c := NewTTLCache[int](time.Hour, nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set("k", i)
				c.Get("k")
				c.Size()
			}
		}(i)
	}
	wg.Wait()

	if c.Size() != 1 {
		t.Fatalf("expected one key, got %d", c.Size())
	}
	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss after delete")
	}
}
