package cache

import (
	"strings"
	"time"
)

// DefaultRateTTL is how long a fetched exchange rate is trusted.
const DefaultRateTTL = time.Hour

// RateCache stores exchange rates per direction. USD→EUR and EUR→USD are
// separate keys and neither is derived from the other.
type RateCache struct {
	entries *TTLCache[float64]
}

// NewRateCache creates a rate cache with the given TTL and clock. A nil clock
// means time.Now.
func NewRateCache(ttl time.Duration, clock Clock) *RateCache {
	return &RateCache{entries: NewTTLCache[float64](ttl, clock)}
}

func rateKey(from, to string) string {
	return strings.ToUpper(strings.TrimSpace(from)) + ":" + strings.ToUpper(strings.TrimSpace(to))
}

// Get returns the rate for from→to if it is still fresh.
func (c *RateCache) Get(from, to string) (float64, bool) {
	return c.entries.Get(rateKey(from, to))
}

// Put stores the rate for from→to, overwriting any previous value.
func (c *RateCache) Put(from, to string, rate float64) {
	c.entries.Set(rateKey(from, to), rate)
}

func (c *RateCache) Clear() { c.entries.Clear() }

// Len counts stored rates, fresh or not.
func (c *RateCache) Len() int { return c.entries.Size() }

func (c *RateCache) TTL() time.Duration { return c.entries.TTL() }
