package eta

import (
	"fmt"
	"sync"
	"time"

	"github.com/example/hande/internal/fare"
	"github.com/example/hande/internal/models"
)

// Estimator is the interface used by trip handlers to get travel times.
type Estimator interface {
	EstimateSeconds(from, to models.Location) (float64, error)
}

// Cache is a tiny in-memory cache for ETA lookups keyed by coords.
type Cache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
	ttl   time.Duration
}

type cacheEntry struct {
	v  float64
	ts time.Time
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{store: make(map[string]cacheEntry), ttl: ttl}
}

func keyFor(a, b models.Location) string {
	return fmtLoc(a) + "->" + fmtLoc(b)
}

func fmtLoc(l models.Location) string {
	return fmt.Sprintf("%.6f,%.6f", l.Latitude, l.Longitude)
}

// Get returns cached value and true if present and not expired.
func (c *Cache) Get(a, b models.Location) (float64, bool) {
	k := keyFor(a, b)
	c.mu.RLock()
	e, ok := c.store[k]
	c.mu.RUnlock()
	if !ok {
		return 0, false
	}
	if time.Since(e.ts) > c.ttl {
		c.mu.Lock()
		delete(c.store, k)
		c.mu.Unlock()
		return 0, false
	}
	return e.v, true
}

// Set stores a value in the cache.
func (c *Cache) Set(a, b models.Location, v float64) {
	k := keyFor(a, b)
	c.mu.Lock()
	c.store[k] = cacheEntry{v: v, ts: time.Now()}
	c.mu.Unlock()
}

// EstimateSeconds is the naive fallback: city driving at roughly 3 min/km.
// In prod a routing engine answers instead; this keeps estimates alive when
// OSRM is down or unconfigured.
func EstimateSeconds(from, to models.Location) float64 {
	km := fare.HaversineKm(from.Latitude, from.Longitude, to.Latitude, to.Longitude)
	return km * fare.MinutesPerKm * 60
}

// Cached wraps an Estimator with a Cache and the naive fallback, which is the
// composition every caller wants.
type Cached struct {
	Inner Estimator // optional
	Cache *Cache    // optional
}

func (c *Cached) EstimateSeconds(from, to models.Location) (float64, error) {
	if c.Cache != nil {
		if v, ok := c.Cache.Get(from, to); ok {
			return v, nil
		}
	}
	if c.Inner != nil {
		if v, err := c.Inner.EstimateSeconds(from, to); err == nil {
			if c.Cache != nil {
				c.Cache.Set(from, to, v)
			}
			return v, nil
		}
	}
	return EstimateSeconds(from, to), nil
}
