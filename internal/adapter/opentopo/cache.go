package opentopo

import (
	"context"
	"fmt"
	"sync"

	"github.com/floodwatch/waterpoint-prioritiser/internal/domain"
	"github.com/floodwatch/waterpoint-prioritiser/internal/observability"
)

// CachedProvider wraps an ElevationProvider with an in-memory LRU cache.
// Waterpoints cluster tightly in the eight districts, so nearby records
// frequently share a rounded coordinate.
type CachedProvider struct {
	inner   domain.ElevationProvider
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedProvider creates a cache decorator around an elevation provider.
func NewCachedProvider(inner domain.ElevationProvider, maxEntries int, metrics *observability.Metrics) *CachedProvider {
	return &CachedProvider{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedProvider) Elevation(ctx context.Context, lat, lon float64) (float64, bool, error) {
	// ~11m precision at 4 decimals, well inside SRTM90 cell size.
	key := fmt.Sprintf("%.4f,%.4f", lat, lon)
	if v, ok := c.cache.get(key); ok {
		c.metrics.EnrichmentCache.WithLabelValues("memory", "hit").Inc()
		return v.meters, v.found, nil
	}
	c.metrics.EnrichmentCache.WithLabelValues("memory", "miss").Inc()

	meters, found, err := c.inner.Elevation(ctx, lat, lon)
	if err != nil {
		return 0, false, err
	}
	// Negative lookups are cached too: no-coverage is a property of the
	// location, not a transient failure.
	c.cache.put(key, elevationValue{meters: meters, found: found})
	return meters, found, nil
}

type elevationValue struct {
	meters float64
	found  bool
}

// lruCache is a small thread-safe LRU for elevation lookups.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value elevationValue
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (elevationValue, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return elevationValue{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value elevationValue) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
