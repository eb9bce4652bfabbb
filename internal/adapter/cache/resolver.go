// Package cache memoizes nearest-station lookups. Forecast files revisit the
// same grid points every run, so a warm cache skips the table scan entirely.
package cache

import (
	"container/list"
	"sync"

	"github.com/couchcryptid/forecast-parser/internal/domain"
	"github.com/couchcryptid/forecast-parser/internal/observability"
)

// CachedResolver wraps a Resolver with an in-memory LRU cache keyed by the
// raw composite location key.
type CachedResolver struct {
	inner   domain.Resolver
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedResolver creates a cache decorator around a resolver.
func NewCachedResolver(inner domain.Resolver, maxEntries int, metrics *observability.Metrics) *CachedResolver {
	return &CachedResolver{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedResolver) Nearest(raw domain.RawLocation) (domain.Station, error) {
	key := raw.Key()
	if station, ok := c.cache.get(key); ok {
		c.metrics.StationCache.WithLabelValues("hit").Inc()
		return station, nil
	}
	c.metrics.StationCache.WithLabelValues("miss").Inc()

	station, err := c.inner.Nearest(raw)
	if err != nil {
		return station, err
	}
	c.cache.put(key, station)
	return station, nil
}

// lruCache is a thread-safe LRU of resolved stations. The list front is the
// most recently used element. A non-positive size disables caching.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	order      *list.List
	elements   map[string]*list.Element
}

type cachedStation struct {
	key     string
	station domain.Station
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		order:      list.New(),
		elements:   make(map[string]*list.Element),
	}
}

func (c *lruCache) get(key string) (domain.Station, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.elements[key]
	if !ok {
		return domain.Station{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cachedStation).station, true
}

func (c *lruCache) put(key string, station domain.Station) {
	if c.maxEntries <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.elements[key]; ok {
		el.Value.(*cachedStation).station = station
		c.order.MoveToFront(el)
		return
	}

	c.elements[key] = c.order.PushFront(&cachedStation{key: key, station: station})
	for c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.elements, oldest.Value.(*cachedStation).key)
	}
}

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
