package forecast

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/couchcryptid/tide-notifier/internal/domain"
	"github.com/couchcryptid/tide-notifier/internal/notify"
	"github.com/couchcryptid/tide-notifier/internal/observability"
	"github.com/jonboulle/clockwork"
)

// CachedSource wraps a MeasurementSource with an in-memory LRU cache keyed by
// day. Entries expire after ttl because forecasts are reissued during the day.
type CachedSource struct {
	inner   notify.MeasurementSource
	cache   *lruCache
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics
}

// NewCachedSource creates a cache decorator around a measurement source.
// A nil clock uses real time.
func NewCachedSource(inner notify.MeasurementSource, maxEntries int, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedSource {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CachedSource{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		ttl:     ttl,
		clock:   clock,
		metrics: metrics,
	}
}

func (c *CachedSource) Fetch(ctx context.Context, day time.Time) ([]domain.Measurement, error) {
	key := day.Format(domain.DateLayout)
	now := c.clock.Now()
	if result, ok := c.cache.get(key, now); ok {
		c.metrics.ForecastCache.WithLabelValues("hit").Inc()
		return slices.Clone(result), nil
	}
	c.metrics.ForecastCache.WithLabelValues("miss").Inc()

	result, err := c.inner.Fetch(ctx, day)
	if err != nil {
		return nil, err
	}
	// Only cache non-empty results so a forecast published later in the day is picked up.
	if len(result) > 0 {
		c.cache.put(key, slices.Clone(result), now.Add(c.ttl))
	}
	return result, nil
}

// lruCache is a simple thread-safe LRU cache with per-entry expiry.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key       string
	value     []domain.Measurement
	expiresAt time.Time
	prev      *entry
	next      *entry
}

func newLRUCache(maxEntries int) *lruCache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string, now time.Time) ([]domain.Measurement, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !now.Before(e.expiresAt) {
		delete(c.entries, key)
		c.remove(e)
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []domain.Measurement, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, expiresAt: expiresAt}
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
