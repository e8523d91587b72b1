// Package cache holds recent weather lookup results in memory so repeated
// taps on the same spot and date never re-query upstream providers.
package cache

import (
	"fmt"
	"sync"
	"time"

	"eventcast/internal/forecast"
	"eventcast/internal/logger"
)

// Capacity limits and eviction batch size. When an insert would push the
// cache past capacity, the oldest batch is dropped in one sweep rather than
// evicting one entry per insert.
const (
	DefaultCapacity   = 50
	DefaultEvictBatch = 10
)

// Key identifies one cached lookup: coordinates rounded to four decimal
// places plus the ISO calendar date. Four decimals is roughly 11 meters,
// fine enough that distinct taps are distinct entries and coarse enough
// that re-taps on the same spot hit.
func Key(coords forecast.Coordinates, date time.Time) string {
	return fmt.Sprintf("%.4f_%.4f_%s", coords.Latitude, coords.Longitude, date.Format("2006-01-02"))
}

type entry struct {
	key     string
	summary *forecast.Summary
}

// ResultCache is a bounded FIFO cache of weather summaries. Entries never
// expire by age; they are only displaced by newer inserts once the cache is
// full. Safe for concurrent use.
type ResultCache struct {
	mu         sync.Mutex
	capacity   int
	evictBatch int
	order      []entry
	index      map[string]*forecast.Summary
}

// New creates a ResultCache with the given capacity and eviction batch.
// Non-positive arguments fall back to the defaults.
func New(capacity, evictBatch int) *ResultCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if evictBatch <= 0 {
		evictBatch = DefaultEvictBatch
	}
	if evictBatch > capacity {
		evictBatch = capacity
	}
	return &ResultCache{
		capacity:   capacity,
		evictBatch: evictBatch,
		index:      make(map[string]*forecast.Summary, capacity),
	}
}

// Get returns the cached summary for a key, or nil when absent. A hit does
// not refresh the entry's position in the eviction order.
func (c *ResultCache) Get(key string) *forecast.Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index[key]
}

// Put stores a summary under a key. Storing an existing key overwrites the
// value in place without changing its eviction order. When the cache is
// over capacity after an insert, the oldest batch of entries is evicted.
func (c *ResultCache) Put(key string, summary *forecast.Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.index[key]; exists {
		c.index[key] = summary
		for i := range c.order {
			if c.order[i].key == key {
				c.order[i].summary = summary
				break
			}
		}
		return
	}

	c.order = append(c.order, entry{key: key, summary: summary})
	c.index[key] = summary

	if len(c.order) > c.capacity {
		evicted := c.order[:c.evictBatch]
		for _, e := range evicted {
			delete(c.index, e.key)
		}
		c.order = append(c.order[:0], c.order[c.evictBatch:]...)
		logger.Debug("Result cache over capacity, evicted %d oldest entries (%d remain)", len(evicted), len(c.order))
	}
}

// Len returns the number of cached entries.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// Clear empties the cache.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = c.order[:0]
	c.index = make(map[string]*forecast.Summary, c.capacity)
}
