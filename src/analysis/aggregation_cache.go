package analysis

import (
	"sync/atomic"
	"time"

	"metrics-broker/src/models"
	"metrics-broker/src/utils"

	"github.com/puzpuzpuz/xsync/v3"
)

// -----------------------------------------------------------------------------
// AggregationCache memoizes windowed aggregates per (metric, level).
// An entry is reused only while it is younger than the TTL and was computed
// from the buffer revision currently in place. Concurrent recomputation of
// the same key is allowed; the last writer wins.
// -----------------------------------------------------------------------------

type AggregationCache struct {
	entries *xsync.MapOf[string, cacheEntry]
	ttl     time.Duration
	now     func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

type cacheEntry struct {
	aggregation models.MAggregation
	cachedAt    time.Time
	revision    uint64
}

// -----------------------------------------------------------------------------

func NewAggregationCache(ttl time.Duration, now func() time.Time) *AggregationCache {
	if now == nil {
		now = time.Now
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &AggregationCache{
		entries: xsync.NewMapOf[string, cacheEntry](),
		ttl:     ttl,
		now:     now,
	}
}

// -----------------------------------------------------------------------------

func cacheKey(metricID, level string) string {
	return metricID + "|" + level
}

// -----------------------------------------------------------------------------

// Get returns the aggregate of buffer for level, recomputing it when stale.
func (c *AggregationCache) Get(metricID, level string, buffer *utils.RingBuffer) (models.MAggregation, bool) {
	period, ok := LevelPeriod(level)
	if !ok || buffer == nil {
		return models.MAggregation{}, false
	}

	key := cacheKey(metricID, level)
	now := c.now()

	if e, ok := c.entries.Load(key); ok && e.revision == buffer.Revision() && now.Sub(e.cachedAt) < c.ttl {
		c.hits.Add(1)
		return e.aggregation, true
	}

	c.misses.Add(1)
	entries, revision := buffer.Snapshot()
	if len(entries) == 0 {
		return models.MAggregation{}, false
	}

	agg := Aggregate(metricID, level, period, entries)
	c.entries.Store(key, cacheEntry{aggregation: agg, cachedAt: now, revision: revision})
	return agg, true
}

// -----------------------------------------------------------------------------

// Prune removes entries older than the TTL and returns how many were dropped
func (c *AggregationCache) Prune() int {
	cutoff := c.now().Add(-c.ttl)
	removed := 0
	c.entries.Range(func(key string, e cacheEntry) bool {
		if e.cachedAt.Before(cutoff) {
			c.entries.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// -----------------------------------------------------------------------------

// Size returns the number of cached aggregates
func (c *AggregationCache) Size() int {
	return c.entries.Size()
}

// -----------------------------------------------------------------------------

// Stats returns cache hit and miss counters
func (c *AggregationCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// -----------------------------------------------------------------------------

// Clear drops every entry
func (c *AggregationCache) Clear() {
	c.entries.Clear()
}
