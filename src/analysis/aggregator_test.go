package analysis

import (
	"testing"
	"time"

	"metrics-broker/src/models"
	"metrics-broker/src/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateUsesTrailingWindow(t *testing.T) {
	base := int64(1_700_000_000_000)
	entries := []models.MBufferEntry{
		{Timestamp: base - 120_000, Value: 1000}, // outside the minute
		{Timestamp: base - 50_000, Value: 10},
		{Timestamp: base - 10_000, Value: 20},
		{Timestamp: base, Value: 30},
	}

	agg := Aggregate("cpu.load", models.AggregationMinute, time.Minute, entries)

	assert.Equal(t, "cpu.load", agg.MetricID)
	assert.Equal(t, models.AggregationMinute, agg.Period)
	assert.Equal(t, 3, agg.Count)
	assert.InDelta(t, 20.0, agg.Mean, 1e-9)
	assert.Equal(t, 10.0, agg.Min)
	assert.Equal(t, 30.0, agg.Max)
	assert.Equal(t, base, agg.EndTime)
	assert.Equal(t, base-60_000, agg.StartTime)
}

func TestLevels(t *testing.T) {
	assert.True(t, ValidLevel(""))
	assert.True(t, ValidLevel("raw"))
	assert.True(t, ValidLevel("day"))
	assert.False(t, ValidLevel("week"))

	_, ok := LevelPeriod("raw")
	assert.False(t, ok)
	p, ok := LevelPeriod("hour")
	require.True(t, ok)
	assert.Equal(t, time.Hour, p)
}

func TestAggregationCacheFollowsBufferRevision(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cache := NewAggregationCache(time.Minute, func() time.Time { return now })
	buf := utils.NewRingBuffer(10)

	_, ok := cache.Get("cpu.load", models.AggregationMinute, buf)
	assert.False(t, ok, "empty buffer has no aggregate")

	buf.Append(models.MBufferEntry{Timestamp: now.UnixMilli(), Value: 10})
	agg, ok := cache.Get("cpu.load", models.AggregationMinute, buf)
	require.True(t, ok)
	assert.Equal(t, 1, agg.Count)

	// same revision is served from cache
	_, _ = cache.Get("cpu.load", models.AggregationMinute, buf)
	hits, _ := cache.Stats()
	assert.Equal(t, int64(1), hits)

	// a new value within the TTL still forces recomputation
	buf.Append(models.MBufferEntry{Timestamp: now.UnixMilli() + 10_000, Value: 20})
	agg, ok = cache.Get("cpu.load", models.AggregationMinute, buf)
	require.True(t, ok)
	assert.Equal(t, 2, agg.Count)
	assert.InDelta(t, 15.0, agg.Mean, 1e-9)
	assert.Equal(t, 1, cache.Size())
}

func TestAggregationCachePrune(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cache := NewAggregationCache(time.Minute, func() time.Time { return now })
	buf := utils.NewRingBuffer(10)
	buf.Append(models.MBufferEntry{Timestamp: now.UnixMilli(), Value: 1})

	_, ok := cache.Get("m", models.AggregationHour, buf)
	require.True(t, ok)
	assert.Equal(t, 0, cache.Prune())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, cache.Prune())
	assert.Equal(t, 0, cache.Size())
}

func TestAggregationCacheRejectsRaw(t *testing.T) {
	cache := NewAggregationCache(time.Minute, nil)
	buf := utils.NewRingBuffer(10)
	buf.Append(models.MBufferEntry{Timestamp: 1, Value: 1})
	_, ok := cache.Get("m", models.AggregationRaw, buf)
	assert.False(t, ok)
}
