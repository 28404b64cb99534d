package utils

import (
	"fmt"
	"sync"
	"testing"

	"metrics-broker/src/logger"
	"metrics-broker/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferManagerBoundsEachMetric(t *testing.T) {
	bm := NewBufferManager(10, 0, logger.NewNopLogger())

	for i := 0; i < 25; i++ {
		bm.AddDataPoint("cpu.load", models.MBufferEntry{Timestamp: int64(i), Value: float64(i)})
	}
	bm.AddDataPoint("mem.used", models.MBufferEntry{Timestamp: 1, Value: 1})

	buf := bm.GetBuffer("cpu.load")
	require.NotNil(t, buf)
	all := buf.GetAll()
	require.Len(t, all, 10)
	assert.Equal(t, 15.0, all[0].Value)
	assert.Equal(t, 24.0, all[9].Value)

	assert.Equal(t, 2, bm.Count())
	assert.ElementsMatch(t, []string{"cpu.load", "mem.used"}, bm.IDs())
}

func TestBufferManagerAppendResult(t *testing.T) {
	bm := NewBufferManager(10, 0, logger.NewNopLogger())

	first := bm.AddDataPoint("m", models.MBufferEntry{Timestamp: 1, Value: 5})
	assert.False(t, first.HasPrevious)

	second := bm.AddDataPoint("m", models.MBufferEntry{Timestamp: 2, Value: 8})
	require.True(t, second.HasPrevious)
	assert.Equal(t, 5.0, second.Previous.Value)
	assert.Greater(t, second.Revision, first.Revision)
}

func TestBufferManagerPruneDropsEmptyBuffers(t *testing.T) {
	bm := NewBufferManager(10, 0, logger.NewNopLogger())
	bm.AddDataPoint("old", models.MBufferEntry{Timestamp: 100, Value: 1})
	bm.AddDataPoint("mixed", models.MBufferEntry{Timestamp: 100, Value: 1})
	bm.AddDataPoint("mixed", models.MBufferEntry{Timestamp: 900, Value: 2})

	removed := bm.PruneOlderThan(500)

	assert.Equal(t, 2, removed)
	assert.False(t, bm.Has("old"))
	require.True(t, bm.Has("mixed"))
	assert.Equal(t, 1, bm.GetBuffer("mixed").Size())

	latest := bm.GetLatestData()
	assert.Len(t, latest, 1)
	assert.Equal(t, 2.0, latest["mixed"].Value)
}

func TestBufferManagerConcurrentAppends(t *testing.T) {
	bm := NewBufferManager(50, 0, logger.NewNopLogger())

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				bm.AddDataPoint("hot", models.MBufferEntry{Timestamp: int64(i), Value: float64(i)})
			}
		}()
	}
	wg.Wait()

	buf := bm.GetBuffer("hot")
	assert.Equal(t, 50, buf.Size())
	assert.Equal(t, uint64(1600), buf.Revision())
}

func TestBufferManagerAppendSurvivesConcurrentPrune(t *testing.T) {
	bm := NewBufferManager(10, 0, logger.NewNopLogger())

	for i := 0; i < 500; i++ {
		id := fmt.Sprintf("m%d", i)
		bm.AddDataPoint(id, models.MBufferEntry{Timestamp: 1, Value: 1})

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			bm.PruneOlderThan(100)
		}()
		go func() {
			defer wg.Done()
			bm.AddDataPoint(id, models.MBufferEntry{Timestamp: 200, Value: 2})
		}()
		wg.Wait()

		latest, ok := bm.Latest(id)
		require.True(t, ok, "fresh value lost for %s", id)
		assert.Equal(t, int64(200), latest.Timestamp)
	}
}
