package utils

import (
	"runtime"
	"runtime/debug"
	"sync/atomic"

	"metrics-broker/src/logger"
	"metrics-broker/src/models"

	"github.com/puzpuzpuz/xsync/v3"
)

// -----------------------------------------------------------------------------
// BufferManager owns one RingBuffer per metric (or KPI) id.
// -----------------------------------------------------------------------------

type BufferManager struct {
	streams       *xsync.MapOf[string, *RingBuffer]
	MaxDataPoints int
	MaxMemoryMB   int // 0 disables the heap check
	Logger        *logger.Logger
	appends       atomic.Uint64
}

// -----------------------------------------------------------------------------

// AppendResult describes the buffer state right after an append
type AppendResult struct {
	Previous    models.MBufferEntry
	HasPrevious bool
	Revision    uint64
}

// -----------------------------------------------------------------------------

func NewBufferManager(maxDataPoints, maxMemoryMB int, log *logger.Logger) *BufferManager {
	if log == nil {
		log = logger.NewLogger(nil, "BufferManager")
	}
	return &BufferManager{
		streams:       xsync.NewMapOf[string, *RingBuffer](),
		MaxDataPoints: maxDataPoints,
		MaxMemoryMB:   maxMemoryMB,
		Logger:        log,
	}
}

// -----------------------------------------------------------------------------

// AddDataPoint appends an entry to the buffer of id, creating it on first use
func (bm *BufferManager) AddDataPoint(id string, entry models.MBufferEntry) AppendResult {
	var (
		prev    models.MBufferEntry
		hadPrev bool
		rev     uint64
	)
	for {
		buffer, _ := bm.streams.LoadOrCompute(id, func() *RingBuffer {
			return NewRingBuffer(bm.MaxDataPoints)
		})
		prev, hadPrev, rev = buffer.Append(entry)

		// PruneOlderThan may have dropped the buffer while it was empty; once
		// the append is visible the prune's re-check keeps it
		if current, ok := bm.streams.Load(id); ok && current == buffer {
			break
		}
	}

	if bm.MaxMemoryMB > 0 && bm.appends.Add(1)%1000 == 0 {
		bm.CheckMemoryLimits()
	}

	return AppendResult{Previous: prev, HasPrevious: hadPrev, Revision: rev}
}

// -----------------------------------------------------------------------------

// GetBuffer returns the ring buffer for an id
func (bm *BufferManager) GetBuffer(id string) *RingBuffer {
	buffer, _ := bm.streams.Load(id)
	return buffer
}

// -----------------------------------------------------------------------------

// Latest returns the newest entry of id
func (bm *BufferManager) Latest(id string) (models.MBufferEntry, bool) {
	buffer, ok := bm.streams.Load(id)
	if !ok {
		return models.MBufferEntry{}, false
	}
	return buffer.Latest()
}

// -----------------------------------------------------------------------------

// GetLatestData returns the newest entry of every id
func (bm *BufferManager) GetLatestData() map[string]models.MBufferEntry {
	result := make(map[string]models.MBufferEntry)
	bm.streams.Range(func(id string, buffer *RingBuffer) bool {
		if latest, ok := buffer.Latest(); ok {
			result[id] = latest
		}
		return true
	})
	return result
}

// -----------------------------------------------------------------------------

// PruneOlderThan drops entries older than cutoff (unix ms) and removes
// buffers left empty. Returns the number of entries dropped.
func (bm *BufferManager) PruneOlderThan(cutoff int64) int {
	removed := 0
	bm.streams.Range(func(id string, buffer *RingBuffer) bool {
		removed += buffer.PruneBefore(cutoff)
		if buffer.Size() == 0 {
			// re-check under the map's per-key lock so a concurrent append wins
			bm.streams.Compute(id, func(old *RingBuffer, loaded bool) (*RingBuffer, bool) {
				return old, !loaded || old.Size() == 0
			})
		}
		return true
	})
	return removed
}

// -----------------------------------------------------------------------------

// CheckMemoryLimits halves buffer capacities when the heap exceeds MaxMemoryMB
func (bm *BufferManager) CheckMemoryLimits() {
	currentMemory := bm.GetProcessMemoryMB()
	if currentMemory <= float64(bm.MaxMemoryMB) {
		return
	}

	bm.Logger.Warning("Memory usage %.1fMB exceeds limit %dMB. Shrinking buffers.", currentMemory, bm.MaxMemoryMB)

	bm.streams.Range(func(_ string, buffer *RingBuffer) bool {
		if buffer.Capacity() > 100 {
			newCapacity := buffer.Capacity() / 2
			if newCapacity < 50 {
				newCapacity = 50
			}
			buffer.Resize(newCapacity)
		}
		return true
	})

	runtime.GC()
	debug.FreeOSMemory()
}

// -----------------------------------------------------------------------------

// GetProcessMemoryMB gets current heap usage in MB
func (bm *BufferManager) GetProcessMemoryMB() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.HeapAlloc) / 1024 / 1024
}

// -----------------------------------------------------------------------------

// Cleanup clears all data
func (bm *BufferManager) Cleanup() {
	bm.streams.Clear()
}

// -----------------------------------------------------------------------------

// Has checks if id has a buffer
func (bm *BufferManager) Has(id string) bool {
	_, ok := bm.streams.Load(id)
	return ok
}

// -----------------------------------------------------------------------------

// Count returns number of ids with data
func (bm *BufferManager) Count() int {
	return bm.streams.Size()
}

// -----------------------------------------------------------------------------

// IDs lists all buffered ids
func (bm *BufferManager) IDs() []string {
	ids := make([]string, 0, bm.streams.Size())
	bm.streams.Range(func(id string, _ *RingBuffer) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}
