package utils

import (
	"sync"

	"metrics-broker/src/models"
)

// -----------------------------------------------------------------------------
// RingBuffer is a fixed-size circular buffer of timestamped values.
// Oldest entries are overwritten first once capacity is reached.
// -----------------------------------------------------------------------------

type RingBuffer struct {
	mu       sync.RWMutex
	data     []models.MBufferEntry
	capacity int
	index    int // Next write position
	size     int // Current number of elements
	revision uint64
}

// -----------------------------------------------------------------------------

// NewRingBuffer creates a new buffer with fixed capacity
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 1000
	}

	return &RingBuffer{
		data:     make([]models.MBufferEntry, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

// Append stores an entry and returns the entry that was latest before it.
// The returned revision identifies the buffer content after the append.
func (rb *RingBuffer) Append(entry models.MBufferEntry) (prev models.MBufferEntry, hadPrev bool, revision uint64) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.size > 0 {
		prev = rb.data[(rb.index-1+rb.capacity)%rb.capacity]
		hadPrev = true
	}

	rb.data[rb.index] = entry
	rb.index = (rb.index + 1) % rb.capacity

	if rb.size < rb.capacity {
		rb.size++
	}
	rb.revision++

	return prev, hadPrev, rb.revision
}

// -----------------------------------------------------------------------------

// Latest returns the most recent entry
func (rb *RingBuffer) Latest() (models.MBufferEntry, bool) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.size == 0 {
		return models.MBufferEntry{}, false
	}
	return rb.data[(rb.index-1+rb.capacity)%rb.capacity], true
}

// -----------------------------------------------------------------------------

// Previous returns the second-to-last entry
func (rb *RingBuffer) Previous() (models.MBufferEntry, bool) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.size < 2 {
		return models.MBufferEntry{}, false
	}
	return rb.data[(rb.index-2+rb.capacity)%rb.capacity], true
}

// -----------------------------------------------------------------------------

// GetLatest returns up to n latest entries, oldest first
func (rb *RingBuffer) GetLatest(n int) []models.MBufferEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.size == 0 || n <= 0 {
		return []models.MBufferEntry{}
	}

	count := n
	if n > rb.size {
		count = rb.size
	}

	result := make([]models.MBufferEntry, count)
	startIdx := (rb.index - count + rb.capacity) % rb.capacity
	for i := 0; i < count; i++ {
		result[i] = rb.data[(startIdx+i)%rb.capacity]
	}

	return result
}

// -----------------------------------------------------------------------------

// GetAll returns all data in insertion order (oldest to newest)
func (rb *RingBuffer) GetAll() []models.MBufferEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	return rb.snapshotLocked()
}

// -----------------------------------------------------------------------------

// Snapshot returns all entries together with the revision they belong to
func (rb *RingBuffer) Snapshot() ([]models.MBufferEntry, uint64) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	return rb.snapshotLocked(), rb.revision
}

// -----------------------------------------------------------------------------

func (rb *RingBuffer) snapshotLocked() []models.MBufferEntry {
	if rb.size == 0 {
		return []models.MBufferEntry{}
	}

	result := make([]models.MBufferEntry, rb.size)
	startIdx := rb.oldestLocked()
	for i := 0; i < rb.size; i++ {
		result[i] = rb.data[(startIdx+i)%rb.capacity]
	}

	return result
}

// -----------------------------------------------------------------------------

func (rb *RingBuffer) oldestLocked() int {
	if rb.size == rb.capacity {
		return rb.index
	}
	return (rb.index - rb.size + rb.capacity) % rb.capacity
}

// -----------------------------------------------------------------------------

// PruneBefore drops entries older than cutoff (unix ms), oldest first.
// Returns the number of removed entries.
func (rb *RingBuffer) PruneBefore(cutoff int64) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	removed := 0
	for rb.size > 0 {
		oldest := rb.oldestLocked()
		if rb.data[oldest].Timestamp >= cutoff {
			break
		}
		rb.data[oldest] = models.MBufferEntry{}
		rb.size--
		removed++
	}

	if removed > 0 {
		rb.revision++
	}
	return removed
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (rb *RingBuffer) Size() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.size
}

// -----------------------------------------------------------------------------

// Capacity returns buffer capacity
func (rb *RingBuffer) Capacity() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.capacity
}

// -----------------------------------------------------------------------------

// Revision increments on every mutation
func (rb *RingBuffer) Revision() uint64 {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.revision
}

// -----------------------------------------------------------------------------

// Resize changes the capacity of the buffer
// If newCapacity < size, oldest data is dropped
func (rb *RingBuffer) Resize(newCapacity int) {
	if newCapacity <= 0 {
		return
	}

	rb.mu.Lock()
	defer rb.mu.Unlock()

	if newCapacity == rb.capacity {
		return
	}

	count := rb.size
	if count > newCapacity {
		count = newCapacity
	}

	// keep the newest `count` entries
	newData := make([]models.MBufferEntry, newCapacity)
	startIdx := (rb.index - count + rb.capacity) % rb.capacity
	for i := 0; i < count; i++ {
		newData[i] = rb.data[(startIdx+i)%rb.capacity]
	}

	rb.data = newData
	rb.capacity = newCapacity
	rb.size = count
	rb.index = count % newCapacity
	rb.revision++
}

// -----------------------------------------------------------------------------

// IsFull returns whether buffer is full
func (rb *RingBuffer) IsFull() bool {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.size == rb.capacity
}

// -----------------------------------------------------------------------------

// Clear resets the buffer
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.index = 0
	rb.size = 0
	rb.revision++
}
