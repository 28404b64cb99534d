package broker

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// -----------------------------------------------------------------------------
// ConnectionRegistry tracks connected clients by id.
// -----------------------------------------------------------------------------

type ConnectionRegistry struct {
	clients *xsync.MapOf[string, *clientState]
	count   atomic.Int64
	max     int
}

func NewConnectionRegistry(maxConnections int) *ConnectionRegistry {
	return &ConnectionRegistry{
		clients: xsync.NewMapOf[string, *clientState](),
		max:     maxConnections,
	}
}

// -----------------------------------------------------------------------------

// Add reserves a slot for c, failing when the registry is full
func (r *ConnectionRegistry) Add(c *clientState) error {
	if n := r.count.Add(1); r.max > 0 && n > int64(r.max) {
		r.count.Add(-1)
		return ErrTooManyConnections
	}
	r.clients.Store(c.id, c)
	return nil
}

// -----------------------------------------------------------------------------

func (r *ConnectionRegistry) Get(id string) (*clientState, bool) {
	return r.clients.Load(id)
}

// -----------------------------------------------------------------------------

// Remove deletes id and returns the removed client
func (r *ConnectionRegistry) Remove(id string) (*clientState, bool) {
	c, ok := r.clients.LoadAndDelete(id)
	if ok {
		r.count.Add(-1)
	}
	return c, ok
}

// -----------------------------------------------------------------------------

// RemoveIf deletes id only while it still maps to c
func (r *ConnectionRegistry) RemoveIf(c *clientState) bool {
	removed := false
	r.clients.Compute(c.id, func(old *clientState, loaded bool) (*clientState, bool) {
		if !loaded {
			return old, true
		}
		if old != c {
			return old, false
		}
		removed = true
		return nil, true
	})
	if removed {
		r.count.Add(-1)
	}
	return removed
}

// -----------------------------------------------------------------------------

// Snapshot copies the current clients
func (r *ConnectionRegistry) Snapshot() []*clientState {
	out := make([]*clientState, 0, r.clients.Size())
	r.clients.Range(func(_ string, c *clientState) bool {
		out = append(out, c)
		return true
	})
	return out
}

// -----------------------------------------------------------------------------

func (r *ConnectionRegistry) Len() int {
	return int(r.count.Load())
}
