package broker

import (
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// pendingFrame is an update held back until its interval elapses.
// The sequence number is assigned when it is finally sent.
type pendingFrame struct {
	clientID       string
	subscriptionID string
	frameType      string
	payload        interface{}
}

type coalesceSlot struct {
	interval time.Duration
	lastSent time.Time
	pending  *pendingFrame
}

type subscriptionSlots struct {
	mu      sync.Mutex
	streams map[string]*coalesceSlot
}

// -----------------------------------------------------------------------------
// Coalescer keeps at most one live frame per (subscription, stream) per
// interval. Frames arriving early replace the pending one.
// -----------------------------------------------------------------------------

type Coalescer struct {
	subs *xsync.MapOf[string, *subscriptionSlots]
}

func NewCoalescer() *Coalescer {
	return &Coalescer{subs: xsync.NewMapOf[string, *subscriptionSlots]()}
}

// -----------------------------------------------------------------------------

// Offer decides whether frame goes out now. When it does not, frame becomes
// the pending one for its stream; replaced reports that an older pending
// frame was discarded.
func (c *Coalescer) Offer(stream string, interval time.Duration, now time.Time, frame pendingFrame) (sendNow, replaced bool) {
	if interval <= 0 {
		return true, false
	}

	ss, _ := c.subs.LoadOrCompute(frame.subscriptionID, func() *subscriptionSlots {
		return &subscriptionSlots{streams: make(map[string]*coalesceSlot)}
	})

	ss.mu.Lock()
	defer ss.mu.Unlock()

	slot, ok := ss.streams[stream]
	if !ok {
		slot = &coalesceSlot{}
		ss.streams[stream] = slot
	}
	slot.interval = interval

	if slot.lastSent.IsZero() || now.Sub(slot.lastSent) >= interval {
		replaced = slot.pending != nil
		slot.lastSent = now
		slot.pending = nil
		return true, replaced
	}

	replaced = slot.pending != nil
	f := frame
	slot.pending = &f
	return false, replaced
}

// -----------------------------------------------------------------------------

// Due pops every pending frame whose interval has elapsed
func (c *Coalescer) Due(now time.Time) []pendingFrame {
	var out []pendingFrame
	c.subs.Range(func(_ string, ss *subscriptionSlots) bool {
		ss.mu.Lock()
		for _, slot := range ss.streams {
			if slot.pending != nil && now.Sub(slot.lastSent) >= slot.interval {
				out = append(out, *slot.pending)
				slot.pending = nil
				slot.lastSent = now
			}
		}
		ss.mu.Unlock()
		return true
	})
	return out
}

// -----------------------------------------------------------------------------

// Forget drops all state for a subscription
func (c *Coalescer) Forget(subscriptionID string) {
	c.subs.Delete(subscriptionID)
}

// -----------------------------------------------------------------------------

// Prune drops state for subscriptions that no longer exist
func (c *Coalescer) Prune(exists func(subscriptionID string) bool) int {
	removed := 0
	c.subs.Range(func(id string, _ *subscriptionSlots) bool {
		if !exists(id) {
			c.subs.Delete(id)
			removed++
		}
		return true
	})
	return removed
}

// -----------------------------------------------------------------------------

// Pending counts frames waiting for their interval
func (c *Coalescer) Pending() int {
	n := 0
	c.subs.Range(func(_ string, ss *subscriptionSlots) bool {
		ss.mu.Lock()
		for _, slot := range ss.streams {
			if slot.pending != nil {
				n++
			}
		}
		ss.mu.Unlock()
		return true
	})
	return n
}

func (c *Coalescer) Clear() {
	c.subs.Clear()
}
