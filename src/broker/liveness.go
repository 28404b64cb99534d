package broker

import (
	"context"
	"time"

	"metrics-broker/src/models"
)

// -----------------------------------------------------------------------------

func (b *Broker) runLiveness(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := b.CheckLiveness(); n > 0 {
				b.log.Info("Liveness: evicted %d unresponsive clients", n)
			}
		}
	}
}

// -----------------------------------------------------------------------------

// CheckLiveness evicts clients silent for more than two heartbeat intervals
// and probes the rest. It returns the number of evictions.
func (b *Broker) CheckLiveness() int {
	now := b.now()
	limit := 2 * b.opts.HeartbeatInterval
	evicted := 0

	for _, c := range b.clients.Snapshot() {
		if c.heartbeatAge(now) > limit {
			if b.evict(c, "heartbeat") {
				evicted++
			}
			continue
		}
		b.send(c, models.FrameHeartbeat, "", models.MHeartbeatPayload{Status: "ping"})
	}
	return evicted
}

// -----------------------------------------------------------------------------

// SweepStale is the coarse backstop: it evicts clients whose last heartbeat
// is older than the stale connection timeout.
func (b *Broker) SweepStale() int {
	now := b.now()
	evicted := 0
	for _, c := range b.clients.Snapshot() {
		if c.heartbeatAge(now) > b.opts.StaleConnectionTimeout && b.evict(c, "stale") {
			evicted++
		}
	}
	return evicted
}

// -----------------------------------------------------------------------------

// evict disconnects c if it is still registered
func (b *Broker) evict(c *clientState, reason string) bool {
	if !b.disconnect(c) {
		return false
	}
	b.evictions.Add(1)
	b.metrics.Evicted(reason)
	b.log.Debug("Evicted client %s (%s)", c.id, reason)
	return true
}
