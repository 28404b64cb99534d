package broker

import (
	"context"
	"time"
)

// JanitorReport summarizes one janitor pass
type JanitorReport struct {
	BufferEntries int
	Aggregations  int
	StaleClients  int
	CoalesceSlots int
}

// -----------------------------------------------------------------------------

func (b *Broker) runJanitor(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.opts.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r := b.RunJanitor()
			b.log.Debug("Janitor: pruned %d entries, %d aggregations, %d stale clients, %d slots",
				r.BufferEntries, r.Aggregations, r.StaleClients, r.CoalesceSlots)
		}
	}
}

// -----------------------------------------------------------------------------

// RunJanitor prunes expired buffer entries and cache entries, and sweeps
// stale clients. Each step is independent and idempotent.
func (b *Broker) RunJanitor() JanitorReport {
	cutoff := b.now().Add(-b.opts.BufferRetention).UnixMilli()

	var r JanitorReport
	r.BufferEntries = b.metricBuffers.PruneOlderThan(cutoff) + b.kpiBuffers.PruneOlderThan(cutoff)
	r.Aggregations = b.aggregations.Prune()
	r.StaleClients = b.SweepStale()
	r.CoalesceSlots = b.coalescer.Prune(func(id string) bool {
		_, ok := b.subscriptions.Get(id)
		return ok
	})
	return r
}

// -----------------------------------------------------------------------------

func (b *Broker) runCoalescer(ctx context.Context) {
	defer b.wg.Done()

	interval := b.opts.CoalesceFlushInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.FlushCoalesced()
		}
	}
}
