package broker

import (
	"metrics-broker/src/models"

	"github.com/puzpuzpuz/xsync/v3"
)

// idSet is never mutated once stored in an index; writers swap in a copy.
type idSet map[string]struct{}

// -----------------------------------------------------------------------------
// SubscriptionRegistry holds subscriptions by id plus reverse indexes from
// metric and KPI ids to the subscriptions covering them.
// -----------------------------------------------------------------------------

type SubscriptionRegistry struct {
	byID     *xsync.MapOf[string, *models.MSubscription]
	byMetric *xsync.MapOf[string, idSet]
	byKPI    *xsync.MapOf[string, idSet]
}

func NewSubscriptionRegistry() *SubscriptionRegistry {
	return &SubscriptionRegistry{
		byID:     xsync.NewMapOf[string, *models.MSubscription](),
		byMetric: xsync.NewMapOf[string, idSet](),
		byKPI:    xsync.NewMapOf[string, idSet](),
	}
}

// -----------------------------------------------------------------------------

// Add indexes sub and then stores it. sub must not be modified afterwards.
// A Remove that lands before the store misses; callers racing a disconnect
// follow up with Discard.
func (r *SubscriptionRegistry) Add(sub *models.MSubscription) {
	r.index(sub)
	r.byID.Store(sub.ID, sub)
}

func (r *SubscriptionRegistry) index(sub *models.MSubscription) {
	for _, id := range sub.MetricIDs {
		addToIndex(r.byMetric, id, sub.ID)
	}
	for _, id := range sub.KPIIDs {
		addToIndex(r.byKPI, id, sub.ID)
	}
}

func (r *SubscriptionRegistry) unindex(sub *models.MSubscription) {
	for _, m := range sub.MetricIDs {
		removeFromIndex(r.byMetric, m, sub.ID)
	}
	for _, k := range sub.KPIIDs {
		removeFromIndex(r.byKPI, k, sub.ID)
	}
}

// -----------------------------------------------------------------------------

// Remove drops id from the registry and every index
func (r *SubscriptionRegistry) Remove(id string) (*models.MSubscription, bool) {
	sub, ok := r.byID.LoadAndDelete(id)
	if !ok {
		return nil, false
	}
	r.unindex(sub)
	return sub, true
}

// -----------------------------------------------------------------------------

// Discard removes sub and its index entries whether or not it is stored
func (r *SubscriptionRegistry) Discard(sub *models.MSubscription) {
	r.byID.Delete(sub.ID)
	r.unindex(sub)
}

// -----------------------------------------------------------------------------

func (r *SubscriptionRegistry) Get(id string) (*models.MSubscription, bool) {
	return r.byID.Load(id)
}

// -----------------------------------------------------------------------------

// MatchMetric returns the subscriptions indexed under metricID
func (r *SubscriptionRegistry) MatchMetric(metricID string) []*models.MSubscription {
	return r.resolve(r.byMetric, metricID, nil)
}

// MatchKPI returns the subscriptions indexed under kpiID
func (r *SubscriptionRegistry) MatchKPI(kpiID string) []*models.MSubscription {
	return r.resolve(r.byKPI, kpiID, nil)
}

// MatchAlert returns subscriptions covering either target, each once
func (r *SubscriptionRegistry) MatchAlert(metricID, kpiID string) []*models.MSubscription {
	seen := make(map[string]struct{})
	var out []*models.MSubscription
	if metricID != "" {
		out = r.resolve(r.byMetric, metricID, seen)
	}
	if kpiID != "" {
		out = append(out, r.resolve(r.byKPI, kpiID, seen)...)
	}
	return out
}

// -----------------------------------------------------------------------------

func (r *SubscriptionRegistry) resolve(index *xsync.MapOf[string, idSet], key string, seen map[string]struct{}) []*models.MSubscription {
	ids, ok := index.Load(key)
	if !ok {
		return nil
	}

	out := make([]*models.MSubscription, 0, len(ids))
	for id := range ids {
		if seen != nil {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
		}
		if sub, ok := r.byID.Load(id); ok {
			out = append(out, sub)
		}
	}
	return out
}

// -----------------------------------------------------------------------------

// IndexedMetric reports whether any subscription covers metricID
func (r *SubscriptionRegistry) IndexedMetric(metricID string) bool {
	_, ok := r.byMetric.Load(metricID)
	return ok
}

// IndexedKPI reports whether any subscription covers kpiID
func (r *SubscriptionRegistry) IndexedKPI(kpiID string) bool {
	_, ok := r.byKPI.Load(kpiID)
	return ok
}

// -----------------------------------------------------------------------------

func (r *SubscriptionRegistry) All() []models.MSubscription {
	out := make([]models.MSubscription, 0, r.byID.Size())
	r.byID.Range(func(_ string, sub *models.MSubscription) bool {
		out = append(out, *sub)
		return true
	})
	return out
}

func (r *SubscriptionRegistry) Len() int {
	return r.byID.Size()
}

// -----------------------------------------------------------------------------

func (r *SubscriptionRegistry) Clear() {
	r.byID.Clear()
	r.byMetric.Clear()
	r.byKPI.Clear()
}

// -----------------------------------------------------------------------------

func addToIndex(index *xsync.MapOf[string, idSet], key, subID string) {
	index.Compute(key, func(old idSet, loaded bool) (idSet, bool) {
		next := make(idSet, len(old)+1)
		for id := range old {
			next[id] = struct{}{}
		}
		next[subID] = struct{}{}
		return next, false
	})
}

// -----------------------------------------------------------------------------

func removeFromIndex(index *xsync.MapOf[string, idSet], key, subID string) {
	index.Compute(key, func(old idSet, loaded bool) (idSet, bool) {
		if !loaded {
			return old, true
		}
		if _, ok := old[subID]; !ok {
			return old, false
		}
		if len(old) == 1 {
			return nil, true
		}
		next := make(idSet, len(old)-1)
		for id := range old {
			if id != subID {
				next[id] = struct{}{}
			}
		}
		return next, false
	})
}
