package broker

import (
	"maps"
	"time"

	"metrics-broker/src/analysis"
	"metrics-broker/src/analysis/core"
	"metrics-broker/src/models"
	"metrics-broker/src/utils"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const (
	metricStream = "metric:"
	kpiStream    = "kpi:"
)

// -----------------------------------------------------------------------------

func metricEntry(v models.MMetricValue) models.MBufferEntry {
	return models.MBufferEntry{
		Timestamp: v.Timestamp,
		Value:     v.Value,
		HasValue:  true,
		Unit:      v.Unit,
		Tags:      v.Tags,
		Payload:   v.Metadata,
	}
}

func metricFromEntry(metricID string, e models.MBufferEntry) models.MMetricValue {
	return models.MMetricValue{
		MetricID:  metricID,
		Value:     e.Value,
		Timestamp: e.Timestamp,
		Unit:      e.Unit,
		Tags:      e.Tags,
		Metadata:  e.Payload,
	}
}

// -----------------------------------------------------------------------------

// computeChange compares current with the previous value, if any
func computeChange(previous float64, hasPrevious bool, current float64) models.MChange {
	if !hasPrevious {
		return models.MChange{Trend: models.TrendStable}
	}

	abs := current - previous
	change := models.MChange{
		Absolute:   abs,
		Percentage: core.CalculatePercentChange(previous, current),
		Trend:      models.TrendStable,
	}
	switch {
	case abs > 0:
		change.Trend = models.TrendUp
	case abs < 0:
		change.Trend = models.TrendDown
	}
	return change
}

// -----------------------------------------------------------------------------

// filterDoc lazily encodes the document filters are evaluated against
type filterDoc struct {
	build func() interface{}
	raw   []byte
	err   error
	done  bool
}

func (d *filterDoc) bytes() ([]byte, error) {
	if !d.done {
		d.raw, d.err = json.Marshal(d.build())
		d.done = true
	}
	return d.raw, d.err
}

// -----------------------------------------------------------------------------

func (b *Broker) passes(sub *models.MSubscription, doc *filterDoc) bool {
	if len(sub.Filters) == 0 {
		return true
	}
	raw, err := doc.bytes()
	if err != nil {
		b.log.Warning("Failed to encode filter document: %v", err)
		return false
	}
	return MatchFilters(sub.Filters, raw)
}

// -----------------------------------------------------------------------------

// liveClient resolves the owner of sub, skipping closed connections
func (b *Broker) liveClient(sub *models.MSubscription) (*clientState, bool) {
	c, ok := b.clients.Get(sub.ClientID)
	if !ok || c.isClosed() {
		return nil, false
	}
	return c, true
}

// -----------------------------------------------------------------------------

// deliver routes a live update through the coalescer
func (b *Broker) deliver(c *clientState, sub *models.MSubscription, stream, frameType string, payload interface{}) {
	interval := time.Duration(sub.MinUpdateIntervalMs) * time.Millisecond
	sendNow, replaced := b.coalescer.Offer(stream, interval, b.now(), pendingFrame{
		clientID:       c.id,
		subscriptionID: sub.ID,
		frameType:      frameType,
		payload:        payload,
	})
	if replaced {
		b.framesCoalesced.Add(1)
		b.metrics.FrameCoalesced()
	}
	if sendNow {
		b.send(c, frameType, sub.ID, payload)
	}
}

// -----------------------------------------------------------------------------

// FlushCoalesced sends pending frames whose interval has elapsed
func (b *Broker) FlushCoalesced() int {
	sent := 0
	for _, f := range b.coalescer.Due(b.now()) {
		c, ok := b.clients.Get(f.clientID)
		if !ok || c.isClosed() {
			continue
		}
		if _, ok := b.subscriptions.Get(f.subscriptionID); !ok {
			continue
		}
		if b.send(c, f.frameType, f.subscriptionID, f.payload) {
			sent++
		}
	}
	return sent
}

// -----------------------------------------------------------------------------

// PublishMetricUpdate buffers value and fans it out to matching subscriptions
func (b *Broker) PublishMetricUpdate(value models.MMetricValue) {
	if b.closed.Load() {
		return
	}
	if value.MetricID == "" {
		b.log.Warning("Dropping metric value without id")
		return
	}
	if value.Timestamp == 0 {
		value.Timestamp = utils.NowMillis(b.now())
	}

	res := b.metricBuffers.AddDataPoint(value.MetricID, metricEntry(value))
	b.metrics.Published("metric")
	if b.archive != nil && !b.archive.Record(value) {
		b.metrics.ArchiveDropped()
	}

	subs := b.subscriptions.MatchMetric(value.MetricID)
	if len(subs) == 0 {
		return
	}

	var previous *models.MMetricValue
	if res.HasPrevious {
		p := metricFromEntry(value.MetricID, res.Previous)
		previous = &p
	}
	change := computeChange(res.Previous.Value, res.HasPrevious, value.Value)
	doc := &filterDoc{build: func() interface{} { return value }}
	buffer := b.metricBuffers.GetBuffer(value.MetricID)

	for _, sub := range subs {
		if !b.passes(sub, doc) {
			continue
		}
		c, ok := b.liveClient(sub)
		if !ok {
			continue
		}

		payload := models.MMetricUpdatePayload{
			MetricID: value.MetricID,
			Current:  value,
			Previous: previous,
			Change:   change,
		}
		payload.Aggregation = b.aggregate(value.MetricID, sub.AggregationLevel, buffer)

		b.deliver(c, sub, metricStream+value.MetricID, models.FrameMetricUpdate, payload)
	}
}

// -----------------------------------------------------------------------------

func (b *Broker) aggregate(metricID, level string, buffer *utils.RingBuffer) *models.MAggregation {
	if level == "" || level == models.AggregationRaw {
		return nil
	}
	if _, ok := analysis.LevelPeriod(level); !ok {
		return nil
	}
	agg, ok := b.aggregations.Get(metricID, level, buffer)
	if !ok {
		return nil
	}
	return &agg
}

// -----------------------------------------------------------------------------

// kpiDocument flattens a KPI update for filtering: data keys sit at the top
// level next to kpiId and timestamp.
func kpiDocument(update models.MKPIUpdate) map[string]interface{} {
	doc := make(map[string]interface{}, len(update.Data)+2)
	for k, v := range update.Data {
		doc[k] = v
	}
	doc["kpiId"] = update.KPIID
	doc["timestamp"] = update.Timestamp
	return doc
}

// -----------------------------------------------------------------------------

// PublishKPIUpdate buffers a KPI snapshot and fans it out. A numeric "value"
// key in data drives change tracking.
func (b *Broker) PublishKPIUpdate(kpiID string, data map[string]interface{}) {
	if b.closed.Load() {
		return
	}
	if kpiID == "" {
		b.log.Warning("Dropping KPI update without id")
		return
	}

	data = maps.Clone(data)
	if data == nil {
		data = map[string]interface{}{}
	}

	update := models.MKPIUpdate{KPIID: kpiID, Data: data, Timestamp: utils.NowMillis(b.now())}
	value, hasValue := toFloat(data["value"])

	res := b.kpiBuffers.AddDataPoint(kpiID, models.MBufferEntry{
		Timestamp: update.Timestamp,
		Value:     value,
		HasValue:  hasValue,
		Payload:   data,
	})
	b.metrics.Published("kpi")

	subs := b.subscriptions.MatchKPI(kpiID)
	if len(subs) == 0 {
		return
	}

	change := models.MChange{Trend: models.TrendStable}
	if hasValue {
		change = computeChange(res.Previous.Value, res.HasPrevious && res.Previous.HasValue, value)
	}
	doc := &filterDoc{build: func() interface{} { return kpiDocument(update) }}

	for _, sub := range subs {
		if !b.passes(sub, doc) {
			continue
		}
		c, ok := b.liveClient(sub)
		if !ok {
			continue
		}

		b.deliver(c, sub, kpiStream+kpiID, models.FrameKPIUpdate, models.MKPIUpdatePayload{
			KPIID:   kpiID,
			Current: update,
			Change:  change,
		})
	}
}

// -----------------------------------------------------------------------------

// PublishAlert sends alert to every subscription covering its metric or KPI.
// Alerts are neither buffered nor coalesced.
func (b *Broker) PublishAlert(alert models.MAlert) {
	if b.closed.Load() {
		return
	}
	if alert.MetricID == "" && alert.KPIID == "" {
		b.log.Warning("Dropping alert %q without target", alert.Message)
		return
	}
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if alert.Timestamp == 0 {
		alert.Timestamp = utils.NowMillis(b.now())
	}
	b.metrics.Published("alert")

	doc := &filterDoc{build: func() interface{} { return alert }}
	for _, sub := range b.subscriptions.MatchAlert(alert.MetricID, alert.KPIID) {
		if !b.passes(sub, doc) {
			continue
		}
		c, ok := b.liveClient(sub)
		if !ok {
			continue
		}
		b.send(c, models.FrameAlert, sub.ID, alert)
	}
}

// -----------------------------------------------------------------------------

// sendSnapshots pushes the latest buffered value of every stream sub covers.
// Snapshots bypass the coalescer.
func (b *Broker) sendSnapshots(c *clientState, sub *models.MSubscription) {
	for _, id := range sub.MetricIDs {
		e, ok := b.metricBuffers.Latest(id)
		if !ok {
			continue
		}
		current := metricFromEntry(id, e)
		if !b.passes(sub, &filterDoc{build: func() interface{} { return current }}) {
			continue
		}
		b.send(c, models.FrameMetricUpdate, sub.ID, models.MMetricUpdatePayload{
			MetricID:    id,
			Current:     current,
			Change:      models.MChange{Trend: models.TrendStable},
			Aggregation: b.aggregate(id, sub.AggregationLevel, b.metricBuffers.GetBuffer(id)),
			Initial:     true,
		})
	}

	for _, id := range sub.KPIIDs {
		e, ok := b.kpiBuffers.Latest(id)
		if !ok {
			continue
		}
		update := models.MKPIUpdate{KPIID: id, Data: e.Payload, Timestamp: e.Timestamp}
		if !b.passes(sub, &filterDoc{build: func() interface{} { return kpiDocument(update) }}) {
			continue
		}
		b.send(c, models.FrameKPIUpdate, sub.ID, models.MKPIUpdatePayload{
			KPIID:   id,
			Current: update,
			Change:  models.MChange{Trend: models.TrendStable},
			Initial: true,
		})
	}
}
