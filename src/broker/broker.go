package broker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"metrics-broker/src/analysis"
	"metrics-broker/src/interfaces"
	"metrics-broker/src/logger"
	"metrics-broker/src/metrics"
	"metrics-broker/src/models"
	"metrics-broker/src/utils"

	"github.com/goccy/go-json"
)

var (
	ErrTooManyConnections = errors.New("too many connections")
	ErrClientNotFound     = errors.New("client not found")
	ErrBrokerClosed       = errors.New("broker closed")
)

var _ interfaces.IBrokerControl = (*Broker)(nil)

// Recorder receives every published metric value, e.g. the storage archiver
type Recorder interface {
	Record(value models.MMetricValue) bool
}

// Deps are the broker's collaborators. Only Logger is required.
type Deps struct {
	Validator interfaces.ICredentialValidator
	Metrics   *metrics.Collector
	Archive   Recorder
	Logger    *logger.Logger
	Now       func() time.Time
}

// -----------------------------------------------------------------------------
// Broker fans published metric, KPI and alert updates out to subscribed
// client connections.
// -----------------------------------------------------------------------------

type Broker struct {
	opts      Options
	log       *logger.Logger
	validator interfaces.ICredentialValidator
	metrics   *metrics.Collector
	archive   Recorder
	now       func() time.Time

	clients       *ConnectionRegistry
	subscriptions *SubscriptionRegistry
	metricBuffers *utils.BufferManager
	kpiBuffers    *utils.BufferManager
	aggregations  *analysis.AggregationCache
	coalescer     *Coalescer

	metricCatalog map[string]struct{}
	kpiCatalog    map[string]struct{}

	startedAt time.Time
	sequence  atomic.Uint64 // broker-wide; per client order is kept by clientState.sendMu

	messagesSent    atomic.Int64
	bytesSent       atomic.Int64
	framesDropped   atomic.Int64
	framesCoalesced atomic.Int64
	rateLimited     atomic.Int64
	evictions       atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool
}

// -----------------------------------------------------------------------------

func New(opts Options, deps Deps) *Broker {
	log := deps.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	opts = opts.withDefaults()

	b := &Broker{
		opts:          opts,
		log:           log,
		validator:     deps.Validator,
		metrics:       deps.Metrics,
		archive:       deps.Archive,
		now:           now,
		clients:       NewConnectionRegistry(opts.MaxConnections),
		subscriptions: NewSubscriptionRegistry(),
		metricBuffers: utils.NewBufferManager(opts.BufferSize, opts.MaxMemoryMB, log.Named("MetricBuffers")),
		kpiBuffers:    utils.NewBufferManager(opts.BufferSize, opts.MaxMemoryMB, log.Named("KPIBuffers")),
		aggregations:  analysis.NewAggregationCache(opts.AggregationCacheTTL, now),
		coalescer:     NewCoalescer(),
		metricCatalog: toSet(opts.MetricCatalog),
		kpiCatalog:    toSet(opts.KPICatalog),
		startedAt:     now(),
	}
	return b
}

// -----------------------------------------------------------------------------

func toSet(ids []string) map[string]struct{} {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// -----------------------------------------------------------------------------

// Start launches the liveness, janitor and coalescing loops.
// They stop when ctx is cancelled or Shutdown is called.
func (b *Broker) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed.Load() {
		return ErrBrokerClosed
	}
	if b.cancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	b.wg.Add(3)
	go b.runLiveness(runCtx)
	go b.runJanitor(runCtx)
	go b.runCoalescer(runCtx)

	b.log.Info("Broker started (heartbeat=%v, buffer=%d, rate=%d/s, auth=%v)",
		b.opts.HeartbeatInterval, b.opts.BufferSize, b.opts.RateLimitPerClient, b.opts.AuthenticationRequired)
	return nil
}

// -----------------------------------------------------------------------------

// Shutdown stops background loops, closes every connection and releases all
// state. It is safe to call more than once.
func (b *Broker) Shutdown(ctx context.Context) error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	b.mu.Unlock()

	for _, c := range b.clients.Snapshot() {
		b.disconnect(c)
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	b.subscriptions.Clear()
	b.coalescer.Clear()
	b.aggregations.Clear()
	b.metricBuffers.Cleanup()
	b.kpiBuffers.Cleanup()
	b.updateGauges()

	b.log.Info("Broker stopped (sent=%d dropped=%d)", b.messagesSent.Load(), b.framesDropped.Load())
	return err
}

// -----------------------------------------------------------------------------

// LoadHistory seeds the metric buffers without fanning anything out.
// Values are expected oldest first per metric.
func (b *Broker) LoadHistory(history map[string][]models.MMetricValue) int {
	n := 0
	for id, values := range history {
		for _, v := range values {
			v.MetricID = id
			b.metricBuffers.AddDataPoint(id, metricEntry(v))
			n++
		}
	}
	return n
}

// -----------------------------------------------------------------------------

// Options returns the effective configuration
func (b *Broker) Options() Options {
	return b.opts
}

// -----------------------------------------------------------------------------
// Outbound frames
// -----------------------------------------------------------------------------

// send stamps, encodes and queues a frame. It never blocks.
func (b *Broker) send(c *clientState, frameType, subscriptionID string, payload interface{}) bool {
	frame := models.MOutboundFrame{
		Type:           frameType,
		Timestamp:      utils.NowMillis(b.now()),
		SubscriptionID: subscriptionID,
		Payload:        payload,
	}

	c.sendMu.Lock()
	frame.SequenceNumber = b.sequence.Add(1)
	data, err := json.Marshal(frame)
	if err != nil {
		c.sendMu.Unlock()
		b.log.Error("Failed to encode %s frame for %s: %v", frameType, c.id, err)
		return false
	}
	queued := c.conn.Send(data)
	c.sendMu.Unlock()

	if !queued {
		b.framesDropped.Add(1)
		b.metrics.FrameDropped()
		return false
	}

	size := int64(len(data))
	c.messageCount.Add(1)
	c.bytesTransferred.Add(size)
	b.messagesSent.Add(1)
	b.bytesSent.Add(size)
	b.metrics.FrameSent(frameType, len(data))
	return true
}

// -----------------------------------------------------------------------------

func (b *Broker) sendError(c *clientState, code, message string) {
	b.send(c, models.FrameError, "", models.MErrorPayload{Code: code, Message: message})
}

// -----------------------------------------------------------------------------
// Accessors
// -----------------------------------------------------------------------------

func (b *Broker) GetConnectedClients() []models.MClientInfo {
	clients := b.clients.Snapshot()
	out := make([]models.MClientInfo, 0, len(clients))
	for _, c := range clients {
		out = append(out, c.info())
	}
	return out
}

// -----------------------------------------------------------------------------

func (b *Broker) GetActiveSubscriptions() []models.MSubscription {
	return b.subscriptions.All()
}

// -----------------------------------------------------------------------------

// ConnectionCount is the number of registered connections
func (b *Broker) ConnectionCount() int {
	return b.clients.Len()
}

// AtCapacity reports whether OnConnect would currently be refused
func (b *Broker) AtCapacity() bool {
	return b.opts.MaxConnections > 0 && b.clients.Len() >= b.opts.MaxConnections
}

// -----------------------------------------------------------------------------

func (b *Broker) GetServerStats() models.MServerStats {
	now := b.now()
	authenticated := 0
	for _, c := range b.clients.Snapshot() {
		if _, _, ok := c.identity(); ok {
			authenticated++
		}
	}

	return models.MServerStats{
		StartedAt:            b.startedAt,
		UptimeSeconds:        now.Sub(b.startedAt).Seconds(),
		ConnectedClients:     b.clients.Len(),
		AuthenticatedClients: authenticated,
		ActiveSubscriptions:  b.subscriptions.Len(),
		BufferedMetrics:      b.metricBuffers.Count(),
		BufferedKPIs:         b.kpiBuffers.Count(),
		CachedAggregations:   b.aggregations.Size(),
		MessagesSent:         b.messagesSent.Load(),
		BytesSent:            b.bytesSent.Load(),
		FramesDropped:        b.framesDropped.Load(),
		FramesCoalesced:      b.framesCoalesced.Load(),
		RateLimited:          b.rateLimited.Load(),
		Evictions:            b.evictions.Load(),
		SequenceNumber:       b.sequence.Load(),
	}
}

// -----------------------------------------------------------------------------

// LatestMetric returns the newest buffered value of a metric
func (b *Broker) LatestMetric(metricID string) (models.MMetricValue, bool) {
	e, ok := b.metricBuffers.Latest(metricID)
	if !ok {
		return models.MMetricValue{}, false
	}
	return metricFromEntry(metricID, e), true
}

// -----------------------------------------------------------------------------

func (b *Broker) updateGauges() {
	b.metrics.SetConnections(b.clients.Len())
	b.metrics.SetSubscriptions(b.subscriptions.Len())
}
