package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// -----------------------------------------------------------------------------
// Collector owns the broker's Prometheus instruments on a private registry.
// All methods are nil-safe so components can run without metrics.
// -----------------------------------------------------------------------------

type Collector struct {
	registry *prometheus.Registry

	connections     prometheus.Gauge
	subscriptions   prometheus.Gauge
	framesSent      *prometheus.CounterVec
	bytesSent       prometheus.Counter
	framesDropped   prometheus.Counter
	framesCoalesced prometheus.Counter
	rateLimited     prometheus.Counter
	evictions       *prometheus.CounterVec
	publishes       *prometheus.CounterVec
	authResults     *prometheus.CounterVec
	archiveDropped  prometheus.Counter
}

// -----------------------------------------------------------------------------

func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "metrics_broker"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_clients",
			Help:      "Number of open client connections.",
		}),
		subscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_subscriptions",
			Help:      "Number of active subscriptions.",
		}),
		framesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Outbound frames queued to clients, by frame type.",
		}, []string{"type"}),
		bytesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_sent_total",
			Help:      "Encoded bytes queued to clients.",
		}),
		framesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Frames dropped because a client queue was full or closed.",
		}),
		framesCoalesced: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_coalesced_total",
			Help:      "Pending frames replaced by a newer value within the update interval.",
		}),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Inbound frames rejected by the per-client rate limiter.",
		}),
		evictions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evictions_total",
			Help:      "Clients removed by the liveness monitor, by reason.",
		}, []string{"reason"}),
		publishes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publishes_total",
			Help:      "Producer publish calls, by payload kind.",
		}, []string{"kind"}),
		authResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authentications_total",
			Help:      "Authentication attempts, by result.",
		}, []string{"result"}),
		archiveDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_dropped_total",
			Help:      "Metric values that could not be queued for the archive.",
		}),
	}
}

// -----------------------------------------------------------------------------

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry exposes the underlying registry, mostly for tests
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// -----------------------------------------------------------------------------

func (c *Collector) SetConnections(n int) {
	if c == nil {
		return
	}
	c.connections.Set(float64(n))
}

func (c *Collector) SetSubscriptions(n int) {
	if c == nil {
		return
	}
	c.subscriptions.Set(float64(n))
}

// -----------------------------------------------------------------------------

func (c *Collector) FrameSent(frameType string, size int) {
	if c == nil {
		return
	}
	c.framesSent.WithLabelValues(frameType).Inc()
	c.bytesSent.Add(float64(size))
}

func (c *Collector) FrameDropped() {
	if c == nil {
		return
	}
	c.framesDropped.Inc()
}

func (c *Collector) FrameCoalesced() {
	if c == nil {
		return
	}
	c.framesCoalesced.Inc()
}

// -----------------------------------------------------------------------------

func (c *Collector) RateLimited() {
	if c == nil {
		return
	}
	c.rateLimited.Inc()
}

// Evicted records a liveness eviction; reason is "heartbeat" or "stale"
func (c *Collector) Evicted(reason string) {
	if c == nil {
		return
	}
	c.evictions.WithLabelValues(reason).Inc()
}

// -----------------------------------------------------------------------------

// Published records a producer call; kind is "metric", "kpi" or "alert"
func (c *Collector) Published(kind string) {
	if c == nil {
		return
	}
	c.publishes.WithLabelValues(kind).Inc()
}

func (c *Collector) Authenticated(ok bool) {
	if c == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	c.authResults.WithLabelValues(result).Inc()
}

func (c *Collector) ArchiveDropped() {
	if c == nil {
		return
	}
	c.archiveDropped.Inc()
}
