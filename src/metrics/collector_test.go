package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorCounts(t *testing.T) {
	c := NewCollector("test")

	c.FrameSent("metric_update", 120)
	c.FrameSent("metric_update", 80)
	c.FrameSent("alert", 10)
	c.FrameDropped()
	c.Evicted("heartbeat")
	c.Published("metric")
	c.SetConnections(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.framesSent.WithLabelValues("metric_update")))
	assert.Equal(t, 210.0, testutil.ToFloat64(c.bytesSent))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.framesDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.evictions.WithLabelValues("heartbeat")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.connections))
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.FrameSent("x", 1)
		c.FrameDropped()
		c.FrameCoalesced()
		c.RateLimited()
		c.Evicted("stale")
		c.Published("kpi")
		c.Authenticated(false)
		c.SetConnections(1)
		c.SetSubscriptions(1)
		c.ArchiveDropped()
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector("test")
	c.RateLimited()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_rate_limited_total 1")
}
