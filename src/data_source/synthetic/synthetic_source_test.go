package synthetic

import (
	"testing"
	"time"

	"metrics-broker/src/logger"
	"metrics-broker/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextWalksEveryMetric(t *testing.T) {
	s := NewSyntheticSource(models.MSourceConfig{
		Name:       "demo",
		Metrics:    []string{"cpu.load", "mem.used"},
		Unit:       "%",
		BaseValue:  50,
		Volatility: 5,
	}, logger.NewNopLogger())

	now := time.UnixMilli(1_700_000_000_000)
	for i := 0; i < 500; i++ {
		values := s.Next(now)
		require.Len(t, values, 2)
		for _, v := range values {
			assert.GreaterOrEqual(t, v.Value, 0.0)
			assert.Equal(t, now.UnixMilli(), v.Timestamp)
			assert.Equal(t, "%", v.Unit)
			assert.Equal(t, "demo", v.Tags["source"])
		}
	}
	assert.Equal(t, []string{"cpu.load", "mem.used"}, s.MetricIDs())
	assert.Equal(t, "synthetic", s.Type())
}

func TestDefaultsApplied(t *testing.T) {
	s := NewSyntheticSource(models.MSourceConfig{Name: "d", Metrics: []string{"x"}}, logger.NewNopLogger())
	assert.Equal(t, 1000, s.SourceConfig.IntervalMs)
	assert.Equal(t, 1.0, s.SourceConfig.Volatility)
}
