package helpers

import (
	"testing"

	"metrics-broker/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMetricValues(t *testing.T) {
	values, err := DecodeMetricValues([]byte(` {"metricId":"cpu","value":1.5,"tags":{"host":"a"}}`))
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, "a", values[0].Tags["host"])

	values, err = DecodeMetricValues([]byte(`[{"metricId":"a","value":1},{"metricId":"b","value":2}]`))
	require.NoError(t, err)
	assert.Len(t, values, 2)

	_, err = DecodeMetricValues([]byte(`[{"metricId":"a"},{"value":2}]`))
	assert.ErrorContains(t, err, "value 1")

	_, err = DecodeMetricValues([]byte("  "))
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestDecodeKPIUpdate(t *testing.T) {
	u, err := DecodeKPIUpdate([]byte(`{"kpiId":"sla","data":{"value":99.9,"region":"eu"}}`))
	require.NoError(t, err)
	assert.Equal(t, "eu", u.Data["region"])

	_, err = DecodeKPIUpdate([]byte(`{"data":{}}`))
	assert.Error(t, err)
}

func TestDecodeAlert(t *testing.T) {
	alert, err := DecodeAlert([]byte(`{"kpiId":"sla"}`))
	require.NoError(t, err)
	assert.Equal(t, models.SeverityInfo, alert.Severity)

	_, err = DecodeAlert([]byte(`{"metricId":"cpu","severity":"apocalyptic"}`))
	assert.Error(t, err)

	_, err = DecodeAlert([]byte(`{"severity":"critical"}`))
	assert.Error(t, err)
}
