package models

// MMetricValue is a single published sample of a metric.
type MMetricValue struct {
	MetricID  string                 `json:"metricId"`
	Value     float64                `json:"value"`
	Timestamp int64                  `json:"timestamp"` // unix milliseconds
	Unit      string                 `json:"unit,omitempty"`
	Tags      map[string]string      `json:"tags,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// -----------------------------------------------------------------------------

// MKPIUpdate carries the latest computed state of a KPI.
// Data is free-form; a numeric "value" key is used for change tracking.
type MKPIUpdate struct {
	KPIID     string                 `json:"kpiId"`
	Data      map[string]interface{} `json:"data"`
	Timestamp int64                  `json:"timestamp"`
}

// -----------------------------------------------------------------------------

// Alert severities
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// MAlert targets a metric, a KPI, or both.
type MAlert struct {
	ID        string  `json:"id"`
	Severity  string  `json:"severity"` // info, warning, critical
	Message   string  `json:"message"`
	MetricID  string  `json:"metricId,omitempty"`
	KPIID     string  `json:"kpiId,omitempty"`
	Value     float64 `json:"value,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Timestamp int64   `json:"timestamp"`
}
