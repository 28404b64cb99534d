package models

// Aggregation levels accepted on subscribe.
const (
	AggregationRaw    = "raw"
	AggregationMinute = "minute"
	AggregationHour   = "hour"
	AggregationDay    = "day"
)

// MAggregation summarizes buffered values of one metric over a time window.
type MAggregation struct {
	MetricID  string  `json:"metricId"`
	Period    string  `json:"period"` // minute, hour, day
	StartTime int64   `json:"startTime"`
	EndTime   int64   `json:"endTime"`
	Mean      float64 `json:"mean"`
	Count     int     `json:"count"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	StdDev    float64 `json:"stdDev"`
}
