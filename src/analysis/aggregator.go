package analysis

import (
	"time"

	"metrics-broker/src/analysis/core"
	"metrics-broker/src/models"
)

// levelPeriods maps aggregation levels to their trailing window length.
var levelPeriods = map[string]time.Duration{
	models.AggregationMinute: time.Minute,
	models.AggregationHour:   time.Hour,
	models.AggregationDay:    24 * time.Hour,
}

// -----------------------------------------------------------------------------

// LevelPeriod returns the window length for an aggregation level.
// raw and unknown levels report false.
func LevelPeriod(level string) (time.Duration, bool) {
	period, ok := levelPeriods[level]
	return period, ok
}

// -----------------------------------------------------------------------------

// ValidLevel reports whether level is accepted on subscribe ("" means raw)
func ValidLevel(level string) bool {
	if level == "" || level == models.AggregationRaw {
		return true
	}
	_, ok := levelPeriods[level]
	return ok
}

// -----------------------------------------------------------------------------

// Aggregate summarizes entries within [latest-period, latest], where latest
// is the newest timestamp in entries.
func Aggregate(metricID, level string, period time.Duration, entries []models.MBufferEntry) models.MAggregation {
	agg := models.MAggregation{MetricID: metricID, Period: level}
	if len(entries) == 0 {
		return agg
	}

	var end int64
	for _, e := range entries {
		if e.Timestamp > end {
			end = e.Timestamp
		}
	}
	start := end - period.Milliseconds()

	values := make([]float64, 0, len(entries))
	for _, e := range entries {
		if e.Timestamp >= start && e.Timestamp <= end {
			values = append(values, e.Value)
		}
	}

	agg.StartTime = start
	agg.EndTime = end
	agg.Count = len(values)
	agg.Mean, agg.StdDev = core.CalculateMeanStd(values)
	agg.Min, agg.Max = core.CalculateMinMax(values)
	return agg
}
