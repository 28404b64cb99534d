package broker

import (
	"time"

	"metrics-broker/src/models"
)

// Options tunes a Broker. Durations are resolved from the YAML millisecond
// and second fields by OptionsFromConfig.
type Options struct {
	MaxConnections         int
	HeartbeatInterval      time.Duration
	BufferSize             int
	CompressionEnabled     bool
	RateLimitPerClient     int
	AuthenticationRequired bool
	MinUpdateInterval      time.Duration
	SendQueueSize          int
	AggregationCacheTTL    time.Duration
	BufferRetention        time.Duration
	JanitorInterval        time.Duration
	StaleConnectionTimeout time.Duration
	CoalesceFlushInterval  time.Duration
	MaxMemoryMB            int
	MetricCatalog          []string
	KPICatalog             []string
}

// -----------------------------------------------------------------------------

func DefaultOptions() Options {
	return Options{
		MaxConnections:         1000,
		HeartbeatInterval:      30 * time.Second,
		BufferSize:             1000,
		RateLimitPerClient:     100,
		MinUpdateInterval:      time.Second,
		SendQueueSize:          256,
		AggregationCacheTTL:    time.Minute,
		BufferRetention:        24 * time.Hour,
		JanitorInterval:        5 * time.Minute,
		StaleConnectionTimeout: 10 * time.Minute,
		CoalesceFlushInterval:  100 * time.Millisecond,
	}
}

// -----------------------------------------------------------------------------

// OptionsFromConfig maps the broker section of the config onto Options.
// Zero values keep the defaults.
func OptionsFromConfig(cfg *models.MConfig) Options {
	opts := DefaultOptions()
	if cfg == nil {
		return opts
	}

	b := cfg.Broker
	if b.MaxConnections > 0 {
		opts.MaxConnections = b.MaxConnections
	}
	if b.HeartbeatIntervalMs > 0 {
		opts.HeartbeatInterval = time.Duration(b.HeartbeatIntervalMs) * time.Millisecond
	}
	if b.BufferSize > 0 {
		opts.BufferSize = b.BufferSize
	}
	opts.CompressionEnabled = b.CompressionEnabled
	opts.RateLimitPerClient = b.RateLimitPerClient
	opts.AuthenticationRequired = b.AuthenticationRequired
	if b.MinUpdateIntervalMs > 0 {
		opts.MinUpdateInterval = time.Duration(b.MinUpdateIntervalMs) * time.Millisecond
	}
	if b.SendQueueSize > 0 {
		opts.SendQueueSize = b.SendQueueSize
	}
	if b.AggregationCacheTTLSeconds > 0 {
		opts.AggregationCacheTTL = time.Duration(b.AggregationCacheTTLSeconds) * time.Second
	}
	if b.BufferRetentionMinutes > 0 {
		opts.BufferRetention = time.Duration(b.BufferRetentionMinutes) * time.Minute
	}
	if b.JanitorIntervalSeconds > 0 {
		opts.JanitorInterval = time.Duration(b.JanitorIntervalSeconds) * time.Second
	}
	if b.StaleConnectionTimeoutSeconds > 0 {
		opts.StaleConnectionTimeout = time.Duration(b.StaleConnectionTimeoutSeconds) * time.Second
	}
	opts.MetricCatalog = append([]string(nil), b.MetricCatalog...)
	opts.KPICatalog = append([]string(nil), b.KPICatalog...)
	return opts
}

// -----------------------------------------------------------------------------

// withDefaults fills the fields the background loops cannot run without
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = d.HeartbeatInterval
	}
	if o.BufferSize <= 0 {
		o.BufferSize = d.BufferSize
	}
	if o.AggregationCacheTTL <= 0 {
		o.AggregationCacheTTL = d.AggregationCacheTTL
	}
	if o.BufferRetention <= 0 {
		o.BufferRetention = d.BufferRetention
	}
	if o.JanitorInterval <= 0 {
		o.JanitorInterval = d.JanitorInterval
	}
	if o.StaleConnectionTimeout <= 0 {
		o.StaleConnectionTimeout = d.StaleConnectionTimeout
	}
	if o.CoalesceFlushInterval <= 0 {
		o.CoalesceFlushInterval = d.CoalesceFlushInterval
	}
	if o.MinUpdateInterval < 0 {
		o.MinUpdateInterval = 0
	}
	return o
}
