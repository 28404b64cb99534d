package models

import (
	"github.com/goccy/go-json"
)

// -----------------------------------------------------------------------------
// Frame types
// -----------------------------------------------------------------------------

// Inbound
const (
	FrameAuthenticate = "authenticate"
	FrameSubscribe    = "subscribe"
	FrameUnsubscribe  = "unsubscribe"
	FrameHeartbeat    = "heartbeat"
)

// Outbound
const (
	FrameAuthenticationRequired = "authentication_required"
	FrameAuthenticationSuccess  = "authentication_success"
	FrameAuthenticationFailed   = "authentication_failed"
	FrameSubscriptionStatus     = "subscription_status"
	FrameMetricUpdate           = "metric_update"
	FrameKPIUpdate              = "kpi_update"
	FrameAlert                  = "alert"
	FrameError                  = "error"
)

// Error codes carried by error frames.
const (
	ErrCodeInvalidMessage      = "invalid_message"
	ErrCodeUnknownType         = "unknown_type"
	ErrCodeNotAuthenticated    = "not_authenticated"
	ErrCodeInvalidSubscription = "invalid_subscription"
	ErrCodeRateLimited         = "rate_limited"
	ErrCodeInternal            = "internal"
)

// Trends reported in MChange.
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

// -----------------------------------------------------------------------------
// Envelopes
// -----------------------------------------------------------------------------

type MInboundFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type MOutboundFrame struct {
	Type           string      `json:"type"`
	Timestamp      int64       `json:"timestamp"`
	SubscriptionID string      `json:"subscriptionId,omitempty"`
	Payload        interface{} `json:"payload"`
	SequenceNumber uint64      `json:"sequenceNumber"`
}

// -----------------------------------------------------------------------------
// Inbound payloads
// -----------------------------------------------------------------------------

type MAuthenticatePayload struct {
	Token    string `json:"token"`
	TenantID string `json:"tenantId"`
	UserID   string `json:"userId"`
}

type MSubscribePayload struct {
	MetricIDs          []string        `json:"metricIds"`
	KPIIDs             []string        `json:"kpiIds"`
	Filters            []MStreamFilter `json:"filters"`
	AggregationLevel   string          `json:"aggregationLevel"`
	MaxUpdateFrequency int             `json:"maxUpdateFrequency"` // milliseconds
}

type MUnsubscribePayload struct {
	SubscriptionID string `json:"subscriptionId"`
}

// -----------------------------------------------------------------------------
// Outbound payloads
// -----------------------------------------------------------------------------

// MChange compares a value with the previous buffered one.
type MChange struct {
	Absolute   float64 `json:"absolute"`
	Percentage float64 `json:"percentage"`
	Trend      string  `json:"trend"`
}

type MMetricUpdatePayload struct {
	MetricID    string        `json:"metricId"`
	Current     MMetricValue  `json:"current"`
	Previous    *MMetricValue `json:"previous,omitempty"`
	Change      MChange       `json:"change"`
	Aggregation *MAggregation `json:"aggregation,omitempty"`
	Initial     bool          `json:"initial,omitempty"`
}

type MKPIUpdatePayload struct {
	KPIID   string     `json:"kpiId"`
	Current MKPIUpdate `json:"current"`
	Change  MChange    `json:"change"`
	Initial bool       `json:"initial,omitempty"`
}

type MSubscriptionStatusPayload struct {
	SubscriptionID     string   `json:"subscriptionId"`
	Status             string   `json:"status"` // active, inactive
	MetricIDs          []string `json:"metricIds,omitempty"`
	KPIIDs             []string `json:"kpiIds,omitempty"`
	AggregationLevel   string   `json:"aggregationLevel,omitempty"`
	MaxUpdateFrequency int      `json:"maxUpdateFrequency,omitempty"`
}

type MAuthenticationPayload struct {
	TenantID string `json:"tenantId,omitempty"`
	UserID   string `json:"userId,omitempty"`
	Message  string `json:"message,omitempty"`
}

type MHeartbeatPayload struct {
	Status string `json:"status"` // ok, ping
}

type MErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
