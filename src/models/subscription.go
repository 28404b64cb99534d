package models

import "time"

// Filter operators.
const (
	FilterEq       = "eq"
	FilterNe       = "ne"
	FilterGt       = "gt"
	FilterGte      = "gte"
	FilterLt       = "lt"
	FilterLte      = "lte"
	FilterIn       = "in"
	FilterContains = "contains"
)

// Subscription statuses.
const (
	SubscriptionActive   = "active"
	SubscriptionInactive = "inactive"
)

// MStreamFilter is a single predicate evaluated against an update payload.
// Field is a dot-separated path (e.g. "tags.host").
type MStreamFilter struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
}

// -----------------------------------------------------------------------------

// MSubscription is a client's standing request for a slice of the feed.
type MSubscription struct {
	ID                  string          `json:"id"`
	ClientID            string          `json:"clientId"`
	TenantID            string          `json:"tenantId"`
	UserID              string          `json:"userId"`
	MetricIDs           []string        `json:"metricIds"`
	KPIIDs              []string        `json:"kpiIds"`
	Filters             []MStreamFilter `json:"filters"`
	AggregationLevel    string          `json:"aggregationLevel"`
	MinUpdateIntervalMs int             `json:"maxUpdateFrequency"`
	Active              bool            `json:"active"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}
