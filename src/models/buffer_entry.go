package models

// MBufferEntry is one slot of a per-id ring buffer.
// For metrics Payload holds the value's metadata, for KPIs the KPI data.
type MBufferEntry struct {
	Timestamp int64                  `json:"timestamp"` // unix milliseconds
	Value     float64                `json:"value"`
	HasValue  bool                   `json:"-"`
	Unit      string                 `json:"unit,omitempty"`
	Tags      map[string]string      `json:"tags,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}
