package models

import "time"

// MClientInfo is a point-in-time view of a connected client.
type MClientInfo struct {
	ID               string    `json:"id"`
	TenantID         string    `json:"tenantId"`
	UserID           string    `json:"userId"`
	RemoteAddr       string    `json:"remoteAddr"`
	Authenticated    bool      `json:"authenticated"`
	SubscriptionIDs  []string  `json:"subscriptionIds"`
	ConnectedAt      time.Time `json:"connectedAt"`
	LastHeartbeat    time.Time `json:"lastHeartbeat"`
	MessageCount     int64     `json:"messageCount"`
	BytesTransferred int64     `json:"bytesTransferred"`
}

// -----------------------------------------------------------------------------

// MServerStats summarizes broker activity.
type MServerStats struct {
	StartedAt            time.Time `json:"startedAt"`
	UptimeSeconds        float64   `json:"uptimeSeconds"`
	ConnectedClients     int       `json:"connectedClients"`
	AuthenticatedClients int       `json:"authenticatedClients"`
	ActiveSubscriptions  int       `json:"activeSubscriptions"`
	BufferedMetrics      int       `json:"bufferedMetrics"`
	BufferedKPIs         int       `json:"bufferedKpis"`
	CachedAggregations   int       `json:"cachedAggregations"`
	MessagesSent         int64     `json:"messagesSent"`
	BytesSent            int64     `json:"bytesSent"`
	FramesDropped        int64     `json:"framesDropped"`
	FramesCoalesced      int64     `json:"framesCoalesced"`
	RateLimited          int64     `json:"rateLimited"`
	Evictions            int64     `json:"evictions"`
	SequenceNumber       uint64    `json:"sequenceNumber"`
}
