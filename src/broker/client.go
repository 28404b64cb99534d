package broker

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"metrics-broker/src/interfaces"
	"metrics-broker/src/models"
)

const (
	anonymousTenant = "default"
	anonymousUser   = "anonymous"
)

// -----------------------------------------------------------------------------
// clientState is the broker-side record of one connection.
// -----------------------------------------------------------------------------

type clientState struct {
	id          string
	conn        interfaces.IClientConnection
	remoteAddr  string
	connectedAt time.Time
	limiter     *RateLimiter

	// held from sequence assignment until the frame is queued, so a
	// client's frames leave in sequence order
	sendMu sync.Mutex

	mu              sync.Mutex
	tenantID        string
	userID          string
	authenticated   bool
	subscriptionIDs map[string]struct{}
	lastHeartbeat   time.Time
	closed          bool

	messageCount     atomic.Int64
	bytesTransferred atomic.Int64
}

// -----------------------------------------------------------------------------

func newClientState(id string, conn interfaces.IClientConnection, now time.Time, limiter *RateLimiter) *clientState {
	return &clientState{
		id:              id,
		conn:            conn,
		remoteAddr:      conn.RemoteAddr(),
		connectedAt:     now,
		limiter:         limiter,
		subscriptionIDs: make(map[string]struct{}),
		lastHeartbeat:   now,
	}
}

// -----------------------------------------------------------------------------

func (c *clientState) identity() (tenantID, userID string, authenticated bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tenantID, c.userID, c.authenticated
}

func (c *clientState) setIdentity(tenantID, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tenantID = tenantID
	c.userID = userID
	c.authenticated = true
}

// -----------------------------------------------------------------------------

func (c *clientState) touch(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if now.After(c.lastHeartbeat) {
		c.lastHeartbeat = now
	}
}

func (c *clientState) heartbeatAge(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return now.Sub(c.lastHeartbeat)
}

// -----------------------------------------------------------------------------

// addSubscription fails once the client is closed
func (c *clientState) addSubscription(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.subscriptionIDs[id] = struct{}{}
	return true
}

// removeSubscription reports whether the client owned id
func (c *clientState) removeSubscription(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.subscriptionIDs[id]; !ok {
		return false
	}
	delete(c.subscriptionIDs, id)
	return true
}

// -----------------------------------------------------------------------------

// markClosed flips the client to closed and hands back the subscriptions it
// owned. Only the first call returns them.
func (c *clientState) markClosed() ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, false
	}
	c.closed = true

	ids := make([]string, 0, len(c.subscriptionIDs))
	for id := range c.subscriptionIDs {
		ids = append(ids, id)
	}
	c.subscriptionIDs = make(map[string]struct{})
	return ids, true
}

func (c *clientState) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// -----------------------------------------------------------------------------

func (c *clientState) info() models.MClientInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	subs := make([]string, 0, len(c.subscriptionIDs))
	for id := range c.subscriptionIDs {
		subs = append(subs, id)
	}
	sort.Strings(subs)

	return models.MClientInfo{
		ID:               c.id,
		TenantID:         c.tenantID,
		UserID:           c.userID,
		RemoteAddr:       c.remoteAddr,
		Authenticated:    c.authenticated,
		SubscriptionIDs:  subs,
		ConnectedAt:      c.connectedAt,
		LastHeartbeat:    c.lastHeartbeat,
		MessageCount:     c.messageCount.Load(),
		BytesTransferred: c.bytesTransferred.Load(),
	}
}
