package broker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"metrics-broker/src/analysis"
	"metrics-broker/src/helpers"
	"metrics-broker/src/interfaces"
	"metrics-broker/src/models"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const authTimeout = 5 * time.Second

// -----------------------------------------------------------------------------

// OnConnect registers a new connection and returns its client id.
// When authentication is required the client is told so right away.
func (b *Broker) OnConnect(conn interfaces.IClientConnection) (string, error) {
	if b.closed.Load() {
		return "", ErrBrokerClosed
	}

	now := b.now()
	c := newClientState(uuid.NewString(), conn, now, NewRateLimiter(b.opts.RateLimitPerClient, now))
	if !b.opts.AuthenticationRequired {
		c.setIdentity(anonymousTenant, anonymousUser)
	}

	if err := b.clients.Add(c); err != nil {
		b.log.Warning("Rejected connection from %s: %v", c.remoteAddr, err)
		return "", err
	}
	b.updateGauges()

	b.log.Debug("Client %s connected from %s", c.id, c.remoteAddr)

	if b.opts.AuthenticationRequired {
		b.send(c, models.FrameAuthenticationRequired, "", models.MAuthenticationPayload{
			Message: "authenticate before subscribing",
		})
	}
	return c.id, nil
}

// -----------------------------------------------------------------------------

// OnDisconnect removes the client and every subscription it owns. Safe to
// call more than once.
func (b *Broker) OnDisconnect(clientID string) {
	c, ok := b.clients.Get(clientID)
	if !ok {
		return
	}
	b.disconnect(c)
}

// -----------------------------------------------------------------------------

func (b *Broker) disconnect(c *clientState) bool {
	if !b.clients.RemoveIf(c) {
		return false
	}

	subIDs, _ := c.markClosed()
	for _, id := range subIDs {
		b.subscriptions.Remove(id)
		b.coalescer.Forget(id)
	}
	c.conn.Close()
	b.updateGauges()

	b.log.Debug("Client %s disconnected (%d subscriptions released)", c.id, len(subIDs))
	return true
}

// -----------------------------------------------------------------------------

// Touch records transport-level liveness, e.g. a websocket pong
func (b *Broker) Touch(clientID string) {
	if c, ok := b.clients.Get(clientID); ok {
		c.touch(b.now())
	}
}

// -----------------------------------------------------------------------------

// OnFrame handles one inbound frame. Protocol problems are reported to the
// client; only an unknown client id is returned as an error.
func (b *Broker) OnFrame(ctx context.Context, clientID string, raw []byte) error {
	c, ok := b.clients.Get(clientID)
	if !ok {
		return ErrClientNotFound
	}

	if !c.limiter.Allow(b.now()) {
		b.rateLimited.Add(1)
		b.metrics.RateLimited()
		b.sendError(c, models.ErrCodeRateLimited, "rate limit exceeded")
		return nil
	}

	var frame models.MInboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil || frame.Type == "" {
		b.sendError(c, models.ErrCodeInvalidMessage, "malformed frame")
		return nil
	}

	var err error
	switch frame.Type {
	case models.FrameAuthenticate:
		err = b.handleAuthenticate(ctx, c, frame.Payload)
	case models.FrameSubscribe, models.FrameUnsubscribe, models.FrameHeartbeat:
		if _, _, authed := c.identity(); !authed {
			err = helpers.NewProtocolError(models.ErrCodeNotAuthenticated, "authenticate first")
			break
		}
		switch frame.Type {
		case models.FrameSubscribe:
			err = b.handleSubscribe(c, frame.Payload)
		case models.FrameUnsubscribe:
			err = b.handleUnsubscribe(c, frame.Payload)
		default:
			b.handleHeartbeat(c)
		}
	default:
		err = helpers.NewProtocolError(models.ErrCodeUnknownType, "unknown message type %q", frame.Type)
	}

	if err != nil {
		if pe, ok := helpers.AsProtocolError(err); ok {
			b.sendError(c, pe.Code, pe.Message)
		} else {
			b.log.Error("Frame %s from %s failed: %v", frame.Type, c.id, err)
			b.sendError(c, models.ErrCodeInternal, "internal error")
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func decodePayload(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return helpers.NewProtocolError(models.ErrCodeInvalidMessage, "malformed payload: %v", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (b *Broker) handleAuthenticate(ctx context.Context, c *clientState, raw json.RawMessage) error {
	var req models.MAuthenticatePayload
	if err := decodePayload(raw, &req); err != nil {
		return err
	}

	identity, err := b.validate(ctx, req)
	if err != nil {
		b.metrics.Authenticated(false)
		b.log.Info("Authentication failed for %s (tenant=%s user=%s): %v", c.id, req.TenantID, req.UserID, err)
		b.send(c, models.FrameAuthenticationFailed, "", models.MAuthenticationPayload{
			TenantID: req.TenantID,
			UserID:   req.UserID,
			Message:  "invalid credentials",
		})
		return nil
	}

	c.setIdentity(identity.TenantID, identity.UserID)
	c.touch(b.now())
	b.metrics.Authenticated(true)

	b.send(c, models.FrameAuthenticationSuccess, "", models.MAuthenticationPayload{
		TenantID: identity.TenantID,
		UserID:   identity.UserID,
	})
	return nil
}

// -----------------------------------------------------------------------------

func (b *Broker) validate(ctx context.Context, req models.MAuthenticatePayload) (interfaces.Identity, error) {
	if req.Token == "" {
		return interfaces.Identity{}, helpers.NewAuthenticationError("missing token", nil)
	}
	if b.validator == nil {
		if b.opts.AuthenticationRequired {
			return interfaces.Identity{}, helpers.NewAuthenticationError("no credential validator configured", nil)
		}
		return interfaces.Identity{TenantID: req.TenantID, UserID: req.UserID}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	identity, err := b.validator.Validate(ctx, req.Token, req.TenantID, req.UserID)
	if err != nil {
		return interfaces.Identity{}, err
	}
	if identity.TenantID == "" {
		identity.TenantID = req.TenantID
	}
	if identity.UserID == "" {
		identity.UserID = req.UserID
	}
	return identity, nil
}

// -----------------------------------------------------------------------------

func (b *Broker) handleHeartbeat(c *clientState) {
	c.touch(b.now())
	b.send(c, models.FrameHeartbeat, "", models.MHeartbeatPayload{Status: "ok"})
}

// -----------------------------------------------------------------------------

func (b *Broker) handleSubscribe(c *clientState, raw json.RawMessage) error {
	var req models.MSubscribePayload
	if err := decodePayload(raw, &req); err != nil {
		return err
	}

	metricIDs, kpiIDs, err := b.validateSubscription(req)
	if err != nil {
		return err
	}

	level := req.AggregationLevel
	if level == "" {
		level = models.AggregationRaw
	}

	interval := time.Duration(req.MaxUpdateFrequency) * time.Millisecond
	if interval < b.opts.MinUpdateInterval {
		interval = b.opts.MinUpdateInterval
	}

	tenantID, userID, _ := c.identity()
	now := b.now()
	sub := &models.MSubscription{
		ID:                  uuid.NewString(),
		ClientID:            c.id,
		TenantID:            tenantID,
		UserID:              userID,
		MetricIDs:           metricIDs,
		KPIIDs:              kpiIDs,
		Filters:             append([]models.MStreamFilter(nil), req.Filters...),
		AggregationLevel:    level,
		MinUpdateIntervalMs: int(interval / time.Millisecond),
		Active:              true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if !c.addSubscription(sub.ID) {
		return nil
	}
	b.subscriptions.Add(sub)

	// the client may have gone away between addSubscription and Add, in which
	// case its disconnect could have missed the index entries
	if c.isClosed() {
		b.subscriptions.Discard(sub)
		return nil
	}
	b.updateGauges()

	b.send(c, models.FrameSubscriptionStatus, sub.ID, models.MSubscriptionStatusPayload{
		SubscriptionID:     sub.ID,
		Status:             models.SubscriptionActive,
		MetricIDs:          sub.MetricIDs,
		KPIIDs:             sub.KPIIDs,
		AggregationLevel:   sub.AggregationLevel,
		MaxUpdateFrequency: sub.MinUpdateIntervalMs,
	})

	b.sendSnapshots(c, sub)
	return nil
}

// -----------------------------------------------------------------------------

// validateSubscription normalizes the requested ids, dropping duplicates
func (b *Broker) validateSubscription(req models.MSubscribePayload) ([]string, []string, error) {
	invalid := func(format string, args ...interface{}) error {
		return helpers.NewProtocolError(models.ErrCodeInvalidSubscription, format, args...)
	}

	if len(req.MetricIDs) == 0 && len(req.KPIIDs) == 0 {
		return nil, nil, invalid("subscription needs at least one metric or KPI id")
	}

	metricIDs, err := normalizeIDs(req.MetricIDs, b.metricCatalog, "metric")
	if err != nil {
		return nil, nil, invalid("%v", err)
	}
	kpiIDs, err := normalizeIDs(req.KPIIDs, b.kpiCatalog, "KPI")
	if err != nil {
		return nil, nil, invalid("%v", err)
	}

	if !analysis.ValidLevel(req.AggregationLevel) {
		return nil, nil, invalid("unknown aggregation level %q", req.AggregationLevel)
	}
	if req.MaxUpdateFrequency < 0 {
		return nil, nil, invalid("maxUpdateFrequency cannot be negative")
	}
	if err := ValidateFilters(req.Filters); err != nil {
		return nil, nil, invalid("%v", err)
	}

	return metricIDs, kpiIDs, nil
}

// -----------------------------------------------------------------------------

func normalizeIDs(ids []string, catalog map[string]struct{}, kind string) ([]string, error) {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("empty %s id", kind)
		}
		if catalog != nil {
			if _, ok := catalog[id]; !ok {
				return nil, fmt.Errorf("unknown %s id %q", kind, id)
			}
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (b *Broker) handleUnsubscribe(c *clientState, raw json.RawMessage) error {
	var req models.MUnsubscribePayload
	if err := decodePayload(raw, &req); err != nil {
		return err
	}
	if req.SubscriptionID == "" {
		return helpers.NewProtocolError(models.ErrCodeInvalidMessage, "subscriptionId is required")
	}

	// ids the client does not own are ignored
	if c.removeSubscription(req.SubscriptionID) {
		b.subscriptions.Remove(req.SubscriptionID)
		b.coalescer.Forget(req.SubscriptionID)
		b.updateGauges()
	}

	b.send(c, models.FrameSubscriptionStatus, req.SubscriptionID, models.MSubscriptionStatusPayload{
		SubscriptionID: req.SubscriptionID,
		Status:         models.SubscriptionInactive,
	})
	return nil
}
