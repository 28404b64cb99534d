package broker

import (
	"context"
	"testing"
	"time"

	"metrics-broker/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnauthenticatedClientMayOnlyAuthenticate(t *testing.T) {
	b, _ := newTestBroker(t, func(o *Options) { o.AuthenticationRequired = true })
	id, conn := connect(t, b)

	sendFrame(t, b, id, models.FrameSubscribe, models.MSubscribePayload{MetricIDs: []string{"m"}})
	sendFrame(t, b, id, models.FrameHeartbeat, map[string]interface{}{})
	sendFrame(t, b, id, models.FrameUnsubscribe, models.MUnsubscribePayload{SubscriptionID: "x"})

	assert.Equal(t, []string{
		models.ErrCodeNotAuthenticated,
		models.ErrCodeNotAuthenticated,
		models.ErrCodeNotAuthenticated,
	}, errorCodes(t, conn))
	assert.Empty(t, b.GetActiveSubscriptions())
	assert.False(t, conn.isClosed())
}

func TestAuthenticationFailureAllowsRetry(t *testing.T) {
	b, _ := newTestBroker(t, func(o *Options) { o.AuthenticationRequired = true })
	id, conn := connect(t, b)

	sendFrame(t, b, id, models.FrameAuthenticate, models.MAuthenticatePayload{Token: "nope", TenantID: "t1", UserID: "u1"})
	assert.Equal(t, models.FrameAuthenticationFailed, conn.last(t).Type)

	sendFrame(t, b, id, models.FrameAuthenticate, models.MAuthenticatePayload{TenantID: "t1"})
	assert.Equal(t, models.FrameAuthenticationFailed, conn.last(t).Type)

	authenticate(t, b, id)
	success := conn.last(t)
	require.Equal(t, models.FrameAuthenticationSuccess, success.Type)
	p := decode[models.MAuthenticationPayload](t, success)
	assert.Equal(t, "t1", p.TenantID)
	assert.Equal(t, "u1", p.UserID)

	clients := b.GetConnectedClients()
	require.Len(t, clients, 1)
	assert.True(t, clients[0].Authenticated)
	assert.Equal(t, "t1", clients[0].TenantID)
}

func TestAnonymousIdentityWhenAuthNotRequired(t *testing.T) {
	b, _ := newTestBroker(t, nil)
	id, conn := connect(t, b)
	assert.Empty(t, conn.all(), "no authentication_required frame")

	subscribe(t, b, id, conn, models.MSubscribePayload{MetricIDs: []string{"m"}})
	subs := b.GetActiveSubscriptions()
	require.Len(t, subs, 1)
	assert.Equal(t, "default", subs[0].TenantID)
	assert.Equal(t, "anonymous", subs[0].UserID)
}

func TestProtocolErrorsKeepConnectionOpen(t *testing.T) {
	b, _ := newTestBroker(t, nil)
	id, conn := connect(t, b)

	require.NoError(t, b.OnFrame(context.Background(), id, []byte("{not json")))
	require.NoError(t, b.OnFrame(context.Background(), id, []byte(`{"payload":{}}`)))
	sendFrame(t, b, id, "dance", nil)
	require.NoError(t, b.OnFrame(context.Background(), id, []byte(`{"type":"subscribe","payload":"oops"}`)))

	assert.Equal(t, []string{
		models.ErrCodeInvalidMessage,
		models.ErrCodeInvalidMessage,
		models.ErrCodeUnknownType,
		models.ErrCodeInvalidMessage,
	}, errorCodes(t, conn))
	assert.False(t, conn.isClosed())
	assert.Len(t, b.GetConnectedClients(), 1)
}

func TestSubscribeValidation(t *testing.T) {
	b, _ := newTestBroker(t, func(o *Options) { o.MetricCatalog = []string{"cpu.load"} })
	id, conn := connect(t, b)

	cases := []models.MSubscribePayload{
		{},
		{MetricIDs: []string{""}},
		{MetricIDs: []string{"unknown.metric"}},
		{MetricIDs: []string{"cpu.load"}, AggregationLevel: "fortnight"},
		{MetricIDs: []string{"cpu.load"}, Filters: []models.MStreamFilter{{Field: "value", Operator: "like", Value: 1}}},
		{MetricIDs: []string{"cpu.load"}, Filters: []models.MStreamFilter{{Field: "", Operator: "eq", Value: 1}}},
		{MetricIDs: []string{"cpu.load"}, MaxUpdateFrequency: -5},
	}
	for _, c := range cases {
		sendFrame(t, b, id, models.FrameSubscribe, c)
	}

	codes := errorCodes(t, conn)
	require.Len(t, codes, len(cases))
	for _, code := range codes {
		assert.Equal(t, models.ErrCodeInvalidSubscription, code)
	}
	assert.Empty(t, b.GetActiveSubscriptions())
}

func TestSubscribeClampsIntervalAndDedupesIDs(t *testing.T) {
	b, _ := newTestBroker(t, func(o *Options) { o.MinUpdateInterval = 500 * time.Millisecond })
	id, conn := connect(t, b)

	subscribe(t, b, id, conn, models.MSubscribePayload{MetricIDs: []string{"a", "a", "b"}, MaxUpdateFrequency: 10})
	subscribe(t, b, id, conn, models.MSubscribePayload{KPIIDs: []string{"k"}, MaxUpdateFrequency: 2000})

	subs := b.GetActiveSubscriptions()
	require.Len(t, subs, 2)
	byInterval := map[int]models.MSubscription{}
	for _, s := range subs {
		byInterval[s.MinUpdateIntervalMs] = s
	}
	assert.Equal(t, []string{"a", "b"}, byInterval[500].MetricIDs)
	assert.Equal(t, models.AggregationRaw, byInterval[500].AggregationLevel)
	assert.Equal(t, []string{"k"}, byInterval[2000].KPIIDs)
}

func TestHeartbeatEchoesAndRefreshesLiveness(t *testing.T) {
	b, clock := newTestBroker(t, nil)
	id, conn := connect(t, b)

	clock.Advance(1500 * time.Millisecond)
	sendFrame(t, b, id, models.FrameHeartbeat, map[string]interface{}{})

	last := conn.last(t)
	assert.Equal(t, models.FrameHeartbeat, last.Type)
	assert.Equal(t, "ok", decode[models.MHeartbeatPayload](t, last).Status)

	clients := b.GetConnectedClients()
	require.Len(t, clients, 1)
	assert.Equal(t, clock.Now(), clients[0].LastHeartbeat)
}

func TestRateLimitRejectsFrameOverBudget(t *testing.T) {
	b, clock := newTestBroker(t, func(o *Options) { o.RateLimitPerClient = 3 })
	id, conn := connect(t, b)

	for i := 0; i < 4; i++ {
		sendFrame(t, b, id, models.FrameHeartbeat, nil)
	}
	assert.Len(t, conn.ofType(models.FrameHeartbeat), 3)
	assert.Equal(t, []string{models.ErrCodeRateLimited}, errorCodes(t, conn))
	assert.Equal(t, int64(1), b.GetServerStats().RateLimited)

	clock.Advance(time.Second)
	sendFrame(t, b, id, models.FrameHeartbeat, nil)
	assert.Equal(t, models.FrameHeartbeat, conn.last(t).Type)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	b, _ := newTestBroker(t, nil)
	id, conn := connect(t, b)
	otherID, otherConn := connect(t, b)

	subID := subscribe(t, b, id, conn, models.MSubscribePayload{MetricIDs: []string{"m"}})
	otherSub := subscribe(t, b, otherID, otherConn, models.MSubscribePayload{MetricIDs: []string{"m"}})

	for i := 0; i < 2; i++ {
		sendFrame(t, b, id, models.FrameUnsubscribe, models.MUnsubscribePayload{SubscriptionID: subID})
		last := conn.last(t)
		assert.Equal(t, models.FrameSubscriptionStatus, last.Type)
		assert.Equal(t, models.SubscriptionInactive, decode[models.MSubscriptionStatusPayload](t, last).Status)
	}

	// unknown and foreign ids are no-ops
	sendFrame(t, b, id, models.FrameUnsubscribe, models.MUnsubscribePayload{SubscriptionID: "does-not-exist"})
	sendFrame(t, b, id, models.FrameUnsubscribe, models.MUnsubscribePayload{SubscriptionID: otherSub})

	assert.Empty(t, errorCodes(t, conn))
	subs := b.GetActiveSubscriptions()
	require.Len(t, subs, 1)
	assert.Equal(t, otherSub, subs[0].ID)

	conn.reset()
	b.PublishMetricUpdate(models.MMetricValue{MetricID: "m", Value: 1})
	assert.Empty(t, conn.ofType(models.FrameMetricUpdate))
	assert.Len(t, otherConn.ofType(models.FrameMetricUpdate), 1)
}

func TestDisconnectCascades(t *testing.T) {
	b, _ := newTestBroker(t, nil)
	id, conn := connect(t, b)
	subscribe(t, b, id, conn, models.MSubscribePayload{MetricIDs: []string{"m"}, KPIIDs: []string{"k"}})
	require.True(t, b.subscriptions.IndexedMetric("m"))

	b.OnDisconnect(id)
	b.OnDisconnect(id)

	assert.True(t, conn.isClosed())
	assert.Empty(t, b.GetConnectedClients())
	assert.Empty(t, b.GetActiveSubscriptions())
	assert.False(t, b.subscriptions.IndexedMetric("m"))
	assert.False(t, b.subscriptions.IndexedKPI("k"))

	assert.ErrorIs(t, b.OnFrame(context.Background(), id, []byte(`{"type":"heartbeat"}`)), ErrClientNotFound)
}

func TestSubscribeAfterCloseLeavesNoIndex(t *testing.T) {
	b, _ := newTestBroker(t, nil)
	id, conn := connect(t, b)
	c, ok := b.clients.Get(id)
	require.True(t, ok)

	// the client is closed but its frame is still being handled
	c.markClosed()
	require.NoError(t, b.handleSubscribe(c, []byte(`{"metricIds":["m"]}`)))

	assert.Empty(t, b.GetActiveSubscriptions())
	assert.False(t, b.subscriptions.IndexedMetric("m"))
	assert.Empty(t, conn.ofType(models.FrameSubscriptionStatus))
}

func TestTouchRefreshesHeartbeat(t *testing.T) {
	b, clock := newTestBroker(t, nil)
	id, _ := connect(t, b)
	clock.Advance(1900 * time.Millisecond)
	b.Touch(id)
	clock.Advance(1900 * time.Millisecond)

	assert.Zero(t, b.CheckLiveness())
	assert.Len(t, b.GetConnectedClients(), 1)
}
