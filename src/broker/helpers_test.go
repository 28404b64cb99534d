package broker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"metrics-broker/src/interfaces"
	"metrics-broker/src/logger"
	"metrics-broker/src/models"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// fakes
// -----------------------------------------------------------------------------

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// -----------------------------------------------------------------------------

type wireFrame struct {
	Type           string          `json:"type"`
	Timestamp      int64           `json:"timestamp"`
	SubscriptionID string          `json:"subscriptionId"`
	SequenceNumber uint64          `json:"sequenceNumber"`
	Payload        json.RawMessage `json:"payload"`
}

type fakeConn struct {
	mu     sync.Mutex
	frames []wireFrame
	closed bool
	full   bool
}

func (f *fakeConn) Send(frame []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.full {
		return false
	}
	var w wireFrame
	if err := json.Unmarshal(frame, &w); err != nil {
		panic(err)
	}
	f.frames = append(f.frames, w)
	return true
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) RemoteAddr() string { return "127.0.0.1:40000" }

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) setFull(full bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.full = full
}

func (f *fakeConn) all() []wireFrame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]wireFrame(nil), f.frames...)
}

func (f *fakeConn) ofType(frameType string) []wireFrame {
	var out []wireFrame
	for _, w := range f.all() {
		if w.Type == frameType {
			out = append(out, w)
		}
	}
	return out
}

func (f *fakeConn) last(t *testing.T) wireFrame {
	t.Helper()
	frames := f.all()
	require.NotEmpty(t, frames)
	return frames[len(frames)-1]
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = nil
}

// -----------------------------------------------------------------------------

type validatorFunc func(ctx context.Context, token, tenantID, userID string) (interfaces.Identity, error)

func (f validatorFunc) Validate(ctx context.Context, token, tenantID, userID string) (interfaces.Identity, error) {
	return f(ctx, token, tenantID, userID)
}

var tokenValidator = validatorFunc(func(_ context.Context, token, tenantID, userID string) (interfaces.Identity, error) {
	if token != "valid-token-123" || tenantID != "t1" {
		return interfaces.Identity{}, errors.New("rejected")
	}
	return interfaces.Identity{TenantID: tenantID, UserID: userID}, nil
})

// -----------------------------------------------------------------------------
// helpers
// -----------------------------------------------------------------------------

func newTestBroker(t *testing.T, mutate func(*Options)) (*Broker, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	opts := DefaultOptions()
	opts.HeartbeatInterval = time.Second
	if mutate != nil {
		mutate(&opts)
	}
	b := New(opts, Deps{
		Validator: tokenValidator,
		Logger:    logger.NewNopLogger(),
		Now:       clock.Now,
	})
	t.Cleanup(func() { _ = b.Shutdown(context.Background()) })
	return b, clock
}

func connect(t *testing.T, b *Broker) (string, *fakeConn) {
	t.Helper()
	conn := &fakeConn{}
	id, err := b.OnConnect(conn)
	require.NoError(t, err)
	return id, conn
}

func sendFrame(t *testing.T, b *Broker, clientID, frameType string, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{"type": frameType, "payload": payload})
	require.NoError(t, err)
	require.NoError(t, b.OnFrame(context.Background(), clientID, raw))
}

func authenticate(t *testing.T, b *Broker, clientID string) {
	t.Helper()
	sendFrame(t, b, clientID, models.FrameAuthenticate, models.MAuthenticatePayload{
		Token: "valid-token-123", TenantID: "t1", UserID: "u1",
	})
}

// subscribe sends a subscribe frame and returns the new subscription id
func subscribe(t *testing.T, b *Broker, clientID string, conn *fakeConn, req models.MSubscribePayload) string {
	t.Helper()
	sendFrame(t, b, clientID, models.FrameSubscribe, req)

	statuses := conn.ofType(models.FrameSubscriptionStatus)
	require.NotEmpty(t, statuses, "no subscription_status frame; got %+v", conn.all())
	var status models.MSubscriptionStatusPayload
	require.NoError(t, json.Unmarshal(statuses[len(statuses)-1].Payload, &status))
	require.Equal(t, models.SubscriptionActive, status.Status)
	return status.SubscriptionID
}

func decode[T any](t *testing.T, w wireFrame) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Payload, &v))
	return v
}

func errorCodes(t *testing.T, conn *fakeConn) []string {
	t.Helper()
	var codes []string
	for _, w := range conn.ofType(models.FrameError) {
		codes = append(codes, decode[models.MErrorPayload](t, w).Code)
	}
	return codes
}
