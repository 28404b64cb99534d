package grpc_control

import (
	"context"
	"net"
	"testing"
	"time"

	"metrics-broker/src/broker"
	datasource "metrics-broker/src/data_source"
	"metrics-broker/src/logger"
	"metrics-broker/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func newTestClient(t *testing.T, ds *datasource.MultiSourceManager) (*BrokerControlClient, *broker.Broker) {
	t.Helper()

	log := logger.NewNopLogger()
	b := broker.New(broker.DefaultOptions(), broker.Deps{Logger: log})

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterBrokerControlServer(srv, NewControlService(b, ds, log))
	go func() { _ = srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		srv.Stop()
		_ = b.Shutdown(context.Background())
	})
	return NewBrokerControlClient(conn), b
}

func mustStruct(t *testing.T, m map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func ctxTimeout(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// -----------------------------------------------------------------------------

func TestPublishMetricReachesBroker(t *testing.T) {
	client, b := newTestClient(t, nil)
	ctx := ctxTimeout(t)

	_, err := client.PublishMetric(ctx, mustStruct(t, map[string]interface{}{
		"metricId":  "cpu.load",
		"value":     73.5,
		"timestamp": 1700000000000.0,
		"tags":      map[string]interface{}{"host": "web-1"},
	}))
	require.NoError(t, err)

	v, ok := b.LatestMetric("cpu.load")
	require.True(t, ok)
	assert.Equal(t, 73.5, v.Value)
	assert.Equal(t, int64(1700000000000), v.Timestamp)
	assert.Equal(t, "web-1", v.Tags["host"])

	_, err = client.PublishMetricBatch(ctx, mustStruct(t, map[string]interface{}{
		"values": []interface{}{
			map[string]interface{}{"metricId": "a", "value": 1.0},
			map[string]interface{}{"metricId": "b", "value": 2.0},
		},
	}))
	require.NoError(t, err)

	stats, err := client.GetServerStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3.0, stats.GetFields()["bufferedMetrics"].GetNumberValue())
}

func TestPublishValidationErrors(t *testing.T) {
	client, _ := newTestClient(t, nil)
	ctx := ctxTimeout(t)

	_, err := client.PublishMetric(ctx, mustStruct(t, map[string]interface{}{"value": 1.0}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.PublishMetricBatch(ctx, mustStruct(t, map[string]interface{}{}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.PublishKPI(ctx, mustStruct(t, map[string]interface{}{"data": map[string]interface{}{}}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.PublishAlert(ctx, mustStruct(t, map[string]interface{}{"message": "no target"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.PublishKPI(ctx, mustStruct(t, map[string]interface{}{
		"kpiId": "sla",
		"data":  map[string]interface{}{"value": 99.9},
	}))
	assert.NoError(t, err)

	_, err = client.PublishAlert(ctx, mustStruct(t, map[string]interface{}{
		"kpiId":    "sla",
		"severity": models.SeverityCritical,
	}))
	assert.NoError(t, err)
}

func TestListings(t *testing.T) {
	client, _ := newTestClient(t, nil)
	ctx := ctxTimeout(t)

	clients, err := client.ListClients(ctx)
	require.NoError(t, err)
	assert.Empty(t, clients.GetFields()["clients"].GetListValue().GetValues())

	subs, err := client.ListSubscriptions(ctx)
	require.NoError(t, err)
	assert.Empty(t, subs.GetFields()["subscriptions"].GetListValue().GetValues())

	sources, err := client.ListSources(ctx)
	require.NoError(t, err)
	assert.Empty(t, sources.GetFields()["sources"].GetListValue().GetValues())

	_, err = client.StartSource(ctx, mustStruct(t, map[string]interface{}{"source_name": "x"}))
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestSourceControl(t *testing.T) {
	log := logger.NewNopLogger()
	src, err := datasource.NewSource(models.MSourceConfig{Name: "demo", Metrics: []string{"cpu"}, IntervalMs: 1000}, nil, log)
	require.NoError(t, err)
	ds := datasource.NewMultiSourceManager(nil, log)
	require.NoError(t, ds.AddSource(src))

	client, _ := newTestClient(t, ds)
	ctx := ctxTimeout(t)

	resp, err := client.StartSource(ctx, mustStruct(t, map[string]interface{}{"source_name": "demo"}))
	require.NoError(t, err)
	assert.False(t, resp.GetFields()["success"].GetBoolValue(), "manager not started")

	_, err = client.StopSource(ctx, mustStruct(t, map[string]interface{}{}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	sources, err := client.ListSources(ctx)
	require.NoError(t, err)
	list := sources.GetFields()["sources"].GetListValue().GetValues()
	require.Len(t, list, 1)
	assert.Equal(t, "demo", list[0].GetStructValue().GetFields()["name"].GetStringValue())
}
