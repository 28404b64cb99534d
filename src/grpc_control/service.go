package grpc_control

import (
	"context"
	"fmt"

	datasource "metrics-broker/src/data_source"
	"metrics-broker/src/helpers"
	"metrics-broker/src/interfaces"
	"metrics-broker/src/logger"

	"github.com/goccy/go-json"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ControlService lets producers publish into the broker and operators
// inspect it and drive data sources
type ControlService struct {
	Broker     interfaces.IBrokerControl
	DataSource *datasource.MultiSourceManager
	Logger     *logger.Logger
}

var _ BrokerControlServer = (*ControlService)(nil)

// NewControlService creates a new instance of ControlService.
// ds may be nil when no sources are configured.
func NewControlService(b interfaces.IBrokerControl, ds *datasource.MultiSourceManager, log *logger.Logger) *ControlService {
	return &ControlService{
		Broker:     b,
		DataSource: ds,
		Logger:     log,
	}
}

// -----------------------------------------------------------------------------

func (s *ControlService) PublishMetric(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	body, err := structJSON(req)
	if err != nil {
		return nil, err
	}
	values, err := helpers.DecodeMetricValues(body)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	for _, v := range values {
		s.Broker.PublishMetricUpdate(v)
	}
	return &emptypb.Empty{}, nil
}

// -----------------------------------------------------------------------------

// PublishMetricBatch takes {"values": [...]}
func (s *ControlService) PublishMetricBatch(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	list, ok := req.GetFields()["values"]
	if !ok || list.GetListValue() == nil {
		return nil, status.Error(codes.InvalidArgument, "values list is required")
	}
	body, err := json.Marshal(list.GetListValue().AsSlice())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	values, err := helpers.DecodeMetricValues(body)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	for _, v := range values {
		s.Broker.PublishMetricUpdate(v)
	}
	s.Logger.Debug("gRPC: published batch of %d values", len(values))
	return &emptypb.Empty{}, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) PublishKPI(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	body, err := structJSON(req)
	if err != nil {
		return nil, err
	}
	update, err := helpers.DecodeKPIUpdate(body)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	s.Broker.PublishKPIUpdate(update.KPIID, update.Data)
	return &emptypb.Empty{}, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) PublishAlert(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	body, err := structJSON(req)
	if err != nil {
		return nil, err
	}
	alert, err := helpers.DecodeAlert(body)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	s.Broker.PublishAlert(alert)
	return &emptypb.Empty{}, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetServerStats(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(s.Broker.GetServerStats())
}

// -----------------------------------------------------------------------------

func (s *ControlService) ListClients(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(map[string]interface{}{"clients": s.Broker.GetConnectedClients()})
}

// -----------------------------------------------------------------------------

func (s *ControlService) ListSubscriptions(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(map[string]interface{}{"subscriptions": s.Broker.GetActiveSubscriptions()})
}

// -----------------------------------------------------------------------------

func (s *ControlService) ListSources(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if s.DataSource == nil {
		return toStruct(map[string]interface{}{"sources": []interface{}{}})
	}
	return toStruct(map[string]interface{}{"sources": s.DataSource.Statuses()})
}

// -----------------------------------------------------------------------------

func (s *ControlService) StartSource(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name, err := sourceName(req)
	if err != nil {
		return nil, err
	}
	if s.DataSource == nil {
		return nil, status.Error(codes.FailedPrecondition, "no data sources configured")
	}
	if err := s.DataSource.StartSource(name); err != nil {
		return sourceResponse(false, err.Error(), "stopped")
	}
	s.Logger.Info("gRPC: started source %s", name)
	return sourceResponse(true, fmt.Sprintf("Started source %s", name), "running")
}

// -----------------------------------------------------------------------------

func (s *ControlService) StopSource(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name, err := sourceName(req)
	if err != nil {
		return nil, err
	}
	if s.DataSource == nil {
		return nil, status.Error(codes.FailedPrecondition, "no data sources configured")
	}
	if err := s.DataSource.StopSource(name); err != nil {
		return sourceResponse(false, err.Error(), "unknown")
	}
	s.Logger.Info("gRPC: stopped source %s", name)
	return sourceResponse(true, fmt.Sprintf("Stopped source %s", name), "stopped")
}

// -----------------------------------------------------------------------------
// Conversion helpers
// -----------------------------------------------------------------------------

func structJSON(req *structpb.Struct) ([]byte, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "empty request")
	}
	body, err := json.Marshal(req.AsMap())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return body, nil
}

// toStruct round-trips v through JSON so struct tags decide the field names
func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func sourceName(req *structpb.Struct) (string, error) {
	name := req.GetFields()["source_name"].GetStringValue()
	if name == "" {
		return "", status.Error(codes.InvalidArgument, "source_name is required")
	}
	return name, nil
}

func sourceResponse(success bool, message, state string) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"success":       success,
		"message":       message,
		"current_state": state,
	})
}
