package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Messages are the well-known Struct and Empty types, so no generated code is
// needed; the descriptor below is what protoc-gen-go-grpc would emit.

const ServiceName = "metricsbroker.v1.BrokerControl"

// BrokerControlServer is the server API for the BrokerControl service
type BrokerControlServer interface {
	PublishMetric(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	PublishMetricBatch(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	PublishKPI(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	PublishAlert(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	GetServerStats(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListClients(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListSubscriptions(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListSources(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	StartSource(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StopSource(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// -----------------------------------------------------------------------------

func RegisterBrokerControlServer(s grpc.ServiceRegistrar, srv BrokerControlServer) {
	s.RegisterService(&BrokerControl_ServiceDesc, srv)
}

// unary adapts a typed method to grpc's handler signature
func unary[Req any, Resp any](method string, call func(BrokerControlServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(BrokerControlServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(BrokerControlServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var BrokerControl_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BrokerControlServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("PublishMetric", BrokerControlServer.PublishMetric),
		unary("PublishMetricBatch", BrokerControlServer.PublishMetricBatch),
		unary("PublishKPI", BrokerControlServer.PublishKPI),
		unary("PublishAlert", BrokerControlServer.PublishAlert),
		unary("GetServerStats", BrokerControlServer.GetServerStats),
		unary("ListClients", BrokerControlServer.ListClients),
		unary("ListSubscriptions", BrokerControlServer.ListSubscriptions),
		unary("ListSources", BrokerControlServer.ListSources),
		unary("StartSource", BrokerControlServer.StartSource),
		unary("StopSource", BrokerControlServer.StopSource),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "metricsbroker/v1/control.proto",
}

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

type BrokerControlClient struct {
	cc grpc.ClientConnInterface
}

func NewBrokerControlClient(cc grpc.ClientConnInterface) *BrokerControlClient {
	return &BrokerControlClient{cc: cc}
}

func (c *BrokerControlClient) invoke(ctx context.Context, method string, in, out interface{}, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...)
}

func (c *BrokerControlClient) PublishMetric(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	return out, c.invoke(ctx, "PublishMetric", in, out, opts...)
}

func (c *BrokerControlClient) PublishMetricBatch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	return out, c.invoke(ctx, "PublishMetricBatch", in, out, opts...)
}

func (c *BrokerControlClient) PublishKPI(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	return out, c.invoke(ctx, "PublishKPI", in, out, opts...)
}

func (c *BrokerControlClient) PublishAlert(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	return out, c.invoke(ctx, "PublishAlert", in, out, opts...)
}

func (c *BrokerControlClient) GetServerStats(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	return out, c.invoke(ctx, "GetServerStats", &emptypb.Empty{}, out, opts...)
}

func (c *BrokerControlClient) ListClients(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	return out, c.invoke(ctx, "ListClients", &emptypb.Empty{}, out, opts...)
}

func (c *BrokerControlClient) ListSubscriptions(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	return out, c.invoke(ctx, "ListSubscriptions", &emptypb.Empty{}, out, opts...)
}

func (c *BrokerControlClient) ListSources(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	return out, c.invoke(ctx, "ListSources", &emptypb.Empty{}, out, opts...)
}

func (c *BrokerControlClient) StartSource(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	return out, c.invoke(ctx, "StartSource", in, out, opts...)
}

func (c *BrokerControlClient) StopSource(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	return out, c.invoke(ctx, "StopSource", in, out, opts...)
}
