package containerrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "tidepool.v1.ContainerService"

// Full method names, as seen by interceptors.
const (
	ProduceMethod = "/" + ServiceName + "/Produce"
	ConsumeMethod = "/" + ServiceName + "/Consume"
	ViewMethod    = "/" + ServiceName + "/View"
	IsEmptyMethod = "/" + ServiceName + "/IsEmpty"
)

// ContainerServiceServer is implemented by the server side of the service.
type ContainerServiceServer interface {
	Produce(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Consume(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	View(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	IsEmpty(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// UnimplementedContainerServiceServer returns codes.Unimplemented for every
// method. Embed it to stay forward compatible.
type UnimplementedContainerServiceServer struct{}

func (UnimplementedContainerServiceServer) Produce(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Produce not implemented")
}

func (UnimplementedContainerServiceServer) Consume(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Consume not implemented")
}

func (UnimplementedContainerServiceServer) View(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method View not implemented")
}

func (UnimplementedContainerServiceServer) IsEmpty(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method IsEmpty not implemented")
}

type call func(ContainerServiceServer, context.Context, *emptypb.Empty) (*structpb.Struct, error)

// unary adapts fn to the grpc method handler signature, routing through the
// server's interceptor chain when one is installed.
func unary(fullMethod string, fn call) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return fn(srv.(ContainerServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return fn(srv.(ContainerServiceServer), ctx, req.(*emptypb.Empty))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes the service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ContainerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Produce", Handler: unary(ProduceMethod, ContainerServiceServer.Produce)},
		{MethodName: "Consume", Handler: unary(ConsumeMethod, ContainerServiceServer.Consume)},
		{MethodName: "View", Handler: unary(ViewMethod, ContainerServiceServer.View)},
		{MethodName: "IsEmpty", Handler: unary(IsEmptyMethod, ContainerServiceServer.IsEmpty)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tidepool/v1/container.proto",
}

// RegisterContainerServiceServer registers srv on s.
func RegisterContainerServiceServer(s grpc.ServiceRegistrar, srv ContainerServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ContainerServiceClient is the client side of the service.
type ContainerServiceClient interface {
	Produce(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error)
	Consume(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error)
	View(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error)
	IsEmpty(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type containerServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewContainerServiceClient returns a client that issues calls over cc.
func NewContainerServiceClient(cc grpc.ClientConnInterface) ContainerServiceClient {
	return &containerServiceClient{cc: cc}
}

func (c *containerServiceClient) invoke(ctx context.Context, method string, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *containerServiceClient) Produce(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ProduceMethod, opts)
}

func (c *containerServiceClient) Consume(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ConsumeMethod, opts)
}

func (c *containerServiceClient) View(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ViewMethod, opts)
}

func (c *containerServiceClient) IsEmpty(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, IsEmptyMethod, opts)
}
