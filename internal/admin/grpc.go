package admin

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "arena.admin.v1.RoomAdmin"

const (
	listRoomsMethod = "/" + ServiceName + "/ListRooms"
	closeRoomMethod = "/" + ServiceName + "/CloseRoom"
)

// RoomAdminServer is the server API for the RoomAdmin service.
type RoomAdminServer interface {
	ListRooms(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	CloseRoom(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
}

// RoomAdminServiceDesc describes RoomAdmin for grpc.Server.RegisterService.
// Messages are protobuf well-known types, so no generated code is needed.
var RoomAdminServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RoomAdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListRooms", Handler: listRoomsHandler},
		{MethodName: "CloseRoom", Handler: closeRoomHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "arena/admin/v1/admin.proto",
}

// RegisterRoomAdminServer registers srv with s.
func RegisterRoomAdminServer(s grpc.ServiceRegistrar, srv RoomAdminServer) {
	s.RegisterService(&RoomAdminServiceDesc, srv)
}

func listRoomsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RoomAdminServer).ListRooms(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listRoomsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RoomAdminServer).ListRooms(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func closeRoomHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RoomAdminServer).CloseRoom(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: closeRoomMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RoomAdminServer).CloseRoom(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// RoomAdminClient calls the RoomAdmin service.
type RoomAdminClient struct {
	cc grpc.ClientConnInterface
}

// NewRoomAdminClient wraps an established client connection.
func NewRoomAdminClient(cc grpc.ClientConnInterface) *RoomAdminClient {
	return &RoomAdminClient{cc: cc}
}

// ListRooms fetches every live room.
func (c *RoomAdminClient) ListRooms(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, listRoomsMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// CloseRoom ends every session in the named room.
func (c *RoomAdminClient) CloseRoom(ctx context.Context, name string, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, closeRoomMethod, wrapperspb.String(name), new(emptypb.Empty), opts...)
}

// NewGRPCServer builds a gRPC server with RoomAdmin registered and every call logged.
//
// Precondition: svc and logger must be non-nil.
func NewGRPCServer(svc RoomAdminServer, logger *zap.Logger) *grpc.Server {
	s := grpc.NewServer(grpc.UnaryInterceptor(loggingInterceptor(logger)))
	RegisterRoomAdminServer(s, svc)
	return s
}

func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("admin rpc",
			zap.String("method", info.FullMethod),
			zap.Stringer("code", status.Code(err)),
			zap.Duration("duration", time.Since(start)),
		)
		return resp, err
	}
}
