package api

import (
	"context"

	"google.golang.org/grpc"
)

// serviceDesc is hand-written in place of a protoc-generated
// *_grpc.pb.go: the method set mirrors spec.md §6's RPC surface exactly
// (SelectDestinations plus the two legacy method names) without a
// .proto toolchain dependency.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: "gantt.Scheduler",
	HandlerType: (*schedulerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SelectDestinations", Handler: selectDestinationsHandler},
		{MethodName: "RunInstance", Handler: runInstanceHandler},
		{MethodName: "PrepResize", Handler: prepResizeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pkg/api/service.go",
}

// schedulerServer is the interface grpc.ServiceDesc dispatches against;
// *Server satisfies it.
type schedulerServer interface {
	SelectDestinations(context.Context, *SelectDestinationsRequest) (*SelectDestinationsResponse, error)
	RunInstance(context.Context, *RunInstanceRequest) (*SelectDestinationsResponse, error)
	PrepResize(context.Context, *PrepResizeRequest) (*SelectDestinationsResponse, error)
}

func selectDestinationsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(SelectDestinationsRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(schedulerServer).SelectDestinations(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/gantt.Scheduler/SelectDestinations"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(schedulerServer).SelectDestinations(ctx, req.(*SelectDestinationsRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func runInstanceHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(RunInstanceRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(schedulerServer).RunInstance(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/gantt.Scheduler/RunInstance"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(schedulerServer).RunInstance(ctx, req.(*RunInstanceRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func prepResizeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(PrepResizeRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(schedulerServer).PrepResize(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/gantt.Scheduler/PrepResize"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(schedulerServer).PrepResize(ctx, req.(*PrepResizeRequest))
	}
	return interceptor(ctx, req, info, handler)
}
