package coordinator

import (
	"context"

	"google.golang.org/grpc"
)

// Server is the server side of the three coordinator methods the signer uses.
type Server interface {
	GetGroups(ctx context.Context, req *GroupsRequest) (*Groups, error)
	Sign(ctx context.Context, req *SignRequest) (*Task, error)
	GetTask(ctx context.Context, req *TaskRequest) (*Task, error)
}

// ServerCodec must be passed to grpc.NewServer for servers registered with RegisterServer.
func ServerCodec() grpc.ServerOption {
	return grpc.ForceServerCodec(wireCodec{})
}

// RegisterServer exposes srv under the coordinator's service name.
func RegisterServer(s *grpc.Server, srv Server) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetGroups", Handler: getGroupsHandler},
		{MethodName: "Sign", Handler: signHandler},
		{MethodName: "GetTask", Handler: getTaskHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "meesign.proto",
}

func getGroupsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GroupsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).GetGroups(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetGroups}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).GetGroups(ctx, req.(*GroupsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func signHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SignRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Sign(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodSign}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).Sign(ctx, req.(*SignRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getTaskHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(TaskRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).GetTask(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetTask}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).GetTask(ctx, req.(*TaskRequest))
	}
	return interceptor(ctx, in, info, handler)
}
