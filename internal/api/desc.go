package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "buddytalk.v1.ChatService"

// Method names of ChatService.
const (
	MethodGetState      = "GetState"
	MethodSelectChannel = "SelectChannel"
	MethodSelectUser    = "SelectUser"
	MethodFetchMore     = "FetchMore"
	MethodSendText      = "SendText"
	MethodListFailed    = "ListFailed"
	MethodWatchEvents   = "WatchEvents"
)

// ChatServer is the server API for ChatService. Requests and responses are
// google.protobuf.Struct documents; see wire.go for their shapes.
type ChatServer interface {
	GetState(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SelectChannel(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SelectUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FetchMore(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SendText(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListFailed(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchEvents(*structpb.Struct, EventStream) error
}

// EventStream is the server side of WatchEvents.
type EventStream interface {
	Send(*structpb.Struct) error
	Context() context.Context
}

type unaryMethod func(ChatServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, fn unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return fn(srv.(ChatServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return fn(srv.(ChatServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

type eventStream struct {
	grpc.ServerStream
}

func (s *eventStream) Send(m *structpb.Struct) error {
	return s.ServerStream.SendMsg(m)
}

func watchEventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ChatServer).WatchEvents(in, &eventStream{stream})
}

// ChatServiceDesc describes ChatService for grpc.Server registration.
var ChatServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChatServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodGetState, ChatServer.GetState),
		unary(MethodSelectChannel, ChatServer.SelectChannel),
		unary(MethodSelectUser, ChatServer.SelectUser),
		unary(MethodFetchMore, ChatServer.FetchMore),
		unary(MethodSendText, ChatServer.SendText),
		unary(MethodListFailed, ChatServer.ListFailed),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    MethodWatchEvents,
			Handler:       watchEventsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "buddytalk/v1/chat.proto",
}

// RegisterChatServiceServer registers srv on s.
func RegisterChatServiceServer(s grpc.ServiceRegistrar, srv ChatServer) {
	s.RegisterService(&ChatServiceDesc, srv)
}

// FullMethod returns the gRPC path of a ChatService method.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}
