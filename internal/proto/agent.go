// Package proto declares the otpkeeper agent gRPC service. Requests and
// replies are protobuf well-known types, so the service is described by
// hand instead of by generated code.
package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "otpkeeper.agent.v1.Agent"

const (
	FullMethodUnlock = "/" + ServiceName + "/Unlock"
	FullMethodLock   = "/" + ServiceName + "/Lock"
	FullMethodCodes  = "/" + ServiceName + "/Codes"
	FullMethodNext   = "/" + ServiceName + "/Next"
	FullMethodAddURI = "/" + ServiceName + "/AddURI"
)

// AgentServer is implemented by the agent.
//
//   - Unlock takes the passphrase and returns a session token.
//   - Lock ends the session and locks the vault.
//   - Codes returns {"codes": [...]}, see CodesToStruct.
//   - Next takes an entry hash and returns the next counter-based code.
//   - AddURI takes an otpauth:// URI and returns the new entry hash.
type AgentServer interface {
	Unlock(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	Lock(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	Codes(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Next(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	AddURI(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
}

// UnimplementedAgentServer can be embedded to keep servers compiling when
// methods are added.
type UnimplementedAgentServer struct{}

func (UnimplementedAgentServer) Unlock(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Unlock not implemented")
}
func (UnimplementedAgentServer) Lock(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Lock not implemented")
}
func (UnimplementedAgentServer) Codes(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Codes not implemented")
}
func (UnimplementedAgentServer) Next(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Next not implemented")
}
func (UnimplementedAgentServer) AddURI(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method AddURI not implemented")
}

// unary adapts a typed method to a grpc.MethodHandler.
func unary[Req, Resp any](fullMethod string, call func(AgentServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AgentServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AgentServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AgentServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Unlock", Handler: unary(FullMethodUnlock, AgentServer.Unlock)},
		{MethodName: "Lock", Handler: unary(FullMethodLock, AgentServer.Lock)},
		{MethodName: "Codes", Handler: unary(FullMethodCodes, AgentServer.Codes)},
		{MethodName: "Next", Handler: unary(FullMethodNext, AgentServer.Next)},
		{MethodName: "AddURI", Handler: unary(FullMethodAddURI, AgentServer.AddURI)},
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterAgentServer(s grpc.ServiceRegistrar, srv AgentServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// AgentClient is the client API of the agent service.
type AgentClient interface {
	Unlock(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	Lock(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
	Codes(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	Next(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	AddURI(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
}

type agentClient struct {
	cc grpc.ClientConnInterface
}

func NewAgentClient(cc grpc.ClientConnInterface) AgentClient {
	return &agentClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *agentClient) Unlock(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	return invoke[wrapperspb.StringValue](ctx, c.cc, FullMethodUnlock, in, opts)
}

func (c *agentClient) Lock(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, FullMethodLock, in, opts)
}

func (c *agentClient) Codes(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, FullMethodCodes, in, opts)
}

func (c *agentClient) Next(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	return invoke[wrapperspb.StringValue](ctx, c.cc, FullMethodNext, in, opts)
}

func (c *agentClient) AddURI(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	return invoke[wrapperspb.StringValue](ctx, c.cc, FullMethodAddURI, in, opts)
}
