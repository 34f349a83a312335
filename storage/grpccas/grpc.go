package grpccas

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name, see cas.proto.
const ServiceName = "xdao.chunkstore.grpccas.v1.CAS"

// CASServer is the chunk store service. Messages are protobuf well-known wrapper
// types, so no generated code is needed. Put carries EncodePut(name, content).
type CASServer interface {
	Put(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error)
	Get(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
	Has(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
}

// RegisterCASServer registers srv on s.
func RegisterCASServer(s grpc.ServiceRegistrar, srv CASServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CASServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Put", CASServer.Put),
		unary("Get", CASServer.Get),
		unary("Has", CASServer.Has),
	},
	Metadata: "cas.proto",
}

func fullMethod(name string) string { return "/" + ServiceName + "/" + name }

// unary adapts one CASServer method to the server's untyped handler shape.
func unary[Req, Resp any](name string, call func(CASServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	info := &grpc.UnaryServerInfo{FullMethod: fullMethod(name)}
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			handle := func(ctx context.Context, req any) (any, error) {
				return call(srv.(CASServer), ctx, req.(*Req))
			}
			if interceptor == nil {
				return handle(ctx, in)
			}
			ci := *info
			ci.Server = srv
			return interceptor(ctx, in, &ci, handle)
		},
	}
}

// casClient calls the service over a connection.
type casClient struct{ cc grpc.ClientConnInterface }

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, name string, in any) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, fullMethod(name), in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c casClient) Put(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	return invoke[wrapperspb.StringValue](ctx, c.cc, "Put", in)
}

func (c casClient) Get(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	return invoke[wrapperspb.BytesValue](ctx, c.cc, "Get", in)
}

func (c casClient) Has(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	return invoke[wrapperspb.BoolValue](ctx, c.cc, "Has", in)
}
