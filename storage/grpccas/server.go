package grpccas

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/chunkstore/chunk"
	"xdao.co/chunkstore/storage"
)

// Server exposes a storage.CAS over the CAS gRPC service. Chunks are validated
// before they reach the store and before they leave it, whatever the backend.
type Server struct {
	CAS        storage.CAS
	Validation *chunk.Validation
	Logger     *slog.Logger
}

var _ CASServer = (*Server)(nil)

func (s *Server) store() (storage.CAS, error) {
	if s == nil || s.CAS == nil {
		return nil, status.Error(codes.Unavailable, "missing CAS")
	}
	return storage.Guard{CAS: s.CAS, Validation: s.Validation, Logger: s.Logger}, nil
}

func (s *Server) Put(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	_ = ctx
	cas, err := s.store()
	if err != nil {
		return nil, err
	}
	name, content, err := DecodePut(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed put request: "+err.Error())
	}
	if err := cas.Put(name, content); err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.String(string(name)), nil
}

func (s *Server) Get(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	_ = ctx
	cas, err := s.store()
	if err != nil {
		return nil, err
	}
	b, err := cas.Get(chunk.Name(in.GetValue()))
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) Has(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	_ = ctx
	cas, err := s.store()
	if err != nil {
		return nil, err
	}
	name := chunk.Name(in.GetValue())
	v := s.Validation
	if v == nil {
		v = chunk.NewValidation()
	}
	if !v.ValidName(name) {
		return nil, status.Error(codes.InvalidArgument, storage.ErrInvalidName.Error())
	}
	return wrapperspb.Bool(cas.Has(name)), nil
}

// LoggingInterceptor logs every unary call with its status code and duration.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		level := slog.LevelDebug
		if err != nil {
			level = slog.LevelWarn
		}
		logger.LogAttrs(ctx, level, "rpc",
			slog.String("method", info.FullMethod),
			slog.String("code", status.Code(err).String()),
			slog.Duration("duration", time.Since(start)),
		)
		return resp, err
	}
}
