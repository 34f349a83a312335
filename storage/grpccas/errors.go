package grpccas

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/chunkstore/storage"
)

// mapRPC turns a status error from the server back into a storage sentinel.
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.NotFound:
		return storage.ErrNotFound
	case codes.InvalidArgument:
		// Server uses InvalidArgument for malformed names and request bodies.
		return storage.ErrInvalidName
	case codes.DataLoss:
		// Server uses DataLoss when content does not validate under its name.
		return storage.ErrInvalidChunk
	case codes.AlreadyExists:
		return storage.ErrImmutable
	case codes.FailedPrecondition:
		// Server uses FailedPrecondition for signed chunks older than the stored one.
		return storage.ErrStale
	default:
		return err
	}
}

// mapErr turns a storage error into a status error for the wire.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, storage.ErrInvalidName):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, storage.ErrInvalidChunk):
		return status.Error(codes.DataLoss, err.Error())
	case errors.Is(err, storage.ErrImmutable):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, storage.ErrStale):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
