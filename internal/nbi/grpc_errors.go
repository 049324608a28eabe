package nbi

import (
	"errors"

	"github.com/signalsfoundry/impact-simulator/core"
	"github.com/signalsfoundry/impact-simulator/kb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ToStatusError maps simulator errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, kb.ErrPresetNotFound):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, core.ErrInvalidParameter):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, core.ErrNoImpact):
		return status.Error(codes.FailedPrecondition, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// isClientError reports whether err is the caller's fault.
func isClientError(err error) bool {
	switch status.Code(ToStatusError(err)) {
	case codes.InvalidArgument, codes.NotFound, codes.FailedPrecondition:
		return true
	default:
		return false
	}
}
