// Package rpcerrors implements the framework's error taxonomy and its
// baseline mapping onto gRPC status codes.
package rpcerrors

import (
	"context"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Ifihan/blazerpc/internal/types"
)

// ValidationError: malformed annotation or bad input shape.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("validation error: field %q", e.Field) }

// SerializationError: wire-form tensor inconsistency.
type SerializationError struct {
	DType string
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization error: dtype %q", e.DType)
}

// ModelNotFoundError: RPC path refers to an unknown model.
type ModelNotFoundError struct {
	Name    string
	Version string
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model not found: %s (version %s)", e.Name, e.Version)
}

// InferenceError: the user callable raised, either for a whole batch or
// for one item within it.
type InferenceError struct {
	ModelName string
	Cause     error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference error in model %q: %v", e.ModelName, e.Cause)
}

func (e *InferenceError) Unwrap() error { return e.Cause }

// ConfigurationError: bad startup input, or a shutdown-race submission.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return fmt.Sprintf("configuration error: %s", e.Reason) }

// ToStatus maps an error from the taxonomy above to a gRPC status.
// Cancellation and unrecognized errors fall through to the baseline
// CANCELLED/UNKNOWN rows. Middleware may wrap this to override the mapping
// for specific error kinds without touching the dispatcher itself.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	switch e := err.(type) {
	case *ValidationError:
		return status.Error(codes.InvalidArgument, e.Error())
	case *types.ValidationError:
		return status.Error(codes.InvalidArgument, e.Error())
	case *SerializationError:
		return status.Error(codes.InvalidArgument, e.Error())
	case *ModelNotFoundError:
		return status.Error(codes.NotFound, e.Error())
	case *ConfigurationError:
		return status.Error(codes.Unavailable, e.Error())
	case *InferenceError:
		return status.Error(codes.Internal, e.Error())
	}
	if err == context.Canceled {
		return status.Error(codes.Canceled, "client cancelled the request")
	}
	if err == context.DeadlineExceeded {
		return status.Error(codes.DeadlineExceeded, "request deadline exceeded")
	}
	if s, ok := status.FromError(err); ok {
		return s.Err()
	}
	return status.Error(codes.Unknown, err.Error())
}
