package seqgrpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/blockberries/seqtest"
)

// toStatus maps an engine error to a gRPC status.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}
	var code codes.Code
	switch {
	case errors.Is(err, seqtest.ErrMempoolFull):
		code = codes.ResourceExhausted
	case errors.Is(err, seqtest.ErrClosed):
		code = codes.Unavailable
	case errors.Is(err, seqtest.ErrUnknownTx):
		code = codes.NotFound
	default:
		if _, ok := seqtest.IsValidation(err); ok {
			code = codes.InvalidArgument
		} else {
			code = codes.Internal
		}
	}
	return status.Error(code, err.Error())
}

// fromStatus maps a gRPC error back into the seqtest taxonomy. The
// engine's own validation failures come back as ValidationError;
// everything else is a NetworkError.
func fromStatus(op string, err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return seqtest.NewNetworkError(op, err)
	}
	cause := errors.New(st.Message())
	switch st.Code() {
	case codes.InvalidArgument:
		return seqtest.NewValidationError(op, cause)
	case codes.ResourceExhausted:
		return seqtest.NewNetworkError(op, errors.Join(seqtest.ErrMempoolFull, cause))
	case codes.NotFound:
		return seqtest.NewNetworkError(op, errors.Join(seqtest.ErrUnknownTx, cause))
	case codes.Canceled:
		return seqtest.NewNetworkError(op, errors.Join(context.Canceled, cause))
	case codes.DeadlineExceeded:
		return seqtest.NewNetworkError(op, errors.Join(context.DeadlineExceeded, cause))
	default:
		return seqtest.NewNetworkError(op, err)
	}
}
