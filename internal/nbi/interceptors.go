package nbi

import (
	"context"
	"time"

	"github.com/signalsfoundry/impact-simulator/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const requestIDMetadataKey = "x-request-id"

// RequestIDUnaryServerInterceptor tags every call with a request id, taken
// from the x-request-id metadata when the caller sent one. The id is echoed
// in the response header and carried by a per-call logger, which also records
// the call's code and latency at debug level.
func RequestIDUnaryServerInterceptor(base logging.Logger) grpc.UnaryServerInterceptor {
	if base == nil {
		base = logging.Noop()
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if id := incomingRequestID(ctx); id != "" {
			ctx = logging.ContextWithRequestID(ctx, id)
		}
		ctx, reqLog := logging.WithRequestLogger(ctx, base.With(logging.String("method", info.FullMethod)))
		ctx = logging.ContextWithLogger(ctx, reqLog)

		// Only fails outside a real server transport, as in direct handler tests.
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDMetadataKey, logging.RequestIDFromContext(ctx)))

		start := time.Now()
		resp, err := handler(ctx, req)
		reqLog.Debug(ctx, "rpc finished",
			logging.String("code", status.Code(err).String()),
			logging.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
		)
		return resp, err
	}
}

func incomingRequestID(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if vals := md.Get(requestIDMetadataKey); len(vals) > 0 {
		return vals[0]
	}
	return ""
}
