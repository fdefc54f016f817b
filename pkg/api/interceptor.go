package api

import (
	"context"
	"strings"

	"github.com/cuemby/gantt-scheduler/pkg/log"
	"github.com/cuemby/gantt-scheduler/pkg/metrics"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// methodName extracts "SelectDestinations" out of
// "/gantt.Scheduler/SelectDestinations".
func methodName(fullMethod string) string {
	parts := strings.Split(fullMethod, "/")
	return parts[len(parts)-1]
}

// loggingInterceptor logs every RPC at info level with its outcome,
// mirroring the teacher's ReadOnlyInterceptor style of deriving
// behavior from grpc.UnaryServerInfo.FullMethod.
func loggingInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		logger := log.WithComponent("api")
		resp, err := handler(ctx, req)
		event := logger.Info()
		if err != nil {
			event = logger.Error().Err(err)
		}
		event.Str("method", methodName(info.FullMethod)).Msg("rpc handled")
		return resp, err
	}
}

// metricsInterceptor records request counts and latency per method.
func metricsInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		timer := metrics.NewTimer()
		method := methodName(info.FullMethod)

		resp, err := handler(ctx, req)

		statusLabel := "ok"
		if err != nil {
			statusLabel = status.Code(err).String()
		}
		metrics.APIRequestsTotal.WithLabelValues(method, statusLabel).Inc()
		timer.ObserveDurationVec(metrics.APIRequestDuration, method)
		return resp, err
	}
}

// versionInterceptor rejects envelopes below minSupportedVersion before
// the handler runs.
func versionInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		carrier, ok := req.(envelopeCarrier)
		if !ok {
			return handler(ctx, req)
		}
		version := carrier.envelope().Version
		if !versionSupported(version) {
			return nil, status.Errorf(codes.FailedPrecondition,
				"envelope version %q is older than the minimum supported version %q", version, minSupportedVersion)
		}
		return handler(ctx, req)
	}
}
