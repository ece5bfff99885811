package middleware

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/technosupport/incident-analytics/internal/logging"
)

// UnaryLogger carries the x-request-id metadata (or a fresh one) into the
// handler context and logs the outcome of every call.
func UnaryLogger() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		reqID := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get("x-request-id"); len(v) > 0 {
				reqID = v[0]
			}
		}
		if reqID == "" {
			reqID = uuid.New().String()
		}
		ctx = logging.WithRequestID(ctx, reqID)

		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		var ev *zerolog.Event
		if err != nil {
			ev = logging.Ctx(ctx).Warn().Err(err)
		} else {
			ev = logging.Ctx(ctx).Debug()
		}
		ev.Str("method", info.FullMethod).
			Str("code", code.String()).
			Dur("duration", time.Since(start)).
			Msg("[GRPC] call completed")
		return resp, err
	}
}
