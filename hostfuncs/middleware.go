package hostfuncs

import (
	"context"
	"log/slog"
	"time"
)

// Middleware decorates a ByteHandler. The first middleware given to a
// registry runs outermost.
type Middleware func(next ByteHandler) ByteHandler

// PanicRecoveryMiddleware turns a handler panic into an INTERNAL_ERROR
// response.
func PanicRecoveryMiddleware() Middleware {
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) (resp []byte, err error) {
			defer func() {
				if r := recover(); r != nil {
					resp, err = NewPanicError(r).ToJSON(), nil
				}
			}()
			return next(ctx, payload)
		}
	}
}

// LoggingMiddleware logs completed calls at debug and host faults at warn.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			call, _ := CallFrom(ctx)
			start := time.Now()

			resp, err := next(ctx, payload)
			if err != nil {
				logger.WarnContext(ctx, "host function failed",
					"function", call.Function, "addon", call.Addon, "error", err)
				return resp, err
			}
			logger.DebugContext(ctx, "host function completed",
				"function", call.Function, "addon", call.Addon,
				"request_bytes", len(payload), "response_bytes", len(resp),
				"duration", time.Since(start))
			return resp, nil
		}
	}
}
