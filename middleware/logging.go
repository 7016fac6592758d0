package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/next-trace/scg-mediator/mediator"
)

// Logging returns middleware that logs handler start and completion.
func Logging(logger *slog.Logger) mediator.Middleware {
	return func(next mediator.HandlerFunc) mediator.HandlerFunc {
		return func(ctx context.Context, c mediator.Call) (any, error) {
			logger.DebugContext(ctx, "handler started",
				slog.String("kind", string(c.Kind)),
				slog.String("type", c.Type),
				slog.String("handler", c.Handler),
			)

			start := time.Now()
			res, err := next(ctx, c)
			elapsed := time.Since(start)

			if err != nil {
				logger.ErrorContext(ctx, "handler failed",
					slog.String("kind", string(c.Kind)),
					slog.String("type", c.Type),
					slog.String("handler", c.Handler),
					slog.Duration("elapsed", elapsed),
					slog.String("error", err.Error()),
				)
			} else {
				logger.InfoContext(ctx, "handler completed",
					slog.String("kind", string(c.Kind)),
					slog.String("type", c.Type),
					slog.String("handler", c.Handler),
					slog.Duration("elapsed", elapsed),
				)
			}

			return res, err
		}
	}
}
