package middleware

import (
	"context"
	"log/slog"
	"runtime/debug"

	berr "github.com/next-trace/scg-mediator/contract/errors"
	"github.com/next-trace/scg-mediator/mediator"
)

// Recover returns middleware that recovers from panics in the handler chain.
// A panic becomes a *errors.PanicError and is logged with a stack trace.
// Without it a panicking request handler unwinds into the caller of Send.
func Recover(logger *slog.Logger) mediator.Middleware {
	return func(next mediator.HandlerFunc) mediator.HandlerFunc {
		return func(ctx context.Context, c mediator.Call) (res any, retErr error) {
			defer func() {
				if r := recover(); r != nil {
					stack := string(debug.Stack())
					logger.ErrorContext(ctx, "handler panicked",
						slog.String("kind", string(c.Kind)),
						slog.String("type", c.Type),
						slog.String("handler", c.Handler),
						slog.Any("panic", r),
						slog.String("stack", stack),
					)

					res, retErr = nil, &berr.PanicError{Value: r, Stack: stack}
				}
			}()

			return next(ctx, c)
		}
	}
}
