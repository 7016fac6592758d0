package mediator

import "context"

// RequestHandler handles requests of type Q and returns a result of type R.
// Implementations must be safe for concurrent use by multiple goroutines.
type RequestHandler[Q Request[R], R any] interface {
	Handle(ctx context.Context, q Q) (R, error)
}

// NotificationHandler handles notifications of type N.
// Handlers registered for the same N run concurrently and must not depend on each other.
type NotificationHandler[N Notification] interface {
	Handle(ctx context.Context, n N) error
}

// RequestHandlerFunc adapts a function to RequestHandler.
type RequestHandlerFunc[Q Request[R], R any] func(ctx context.Context, q Q) (R, error)

func (f RequestHandlerFunc[Q, R]) Handle(ctx context.Context, q Q) (R, error) { return f(ctx, q) }

// NotificationHandlerFunc adapts a function to NotificationHandler.
type NotificationHandlerFunc[N Notification] func(ctx context.Context, n N) error

func (f NotificationHandlerFunc[N]) Handle(ctx context.Context, n N) error { return f(ctx, n) }
