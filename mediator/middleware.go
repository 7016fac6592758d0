package mediator

import "context"

// Kind distinguishes request dispatch from notification fan-out.
type Kind string

const (
	KindRequest      Kind = "request"
	KindNotification Kind = "notification"
)

// Call describes a single handler invocation passing through the middleware chain.
type Call struct {
	Kind    Kind
	Type    string // type key of the message
	Handler string // identity of the handler about to run
	Message any
}

// HandlerFunc invokes the handler behind a Call. For notifications the result is always nil.
type HandlerFunc func(ctx context.Context, c Call) (any, error)

// Middleware wraps handler execution. Middlewares are executed in registration order.
// During Publish each handler gets its own pass through the chain.
type Middleware func(next HandlerFunc) HandlerFunc

// Chain composes mws into one Middleware; the first element is the outermost wrapper.
func Chain(mws ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return wrap(next, mws)
	}
}

func wrap(final HandlerFunc, mws []Middleware) HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		final = mws[i](final)
	}

	return final
}
