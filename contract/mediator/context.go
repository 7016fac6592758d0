package mediator

import "context"

// HeaderPropagator injects the caller's trace context into outgoing headers.
// Sinks call it when a relayed notification crosses the process boundary.
// Implementations must be safe for concurrent use.
type HeaderPropagator interface {
	Inject(ctx context.Context, headers map[string]string)
}

// NopHeaderPropagator leaves headers untouched.
type NopHeaderPropagator struct{}

func (NopHeaderPropagator) Inject(context.Context, map[string]string) {}
