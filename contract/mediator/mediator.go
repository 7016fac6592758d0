package mediator

import "context"

// Mediator is the non-generic view of the dispatcher.
//
// Typed sending remains available via the generic helpers in the mediator package.
// This interface is intended for consumers that want to depend only on contracts.
type Mediator interface {
	// SendAny routes req to its single handler and returns the untyped response.
	SendAny(ctx context.Context, req any) (any, error)

	// Publish fans n out to every handler registered for its type and waits for all of them.
	Publish(ctx context.Context, n Notification) error
}
