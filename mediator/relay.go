package mediator

import (
	"context"
	"fmt"

	berr "github.com/next-trace/scg-mediator/contract/errors"
	cmed "github.com/next-trace/scg-mediator/contract/mediator"
)

// Relay is a notification handler that forwards N to a NotificationSink.
// It runs alongside the in-process handlers of N like any other handler.
type Relay[N cmed.Notification] struct {
	sink cmed.NotificationSink
	opts cmed.ForwardOptions
}

// NewRelay constructs a Relay forwarding to sink with opts.
func NewRelay[N cmed.Notification](sink cmed.NotificationSink, opts cmed.ForwardOptions) *Relay[N] {
	return &Relay[N]{sink: sink, opts: opts}
}

// Handle forwards n to the sink.
func (r *Relay[N]) Handle(ctx context.Context, n N) error {
	if r.sink == nil {
		return fmt.Errorf("relay %T: %w", n, berr.ErrSinkNotConfigured)
	}

	return r.sink.Forward(ctx, n, r.opts)
}
