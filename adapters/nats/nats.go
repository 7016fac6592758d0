package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	berr "github.com/next-trace/scg-mediator/contract/errors"
	cmed "github.com/next-trace/scg-mediator/contract/mediator"
)

const subjectPrefix = "notifications."

// Client is a minimal NATS-like publisher interface decoupled from any concrete library.
// Users can provide a wrapper around their NATS connection to satisfy this.
type Client interface {
	// Publish publishes a message to a subject with optional headers.
	Publish(subject string, data []byte, headers map[string]string) error
}

// Adapter implements cmed.NotificationSink using an injected NATS-like Client.
type Adapter struct {
	Client     Client
	Propagator cmed.HeaderPropagator // optional
}

// Ensure Adapter implements the contract.
var _ cmed.NotificationSink = (*Adapter)(nil)

// New creates a new NATS adapter instance with the provided client.
func New(c Client) *Adapter { return &Adapter{Client: c} }

// NewWithPropagator creates an adapter that injects trace context into message headers.
func NewWithPropagator(c Client, hp cmed.HeaderPropagator) *Adapter {
	return &Adapter{Client: c, Propagator: hp}
}

// Forward serializes n as JSON and publishes it on the resolved subject.
func (a *Adapter) Forward(ctx context.Context, n cmed.Notification, opts cmed.ForwardOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Client == nil {
		return fmt.Errorf("nats forward: %w", berr.ErrSinkNotConfigured)
	}

	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("nats forward serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	headers := forwardHeaders(n, opts)
	if a.Propagator != nil {
		a.Propagator.Inject(ctx, headers)
	}

	if err := a.Client.Publish(subjectFor(n, opts), body, headers); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("nats forward publish: %w", errors.Join(berr.ErrForwardFailed, err))
	}

	return nil
}

// helpers

func typeName(v any) string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	name := t.Name()
	if name == "" { // unnamed (e.g., map/struct literal)
		name = t.String()
	}

	return name
}

func subjectFor(n any, o cmed.ForwardOptions) string {
	if o.Subject != "" {
		return o.Subject
	}

	if r, ok := n.(cmed.Routable); ok && r.Subject() != "" {
		return r.Subject()
	}

	return subjectPrefix + typeName(n)
}

func forwardHeaders(n any, o cmed.ForwardOptions) map[string]string {
	h := make(map[string]string, len(o.Headers)+2)
	for k, v := range o.Headers {
		h[k] = v
	}

	if o.Key != "" {
		h["key"] = o.Key
	}

	h["x-notification-type"] = typeName(n)

	return h
}
