package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	berr "github.com/next-trace/scg-mediator/contract/errors"
	cmed "github.com/next-trace/scg-mediator/contract/mediator"
)

const topicPrefix = "notifications."

// Writer is a minimal Kafka-like writer interface.
// Users can adapt franz-go, segmentio/kafka-go or any other client to this.
type Writer interface {
	Write(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// Adapter implements cmed.NotificationSink using an injected Writer.
type Adapter struct {
	Writer     Writer
	Propagator cmed.HeaderPropagator // optional
}

var _ cmed.NotificationSink = (*Adapter)(nil)

// New creates a new Kafka adapter instance with the provided writer.
func New(w Writer) *Adapter { return &Adapter{Writer: w} }

// NewWithPropagator creates an adapter that injects trace context into record headers.
func NewWithPropagator(w Writer, hp cmed.HeaderPropagator) *Adapter {
	return &Adapter{Writer: w, Propagator: hp}
}

// Forward writes n as a JSON record. ForwardOptions.Key becomes the record key.
func (a *Adapter) Forward(ctx context.Context, n cmed.Notification, opts cmed.ForwardOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Writer == nil {
		return fmt.Errorf("kafka forward: %w", berr.ErrSinkNotConfigured)
	}

	val, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("kafka forward serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	var key []byte
	if opts.Key != "" {
		key = []byte(opts.Key)
	}

	headers := forwardHeaders(n, opts)
	if a.Propagator != nil {
		a.Propagator.Inject(ctx, headers)
	}

	if err = a.Writer.Write(ctx, topicFor(n, opts), key, val, headers); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("kafka forward write: %w", errors.Join(berr.ErrForwardFailed, err))
	}

	return nil
}

// helpers (duplicated for simplicity and test isolation)

func typeName(v any) string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	name := t.Name()
	if name == "" {
		name = t.String()
	}

	return name
}

func topicFor(n any, o cmed.ForwardOptions) string {
	if o.Subject != "" {
		return o.Subject
	}

	if r, ok := n.(cmed.Routable); ok && r.Subject() != "" {
		return r.Subject()
	}

	return topicPrefix + typeName(n)
}

func forwardHeaders(n any, o cmed.ForwardOptions) map[string]string {
	h := make(map[string]string, len(o.Headers)+1)
	for k, v := range o.Headers {
		h[k] = v
	}

	h["x-notification-type"] = typeName(n)

	return h
}
