package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	amqp "github.com/rabbitmq/amqp091-go"

	berr "github.com/next-trace/scg-mediator/contract/errors"
	cmed "github.com/next-trace/scg-mediator/contract/mediator"
)

const (
	routingPrefix          = "notifications."
	notificationTypeHeader = "x-notification-type"
)

// PubMsg is a single AMQP publishing handed to a Publisher.
type PubMsg struct {
	Exchange   string
	RoutingKey string
	Body       []byte
	Headers    map[string]string
}

type Publisher interface {
	Publish(ctx context.Context, m PubMsg) error
}

// Adapter implements cmed.NotificationSink on top of a Publisher.
type Adapter struct {
	Publisher  Publisher
	Propagator cmed.HeaderPropagator // optional, for context propagation into headers
	Exchange   string                // empty means the default exchange
}

var _ cmed.NotificationSink = (*Adapter)(nil)

func New(p Publisher) *Adapter { return &Adapter{Publisher: p} }

// NewWithPropagator allows configuring a HeaderPropagator for context propagation.
func NewWithPropagator(p Publisher, hp cmed.HeaderPropagator) *Adapter {
	return &Adapter{Publisher: p, Propagator: hp}
}

// Forward publishes n to the adapter exchange using the resolved subject as routing key.
func (a *Adapter) Forward(ctx context.Context, n cmed.Notification, opts cmed.ForwardOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Publisher == nil {
		return fmt.Errorf("rabbitmq forward: %w", berr.ErrSinkNotConfigured)
	}

	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("rabbitmq forward serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	hdrs := forwardHeaders(n, opts)
	if a.Propagator != nil {
		a.Propagator.Inject(ctx, hdrs)
	}

	msg := PubMsg{
		Exchange:   a.Exchange,
		RoutingKey: routingFor(n, opts),
		Body:       body,
		Headers:    hdrs,
	}
	if err := a.Publisher.Publish(ctx, msg); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("rabbitmq forward publish: %w", errors.Join(berr.ErrForwardFailed, err))
	}

	return nil
}

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

func routingFor(n any, o cmed.ForwardOptions) string {
	if o.Subject != "" {
		return o.Subject
	}

	if r, ok := n.(cmed.Routable); ok && r.Subject() != "" {
		return r.Subject()
	}

	return routingPrefix + typeName(n)
}

// forwardHeaders copies caller headers so the caller-provided map is never mutated.
func forwardHeaders(n any, o cmed.ForwardOptions) map[string]string {
	h := make(map[string]string, len(o.Headers)+4)
	for k, v := range o.Headers {
		h[k] = v
	}

	if o.Key != "" {
		h["key"] = o.Key
	}

	h[notificationTypeHeader] = typeName(n)

	return h
}

func toTable(headers map[string]string) amqp.Table {
	if len(headers) == 0 {
		return nil
	}

	t := amqp.Table{}
	for k, v := range headers {
		t[k] = v
	}

	return t
}

type amqpChannelPublisher struct{ ch *amqp.Channel }

func (p amqpChannelPublisher) Publish(ctx context.Context, m PubMsg) error {
	return p.ch.PublishWithContext(
		ctx,
		m.Exchange,
		m.RoutingKey,
		false,
		false,
		amqp.Publishing{
			Headers:     toTable(m.Headers),
			Body:        m.Body,
			ContentType: "application/json",
		},
	)
}

// NewWithAMQPChannel wraps an already opened channel. The caller owns its lifecycle.
func NewWithAMQPChannel(ch *amqp.Channel, exchange string) *Adapter {
	return &Adapter{Publisher: amqpChannelPublisher{ch: ch}, Exchange: exchange}
}
