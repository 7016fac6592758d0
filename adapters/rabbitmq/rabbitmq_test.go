package rabbitmq_test

import (
	"context"
	"errors"
	"testing"

	"github.com/next-trace/scg-mediator/adapters/rabbitmq"
	berr "github.com/next-trace/scg-mediator/contract/errors"
	cmed "github.com/next-trace/scg-mediator/contract/mediator"
)

type fakePublisher struct {
	calls []rabbitmq.PubMsg
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, m rabbitmq.PubMsg) error {
	f.calls = append(f.calls, m)

	return f.err
}

type userCreated struct{ Name string }

type orderPlaced struct{ T string }

func (orderPlaced) Subject() string { return "evt.orders" }

type headerStamp struct{}

func (headerStamp) Inject(_ context.Context, h map[string]string) { h["traceparent"] = "00-abc" }

func TestRabbitMQ_Forward_RoutingAndHeaders(t *testing.T) {
	fp := &fakePublisher{}
	ad := rabbitmq.New(fp)
	ad.Exchange = "notifications"

	in := map[string]string{"h": "x"}
	if err := ad.Forward(t.Context(), userCreated{Name: "Jane"}, cmed.ForwardOptions{Key: "rk", Headers: in}); err != nil {
		t.Fatalf("forward: %v", err)
	}

	if len(fp.calls) != 1 {
		t.Fatalf("want 1, got %d", len(fp.calls))
	}

	c := fp.calls[0]
	if c.Exchange != "notifications" || c.RoutingKey != "notifications.userCreated" {
		t.Fatalf("routing: %q %q", c.Exchange, c.RoutingKey)
	}

	if string(c.Body) != `{"Name":"Jane"}` {
		t.Fatalf("body: %s", c.Body)
	}

	if c.Headers["h"] != "x" || c.Headers["key"] != "rk" || c.Headers["x-notification-type"] != "userCreated" {
		t.Fatalf("headers: %+v", c.Headers)
	}

	if len(in) != 1 {
		t.Fatalf("caller headers mutated: %+v", in)
	}
}

func TestRabbitMQ_Forward_SubjectResolution(t *testing.T) {
	fp := &fakePublisher{}
	ad := rabbitmq.NewWithPropagator(fp, headerStamp{})

	_ = ad.Forward(t.Context(), orderPlaced{}, cmed.ForwardOptions{})
	_ = ad.Forward(t.Context(), orderPlaced{}, cmed.ForwardOptions{Subject: "override"})

	if fp.calls[0].RoutingKey != "evt.orders" || fp.calls[1].RoutingKey != "override" {
		t.Fatalf("routing keys: %q %q", fp.calls[0].RoutingKey, fp.calls[1].RoutingKey)
	}

	if fp.calls[0].Headers["traceparent"] != "00-abc" {
		t.Fatalf("propagator not applied: %+v", fp.calls[0].Headers)
	}
}

func TestRabbitMQ_NilPublisherError(t *testing.T) {
	ad := rabbitmq.New(nil)
	if err := ad.Forward(t.Context(), userCreated{}, cmed.ForwardOptions{}); !errors.Is(err, berr.ErrSinkNotConfigured) {
		t.Fatalf("want ErrSinkNotConfigured, got %v", err)
	}
}

func TestRabbitMQ_Forward_ErrorWrapping_And_ContextCancel(t *testing.T) {
	boom := errors.New("boom")
	ad := rabbitmq.New(&fakePublisher{err: boom})

	err := ad.Forward(t.Context(), userCreated{}, cmed.ForwardOptions{})
	if !errors.Is(err, berr.ErrForwardFailed) || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}

	ad2 := rabbitmq.New(&fakePublisher{err: context.Canceled})

	err = ad2.Forward(t.Context(), orderPlaced{}, cmed.ForwardOptions{})
	if !errors.Is(err, context.Canceled) || errors.Is(err, berr.ErrForwardFailed) {
		t.Fatalf("want bare context.Canceled, got %v", err)
	}
}

func TestRabbitMQ_Forward_SerializationFailure(t *testing.T) {
	fp := &fakePublisher{}

	err := rabbitmq.New(fp).Forward(t.Context(), make(chan int), cmed.ForwardOptions{})
	if !errors.Is(err, berr.ErrSerializationFailed) {
		t.Fatalf("want ErrSerializationFailed, got %v", err)
	}

	if len(fp.calls) != 0 {
		t.Fatalf("publisher called after serialization failure")
	}
}
