package mediator

import (
	"context"

	cmed "github.com/next-trace/scg-mediator/contract/mediator"
)

// Sender is a thin facade over Mediator for code that only issues requests.
type Sender struct{ m *Mediator }

// NewSender constructs a Sender over a Mediator.
func NewSender(m *Mediator) *Sender { return &Sender{m: m} }

// SendAny sends an untyped request using the underlying Mediator.
func (s *Sender) SendAny(ctx context.Context, req any) (any, error) { return s.m.SendAny(ctx, req) }

// SendVia is the typed helper for sending through a Sender.
func SendVia[R any](ctx context.Context, s *Sender, req cmed.Request[R]) (R, error) {
	return Send[R](ctx, s.m, req)
}

// Publisher is a thin facade over Mediator for code that only raises notifications.
type Publisher struct{ m *Mediator }

// NewPublisher constructs a Publisher over a Mediator.
func NewPublisher(m *Mediator) *Publisher { return &Publisher{m: m} }

// Publish publishes a notification using the underlying Mediator.
func (p *Publisher) Publish(ctx context.Context, n cmed.Notification) error { return p.m.Publish(ctx, n) }
