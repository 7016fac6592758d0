package mediator

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	berr "github.com/next-trace/scg-mediator/contract/errors"
	cmed "github.com/next-trace/scg-mediator/contract/mediator"
)

// Mediator dispatches requests and notifications through a frozen Registry.
//
// A Mediator holds no per-call state; it is safe for concurrent use and cheap to
// construct, so callers may share one or build one per call.
type Mediator struct {
	reg    *Registry
	mw     []Middleware
	logger *slog.Logger
}

var _ cmed.Mediator = (*Mediator)(nil)

// Option configures a Mediator instance.
type Option func(*Mediator)

// WithLogger sets the logger used for dispatch diagnostics. A nil logger discards.
func WithLogger(l *slog.Logger) Option {
	return func(m *Mediator) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMiddleware registers middleware that wraps every handler invocation.
func WithMiddleware(mw ...Middleware) Option {
	return func(m *Mediator) { m.mw = append(m.mw, mw...) }
}

// New binds a Mediator to reg and freezes reg. A nil reg yields a Mediator with no handlers.
func New(reg *Registry, opts ...Option) *Mediator {
	if reg == nil {
		reg = NewRegistry()
	}

	reg.Freeze()

	m := &Mediator{
		reg:    reg,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(m)
	}

	return m
}

// Registry returns the frozen registry the Mediator dispatches through.
func (m *Mediator) Registry() *Registry { return m.reg }

// Send routes req to its handler and returns the handler's result and error
// unchanged, including a result returned together with an error.
// A missing handler yields *errors.HandlerNotFoundError and a zero R.
func Send[R any](ctx context.Context, m *Mediator, req cmed.Request[R]) (R, error) {
	var zero R

	res, err := m.send(ctx, req)
	if res == nil {
		return zero, err
	}

	r, ok := res.(R)
	if !ok {
		if err != nil {
			return zero, err
		}

		return zero, fmt.Errorf("send %T: %w", req, berr.ErrHandlerTypeMismatch)
	}

	return r, err
}

// Exec sends a request whose response is Unit and reports only the error.
func Exec(ctx context.Context, m *Mediator, cmd cmed.Command) error {
	_, err := Send[cmed.Unit](ctx, m, cmd)
	return err
}

// SendAny routes req to its handler and returns the untyped result.
func (m *Mediator) SendAny(ctx context.Context, req any) (any, error) {
	return m.send(ctx, req)
}

func (m *Mediator) send(ctx context.Context, req any) (any, error) {
	if req == nil {
		return nil, fmt.Errorf("send: %w", berr.ErrNilMessage)
	}

	t := reflect.TypeOf(req)

	e, ok := m.reg.request(t)
	if !ok {
		m.logger.WarnContext(ctx, "request handler not found", slog.String("request", t.String()))
		return nil, &berr.HandlerNotFoundError{TypeKey: t.String()}
	}

	m.logger.DebugContext(ctx, "send",
		slog.String("request", e.key),
		slog.String("handler", e.handler),
		slog.String("lifetime", e.lifetime.String()),
	)

	call := Call{Kind: KindRequest, Type: e.key, Handler: e.handler, Message: req}
	invoke := wrap(func(ctx context.Context, c Call) (any, error) { return e.call(ctx, c.Message) }, m.mw)

	return invoke(ctx, call)
}

// Publish runs every handler registered for the dynamic type of n concurrently
// and returns once all of them have finished.
//
// No handlers is a no-op. Failed handlers are collected, in registration order,
// into *errors.AggregateHandlerError; a failure never stops the other handlers.
// A panicking handler is recorded as *errors.PanicError.
func (m *Mediator) Publish(ctx context.Context, n cmed.Notification) error {
	if n == nil {
		return fmt.Errorf("publish: %w", berr.ErrNilMessage)
	}

	t := reflect.TypeOf(n)
	entries := m.reg.notifications(t)

	m.logger.DebugContext(ctx, "publish",
		slog.String("notification", t.String()),
		slog.Int("handlers", len(entries)),
	)

	if len(entries) == 0 {
		return nil
	}

	errs := make([]error, len(entries))

	var g errgroup.Group
	for i, e := range entries {
		g.Go(func() error {
			errs[i] = m.notify(ctx, t, e, n)
			return nil
		})
	}

	_ = g.Wait() // branches report through errs

	var failures []berr.HandlerFailure

	for i, err := range errs {
		if err != nil {
			failures = append(failures, berr.HandlerFailure{Handler: entries[i].handler, Err: err})
		}
	}

	if len(failures) == 0 {
		return nil
	}

	agg := &berr.AggregateHandlerError{TypeKey: t.String(), Failures: failures}
	m.logger.WarnContext(ctx, "notification handlers failed",
		slog.String("notification", t.String()),
		slog.Int("failed", len(failures)),
		slog.Int("handlers", len(entries)),
	)

	return agg
}

func (m *Mediator) notify(ctx context.Context, t reflect.Type, e notificationEntry, n any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &berr.PanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()

	call := Call{Kind: KindNotification, Type: t.String(), Handler: e.handler, Message: n}
	invoke := wrap(func(ctx context.Context, c Call) (any, error) { return nil, e.call(ctx, c.Message) }, m.mw)

	_, err = invoke(ctx, call)

	return err
}
