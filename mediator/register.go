package mediator

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	berr "github.com/next-trace/scg-mediator/contract/errors"
	cmed "github.com/next-trace/scg-mediator/contract/mediator"
)

type registration struct {
	name string
}

// RegistrationOption configures a single handler registration.
type RegistrationOption func(*registration)

// WithName sets the handler identity reported in routes, middleware calls and
// AggregateHandlerError failures. The default is the handler's Go type.
func WithName(name string) RegistrationOption {
	return func(r *registration) { r.name = name }
}

func applyRegistration(opts []RegistrationOption) registration {
	var r registration
	for _, o := range opts {
		o(&r)
	}

	return r
}

// RegisterRequest binds h as the single handler for request type Q. Duplicate bindings are rejected.
func RegisterRequest[Q cmed.Request[R], R any](reg *Registry, h cmed.RequestHandler[Q, R], opts ...RegistrationOption) error {
	if h == nil {
		return fmt.Errorf("register request %s: %w", reflect.TypeFor[Q]().String(), berr.ErrNilHandler)
	}

	o := applyRegistration(opts)
	if o.name == "" {
		o.name = fmt.Sprintf("%T", h)
	}

	return addTypedRequest[Q, R](reg, o.name, Singleton, func() cmed.RequestHandler[Q, R] { return h })
}

// RegisterRequestFactory binds factory as the source of the handler for request type Q.
// The factory is called once per Send, giving every call its own handler instance.
func RegisterRequestFactory[Q cmed.Request[R], R any](
	reg *Registry,
	factory func() cmed.RequestHandler[Q, R],
	opts ...RegistrationOption,
) error {
	if factory == nil {
		return fmt.Errorf("register request %s: %w", reflect.TypeFor[Q]().String(), berr.ErrNilHandler)
	}

	o := applyRegistration(opts)
	if o.name == "" {
		o.name = "factory(" + reflect.TypeFor[Q]().String() + ")"
	}

	return addTypedRequest[Q, R](reg, o.name, Transient, factory)
}

func addTypedRequest[Q cmed.Request[R], R any](
	reg *Registry,
	name string,
	lifetime Lifetime,
	resolve func() cmed.RequestHandler[Q, R],
) error {
	t := reflect.TypeFor[Q]()
	if t.Kind() == reflect.Interface {
		return fmt.Errorf("register request %s: concrete type required: %w", t.String(), berr.ErrHandlerTypeMismatch)
	}

	res := reflect.TypeFor[R]()

	return reg.addRequest(t, &requestEntry{
		key:      t.String(),
		response: res,
		handler:  name,
		lifetime: lifetime,
		call: func(ctx context.Context, v any) (any, error) {
			q, ok := v.(Q)
			if !ok {
				return nil, fmt.Errorf("send %T: %w", v, berr.ErrHandlerTypeMismatch)
			}

			h := resolve()
			if h == nil {
				return nil, fmt.Errorf("send %s: %w", t.String(), berr.ErrNilHandler)
			}

			return h.Handle(ctx, q)
		},
	})
}

// RegisterNotification appends h to the handlers of notification type N. Multiple handlers are allowed.
func RegisterNotification[N cmed.Notification](reg *Registry, h cmed.NotificationHandler[N], opts ...RegistrationOption) error {
	if h == nil {
		return fmt.Errorf("register notification %s: %w", reflect.TypeFor[N]().String(), berr.ErrNilHandler)
	}

	o := applyRegistration(opts)
	if o.name == "" {
		o.name = fmt.Sprintf("%T", h)
	}

	return addTypedNotification[N](reg, o.name, Singleton, func() cmed.NotificationHandler[N] { return h })
}

// RegisterNotificationFactory appends a handler for N that is created anew for every Publish.
func RegisterNotificationFactory[N cmed.Notification](
	reg *Registry,
	factory func() cmed.NotificationHandler[N],
	opts ...RegistrationOption,
) error {
	if factory == nil {
		return fmt.Errorf("register notification %s: %w", reflect.TypeFor[N]().String(), berr.ErrNilHandler)
	}

	o := applyRegistration(opts)

	return addTypedNotification[N](reg, o.name, Transient, factory)
}

func addTypedNotification[N cmed.Notification](
	reg *Registry,
	name string,
	lifetime Lifetime,
	resolve func() cmed.NotificationHandler[N],
) error {
	t := reflect.TypeFor[N]()
	if t.Kind() == reflect.Interface {
		return fmt.Errorf("register notification %s: concrete type required: %w", t.String(), berr.ErrHandlerTypeMismatch)
	}

	return reg.addNotification(t, notificationEntry{
		handler:  name,
		lifetime: lifetime,
		call: func(ctx context.Context, v any) error {
			n, ok := v.(N)
			if !ok {
				return fmt.Errorf("publish %T: %w", v, berr.ErrHandlerTypeMismatch)
			}

			h := resolve()
			if h == nil {
				return fmt.Errorf("publish %s: %w", t.String(), berr.ErrNilHandler)
			}

			return h.Handle(ctx, n)
		},
	})
}

// Registration binds one handler when applied to a Registry.
// Startup code builds the full list explicitly and passes it to Registry.Register.
type Registration func(*Registry) error

// Request declares h as the handler for Q.
func Request[Q cmed.Request[R], R any](h cmed.RequestHandler[Q, R], opts ...RegistrationOption) Registration {
	return func(reg *Registry) error { return RegisterRequest[Q, R](reg, h, opts...) }
}

// RequestFactory declares a per-call handler factory for Q.
func RequestFactory[Q cmed.Request[R], R any](
	factory func() cmed.RequestHandler[Q, R],
	opts ...RegistrationOption,
) Registration {
	return func(reg *Registry) error { return RegisterRequestFactory[Q, R](reg, factory, opts...) }
}

// Notification declares h as one of the handlers for N.
func Notification[N cmed.Notification](h cmed.NotificationHandler[N], opts ...RegistrationOption) Registration {
	return func(reg *Registry) error { return RegisterNotification[N](reg, h, opts...) }
}

// NotificationFactory declares a per-publish handler factory for N.
func NotificationFactory[N cmed.Notification](
	factory func() cmed.NotificationHandler[N],
	opts ...RegistrationOption,
) Registration {
	return func(reg *Registry) error { return RegisterNotificationFactory[N](reg, factory, opts...) }
}

// Register applies every registration and returns all failures joined.
// A failed registration does not stop the remaining ones from being applied.
func (r *Registry) Register(regs ...Registration) error {
	var errs []error

	for _, apply := range regs {
		if apply == nil {
			continue
		}

		if err := apply(r); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
