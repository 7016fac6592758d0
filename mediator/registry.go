package mediator

// revive:disable:max-public-structs

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	berr "github.com/next-trace/scg-mediator/contract/errors"
)

// Lifetime controls how a registered handler instance is obtained per dispatch.
type Lifetime int

const (
	// Singleton reuses the registered handler value for every call.
	Singleton Lifetime = iota
	// Transient asks the registered factory for a fresh handler on every call.
	Transient
)

func (l Lifetime) String() string {
	if l == Transient {
		return "transient"
	}

	return "singleton"
}

type requestEntry struct {
	key      string
	response reflect.Type // nil for untyped registrations
	handler  string
	lifetime Lifetime
	call     func(ctx context.Context, req any) (any, error)
}

type notificationEntry struct {
	handler  string
	lifetime Lifetime
	call     func(ctx context.Context, n any) error
}

// Registry maps request types to their single handler and notification types to
// an ordered set of handlers.
//
// A Registry is populated during startup and then frozen. Registration after
// Freeze fails with ErrRegistryFrozen; lookups on a frozen Registry take no lock.
type Registry struct {
	mu     sync.RWMutex
	frozen atomic.Bool

	req map[reflect.Type]*requestEntry
	ntf map[reflect.Type][]notificationEntry
}

// NewRegistry returns an empty, unfrozen Registry.
func NewRegistry() *Registry {
	return &Registry{
		req: make(map[reflect.Type]*requestEntry),
		ntf: make(map[reflect.Type][]notificationEntry),
	}
}

// Freeze ends the registration phase. It is idempotent.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen.Store(true)
	r.mu.Unlock()
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool { return r.frozen.Load() }

// RegisterRequestOf registers an untyped handler for the dynamic type of sample.
// Provide a zero value of the request type via sample.
func (r *Registry) RegisterRequestOf(sample any, handler func(ctx context.Context, req any) (any, error)) error {
	if sample == nil {
		return fmt.Errorf("register request: %w", berr.ErrNilMessage)
	}

	if handler == nil {
		return fmt.Errorf("register request %T: %w", sample, berr.ErrNilHandler)
	}

	t := reflect.TypeOf(sample)

	return r.addRequest(t, &requestEntry{
		key:     t.String(),
		handler: "func(" + t.String() + ")",
		call:    handler,
	})
}

// RegisterNotificationOf appends an untyped handler for the dynamic type of sample.
func (r *Registry) RegisterNotificationOf(sample any, handler func(ctx context.Context, n any) error) error {
	if sample == nil {
		return fmt.Errorf("register notification: %w", berr.ErrNilMessage)
	}

	if handler == nil {
		return fmt.Errorf("register notification %T: %w", sample, berr.ErrNilHandler)
	}

	t := reflect.TypeOf(sample)

	return r.addNotification(t, notificationEntry{call: handler})
}

func (r *Registry) addRequest(t reflect.Type, e *requestEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen.Load() {
		return fmt.Errorf("register request %s: %w", e.key, berr.ErrRegistryFrozen)
	}

	if _, exists := r.req[t]; exists {
		return &berr.DuplicateHandlerError{TypeKey: e.key}
	}

	r.req[t] = e

	return nil
}

func (r *Registry) addNotification(t reflect.Type, e notificationEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen.Load() {
		return fmt.Errorf("register notification %s: %w", t.String(), berr.ErrRegistryFrozen)
	}

	if e.handler == "" {
		e.handler = fmt.Sprintf("%s#%d", t.String(), len(r.ntf[t]))
	}

	r.ntf[t] = append(r.ntf[t], e)

	return nil
}

func (r *Registry) request(t reflect.Type) (*requestEntry, bool) {
	if r.frozen.Load() {
		e, ok := r.req[t]
		return e, ok
	}

	r.mu.RLock()
	e, ok := r.req[t]
	r.mu.RUnlock()

	return e, ok
}

// notifications returns the handlers for t. The frozen slice is shared and must not be mutated.
func (r *Registry) notifications(t reflect.Type) []notificationEntry {
	if r.frozen.Load() {
		return r.ntf[t]
	}

	r.mu.RLock()
	entries := append([]notificationEntry(nil), r.ntf[t]...)
	r.mu.RUnlock()

	return entries
}

// Validate reports every sample request type that has no registered handler.
// Call it at startup to surface missing bindings before the first Send.
func (r *Registry) Validate(requests ...any) error {
	var errs []error

	for _, s := range requests {
		if s == nil {
			errs = append(errs, fmt.Errorf("validate: %w", berr.ErrNilMessage))
			continue
		}

		t := reflect.TypeOf(s)
		if _, ok := r.request(t); !ok {
			errs = append(errs, &berr.HandlerNotFoundError{TypeKey: t.String()})
		}
	}

	return errors.Join(errs...)
}

// Route describes the handlers bound to one message type.
// Type uses the same key as HandlerNotFoundError and AggregateHandlerError.
type Route struct {
	Kind     Kind
	Type     string
	Response string // declared response type; empty for notifications and untyped requests
	Handlers []string
}

// Routes returns the routing table sorted by kind, then type.
func (r *Registry) Routes() []Route {
	r.mu.RLock()
	defer r.mu.RUnlock()

	routes := make([]Route, 0, len(r.req)+len(r.ntf))

	for _, e := range r.req {
		rt := Route{Kind: KindRequest, Type: e.key, Handlers: []string{e.handler}}
		if e.response != nil {
			rt.Response = e.response.String()
		}

		routes = append(routes, rt)
	}

	for t, entries := range r.ntf {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.handler
		}

		routes = append(routes, Route{Kind: KindNotification, Type: t.String(), Handlers: names})
	}

	slices.SortFunc(routes, func(a, b Route) int {
		if a.Kind != b.Kind {
			if a.Kind < b.Kind {
				return 1 // requests first
			}

			return -1
		}

		return cmp.Compare(a.Type, b.Type)
	})

	return routes
}
