package errors

import (
	"fmt"
	"strings"
)

// HandlerNotFoundError reports a Send for a request type with no registered handler.
// It matches ErrHandlerNotFound under errors.Is.
type HandlerNotFoundError struct {
	TypeKey string
}

func (e *HandlerNotFoundError) Error() string {
	return ErrCodeHandlerNotFound + ": no handler registered for " + e.TypeKey
}

func (e *HandlerNotFoundError) Is(target error) bool { return target == ErrHandlerNotFound }

// DuplicateHandlerError reports a second request handler registration for the same type key.
// It matches ErrHandlerExists under errors.Is.
type DuplicateHandlerError struct {
	TypeKey string
}

func (e *DuplicateHandlerError) Error() string {
	return ErrCodeHandlerExists + ": handler already registered for " + e.TypeKey
}

func (e *DuplicateHandlerError) Is(target error) bool { return target == ErrHandlerExists }

// HandlerFailure pairs a notification handler's identity with the error it returned.
type HandlerFailure struct {
	Handler string
	Err     error
}

func (f HandlerFailure) Error() string { return f.Handler + ": " + f.Err.Error() }

func (f HandlerFailure) Unwrap() error { return f.Err }

// AggregateHandlerError collects every failed handler of a single Publish, in registration order.
// It matches ErrHandlerFailed under errors.Is, and errors.Is/As also reach each underlying cause.
type AggregateHandlerError struct {
	TypeKey  string
	Failures []HandlerFailure
}

func (e *AggregateHandlerError) Error() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s: %d handler(s) failed for %s", ErrCodeHandlerFailed, len(e.Failures), e.TypeKey)

	for _, f := range e.Failures {
		sb.WriteString("; ")
		sb.WriteString(f.Error())
	}

	return sb.String()
}

func (e *AggregateHandlerError) Is(target error) bool { return target == ErrHandlerFailed }

func (e *AggregateHandlerError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}

	return errs
}

// Handlers returns the identities of the failed handlers.
func (e *AggregateHandlerError) Handlers() []string {
	names := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		names[i] = f.Handler
	}

	return names
}

// PanicError is the failure recorded for a notification handler that panicked.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string { return fmt.Sprintf("%s: %v", ErrCodeHandlerPanicked, e.Value) }

func (e *PanicError) Is(target error) bool { return target == ErrHandlerPanicked }
