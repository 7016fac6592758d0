// Package middleware provides opt-in mediator middleware: structured logging,
// panic recovery, OpenTelemetry tracing and metrics, plus a trace-context
// HeaderPropagator for notification sinks.
//
// Middleware is installed with mediator.WithMiddleware and runs in the order
// given, first outermost. During Publish every handler passes through its own
// instance of the chain.
package middleware
