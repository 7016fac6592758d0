package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/next-trace/scg-mediator/mediator"
)

// instrumentationName is the instrumentation scope name for tracing and metrics.
const instrumentationName = "github.com/next-trace/scg-mediator"

// Tracing returns middleware that wraps each handler invocation in an OpenTelemetry span.
// If no TracerProvider is configured globally, the default noop tracer is used
// and this middleware becomes a pass-through.
//
// Span attributes: mediator.kind, mediator.type, mediator.handler.
func Tracing() mediator.Middleware {
	return TracingWithTracer(otel.Tracer(instrumentationName))
}

// TracingWithTracer returns tracing middleware using the provided tracer.
func TracingWithTracer(tracer trace.Tracer) mediator.Middleware {
	return func(next mediator.HandlerFunc) mediator.HandlerFunc {
		return func(ctx context.Context, c mediator.Call) (any, error) {
			ctx, span := tracer.Start(ctx, "mediator."+string(c.Kind),
				trace.WithAttributes(
					attribute.String("mediator.kind", string(c.Kind)),
					attribute.String("mediator.type", c.Type),
					attribute.String("mediator.handler", c.Handler),
				),
				trace.WithSpanKind(trace.SpanKindInternal),
			)
			defer span.End()

			res, err := next(ctx, c)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetStatus(codes.Ok, "")
			}

			return res, err
		}
	}
}
