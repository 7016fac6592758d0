package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	cmed "github.com/next-trace/scg-mediator/contract/mediator"
)

// TracePropagator injects the span context of ctx into sink headers using an
// OpenTelemetry TextMapPropagator.
type TracePropagator struct {
	Propagator propagation.TextMapPropagator // nil uses otel.GetTextMapPropagator()
}

var _ cmed.HeaderPropagator = TracePropagator{}

// NewTracePropagator returns a W3C trace-context and baggage propagator.
func NewTracePropagator() TracePropagator {
	return TracePropagator{
		Propagator: propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}),
	}
}

func (p TracePropagator) Inject(ctx context.Context, headers map[string]string) {
	if headers == nil {
		return
	}

	prop := p.Propagator
	if prop == nil {
		prop = otel.GetTextMapPropagator()
	}

	prop.Inject(ctx, propagation.MapCarrier(headers))
}
