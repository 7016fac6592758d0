package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/next-trace/scg-mediator/mediator"
)

// Metrics returns middleware that records per-handler metrics using the global
// OTel MeterProvider. If none is configured, noop instruments are used.
//
// Instruments:
//   - mediator.handler.duration (Float64Histogram): execution time in seconds
//   - mediator.handler.executions (Int64Counter): total executions
//
// Both carry the attributes kind, type (import-path qualified), handler and
// status ("ok" or "error").
func Metrics() mediator.Middleware {
	return MetricsWithMeter(otel.Meter(instrumentationName))
}

// MetricsWithMeter returns metrics middleware using the provided meter.
func MetricsWithMeter(meter metric.Meter) mediator.Middleware {
	// On error the API returns noop instruments.
	duration, _ := meter.Float64Histogram(
		"mediator.handler.duration",
		metric.WithDescription("Duration of handler execution in seconds"),
		metric.WithUnit("s"),
	)

	executions, _ := meter.Int64Counter(
		"mediator.handler.executions",
		metric.WithDescription("Total number of handler executions"),
		metric.WithUnit("{execution}"),
	)

	return func(next mediator.HandlerFunc) mediator.HandlerFunc {
		return func(ctx context.Context, c mediator.Call) (any, error) {
			start := time.Now()
			res, err := next(ctx, c)
			elapsed := time.Since(start).Seconds()

			status := "ok"
			if err != nil {
				status = "error"
			}

			attrs := metric.WithAttributes(
				attribute.String("kind", string(c.Kind)),
				attribute.String("type", qualifiedType(c.Message, c.Type)),
				attribute.String("handler", c.Handler),
				attribute.String("status", status),
			)

			duration.Record(ctx, elapsed, attrs)
			executions.Add(ctx, 1, attrs)

			return res, err
		}
	}
}
