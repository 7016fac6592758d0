package middleware

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"golang.org/x/time/rate"

	"github.com/next-trace/scg-mediator/mediator"
)

// RateLimit returns middleware that throttles handler invocations per message
// type with a token bucket of perSecond tokens and the given burst. A burst of
// zero or less defaults to 1; perSecond of zero or less disables throttling.
// Buckets are keyed by reflect.Type, so types that print alike never share one.
//
// Calls wait for a token and give up when ctx is done. Handlers of one
// Publish share the bucket of their notification type.
func RateLimit(perSecond float64, burst int) mediator.Middleware {
	if perSecond <= 0 {
		return func(next mediator.HandlerFunc) mediator.HandlerFunc { return next }
	}

	if burst <= 0 {
		burst = 1
	}

	var (
		mu       sync.Mutex
		limiters = make(map[reflect.Type]*rate.Limiter)
	)

	limiterFor := func(key reflect.Type) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		l, ok := limiters[key]
		if !ok {
			l = rate.NewLimiter(rate.Limit(perSecond), burst)
			limiters[key] = l
		}

		return l
	}

	return func(next mediator.HandlerFunc) mediator.HandlerFunc {
		return func(ctx context.Context, c mediator.Call) (any, error) {
			if err := limiterFor(reflect.TypeOf(c.Message)).Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit %s: %w", c.Type, err)
			}

			return next(ctx, c)
		}
	}
}
