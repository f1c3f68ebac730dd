// Package ratelimit throttles outbound node reads with a token bucket.
package ratelimit

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"github.com/fd1az/multiprice-oracle/internal/apperror"
)

const meterName = "github.com/fd1az/multiprice-oracle/internal/ratelimit"

// Limiter is a named token bucket. Time spent waiting for a token is
// recorded as ratelimit_wait_ms{limiter}.
type Limiter struct {
	name    string
	limiter *rate.Limiter
	waited  metric.Float64Histogram
	attrs   metric.MeasurementOption
}

// New creates a limiter allowing requestsPerSecond with the given burst.
// A non-positive rate disables limiting.
func New(name string, requestsPerSecond float64, burst int) *Limiter {
	l := &Limiter{
		name:  name,
		attrs: metric.WithAttributes(attribute.String("limiter", name)),
	}
	if requestsPerSecond <= 0 {
		l.limiter = rate.NewLimiter(rate.Inf, 0)
	} else {
		if burst < 1 {
			burst = 1
		}
		l.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}

	waited, err := otel.Meter(meterName).Float64Histogram(
		"ratelimit_wait_ms",
		metric.WithDescription("Time spent waiting for a rate limit token"),
		metric.WithUnit("ms"),
	)
	if err == nil {
		l.waited = waited
	}
	return l
}

// Wait blocks until a token is available. A cancelled or expiring ctx
// yields a CodeRateLimitExceeded error.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.Unlimited() {
		return nil
	}
	start := time.Now()
	err := l.limiter.Wait(ctx)
	if l.waited != nil {
		l.waited.Record(ctx, float64(time.Since(start).Milliseconds()), l.attrs)
	}
	if err != nil {
		return apperror.New(apperror.CodeRateLimitExceeded,
			apperror.WithCause(err),
			apperror.WithContext(l.name))
	}
	return nil
}

// Allow reports whether a read may happen now, consuming a token if so.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Unlimited reports whether limiting is disabled.
func (l *Limiter) Unlimited() bool {
	return l.limiter.Limit() == rate.Inf
}
