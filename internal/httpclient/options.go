// Package httpclient builds HTTP clients with OTEL tracing and a request counter.
package httpclient

import (
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	defaultDialKeepAlive         = 10 * time.Second
	defaultRequestTimeout        = 10 * time.Second
	defaultMaxConnsPerHost       = 16
	defaultIdleConnTimeout       = 2 * time.Minute
	defaultExpectContinueTimeout = 100 * time.Millisecond
)

// Option configures New.
type Option func(*options)

type options struct {
	meterProvider metric.MeterProvider
	provider      string
	transport     http.RoundTripper
	timeout       time.Duration
	header        http.Header
}

func newOptions(opts []Option) options {
	o := options{
		provider: "default",
		timeout:  defaultRequestTimeout,
		header:   http.Header{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}
	if o.transport == nil {
		o.transport = defaultTransport()
	}
	return o
}

// The node is a single host, so connections per host are capped rather
// than idle connections overall.
func defaultTransport() *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{KeepAlive: defaultDialKeepAlive}).DialContext,
		MaxConnsPerHost:       defaultMaxConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		ExpectContinueTimeout: defaultExpectContinueTimeout,
	}
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithProvider labels metrics with the upstream name, e.g. "ethereum".
func WithProvider(name string) Option {
	return func(o *options) {
		if name != "" {
			o.provider = name
		}
	}
}

func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithTimeout bounds a whole request. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithHeader adds a header to every request that does not already set it.
func WithHeader(key, value string) Option {
	return func(o *options) { o.header.Set(key, value) }
}
