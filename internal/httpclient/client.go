package httpclient

import (
	"context"
	"net/http"
	"net/http/httptrace"
	"strconv"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const metricRequestCounter = "http_client_requests_total"

// New returns an *http.Client whose transport is traced with otelhttp and
// counts every request by provider, method and status.
func New(opts ...Option) (*http.Client, error) {
	o := newOptions(opts)

	meter := o.meterProvider.Meter(
		"instrumented_http_client",
		metric.WithInstrumentationAttributes(attribute.String("provider", o.provider)),
	)
	requests, err := meter.Int64Counter(
		metricRequestCounter,
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	counted := &countingTransport{
		next:     o.transport,
		requests: requests,
		provider: o.provider,
		header:   o.header,
	}
	return &http.Client{
		Timeout: o.timeout,
		Transport: otelhttp.NewTransport(counted,
			otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
				return otelhttptrace.NewClientTrace(ctx)
			}),
		),
	}, nil
}

type countingTransport struct {
	next     http.RoundTripper
	requests metric.Int64Counter
	provider string
	header   http.Header
}

func (t *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if missing := t.missingHeaders(req); len(missing) > 0 {
		req = req.Clone(req.Context())
		for k, v := range missing {
			req.Header[k] = v
		}
	}

	resp, err := t.next.RoundTrip(req)

	status := "error"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	t.requests.Add(req.Context(), 1, metric.WithAttributes(
		attribute.String("provider", t.provider),
		attribute.String("method", req.Method),
		attribute.String("status", status),
	))
	return resp, err
}

func (t *countingTransport) missingHeaders(req *http.Request) http.Header {
	var missing http.Header
	for k, v := range t.header {
		if _, ok := req.Header[k]; ok {
			continue
		}
		if missing == nil {
			missing = http.Header{}
		}
		missing[k] = v
	}
	return missing
}
