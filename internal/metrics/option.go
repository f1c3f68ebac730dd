package metrics

import "time"

// Provider names a metric reader backend.
type Provider string

const (
	PrometheusProvider Provider = "prometheus"
	OtelCollector      Provider = "otlp-grpc"

	InsecureOtel = true
	SecureOtel   = false

	defaultExportInterval = 15 * time.Second
)

// Config is assembled from OptionFns by NewMetricProvider.
type Config struct {
	ServiceName string
	Provider    []ProviderCfg
}

// ProviderCfg configures one reader. Endpoint, Headers, Insecure and
// Interval only apply to OtelCollector.
type ProviderCfg struct {
	Provider Provider
	Endpoint string
	Headers  map[string]string
	Insecure bool
	Interval time.Duration
}

// NewOtelCollectorConfig returns a push reader config for an OTLP gRPC collector.
func NewOtelCollectorConfig(url string, headers map[string]string, insecure bool) ProviderCfg {
	return ProviderCfg{
		Provider: OtelCollector,
		Endpoint: url,
		Headers:  headers,
		Insecure: insecure,
		Interval: defaultExportInterval,
	}
}

type OptionFn func(config Config) Config

func WithServiceName(serviceName string) OptionFn {
	return func(config Config) Config {
		config.ServiceName = serviceName
		return config
	}
}

func WithProviderConfig(provider ProviderCfg) OptionFn {
	return func(config Config) Config {
		config.Provider = append(config.Provider, provider)
		return config
	}
}

// WithPrometheus adds the pull reader behind Handler.
func WithPrometheus() OptionFn {
	return WithProviderConfig(ProviderCfg{Provider: PrometheusProvider})
}

// ForExporter returns the options for a service whose telemetry exporter is
// exporter. Prometheus is always on; an "otlp-grpc" exporter with an
// endpoint also pushes to the collector.
func ForExporter(serviceName, exporter, endpoint string, headers map[string]string) []OptionFn {
	opts := []OptionFn{WithServiceName(serviceName), WithPrometheus()}
	if Provider(exporter) == OtelCollector && endpoint != "" {
		opts = append(opts, WithProviderConfig(NewOtelCollectorConfig(endpoint, headers, InsecureOtel)))
	}
	return opts
}

type PromServerConfig struct {
	port string
}

type PromOptionFn func(config PromServerConfig) PromServerConfig

func WithPort(port string) PromOptionFn {
	return func(config PromServerConfig) PromServerConfig {
		config.port = port
		return config
	}
}
