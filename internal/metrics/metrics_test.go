package metrics_test

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/multiprice-oracle/internal/metrics"
)

func TestNewMetricProvider_RequiresReader(t *testing.T) {
	_, err := metrics.NewMetricProvider(metrics.WithServiceName("test"))
	assert.Error(t, err)
}

func TestNewMetricProvider_PrometheusExport(t *testing.T) {
	mp, err := metrics.NewMetricProvider(
		metrics.WithServiceName("test"),
		metrics.WithPrometheus(),
	)
	require.NoError(t, err)
	defer mp.Shutdown(context.Background())

	counter, err := mp.Meter("test").Int64Counter("oracle_test_events_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	srv := httptest.NewServer(metrics.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "oracle_test_events")
}

func TestForExporter(t *testing.T) {
	apply := func(opts []metrics.OptionFn) metrics.Config {
		var cfg metrics.Config
		for _, o := range opts {
			cfg = o(cfg)
		}
		return cfg
	}

	cfg := apply(metrics.ForExporter("oracle", "zipkin", "http://collector:4317", nil))
	assert.Equal(t, "oracle", cfg.ServiceName)
	require.Len(t, cfg.Provider, 1)
	assert.Equal(t, metrics.PrometheusProvider, cfg.Provider[0].Provider)

	cfg = apply(metrics.ForExporter("oracle", "otlp-grpc", "", nil))
	assert.Len(t, cfg.Provider, 1)

	cfg = apply(metrics.ForExporter("oracle", "otlp-grpc", "http://collector:4317", map[string]string{"k": "v"}))
	require.Len(t, cfg.Provider, 2)
	otlp := cfg.Provider[1]
	assert.Equal(t, metrics.OtelCollector, otlp.Provider)
	assert.Equal(t, "http://collector:4317", otlp.Endpoint)
	assert.True(t, otlp.Insecure)
	assert.Positive(t, otlp.Interval)
}
