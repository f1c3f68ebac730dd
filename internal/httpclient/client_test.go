package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNew_CountsRequestsAndSetsHeaders(t *testing.T) {
	var gotKey, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		gotUA = r.Header.Get("User-Agent")
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	client, err := New(
		WithMeterProvider(mp),
		WithProvider("ethereum"),
		WithTimeout(2*time.Second),
		WithHeader("X-Api-Key", "secret"),
		WithHeader("User-Agent", "multiprice-oracle/test"),
	)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, client.Timeout)

	for _, path := range []string{"/", "/", "/missing"} {
		resp, err := client.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "multiprice-oracle/test", gotUA)

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("X-Api-Key", "caller")
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "caller", gotKey)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	byStatus := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != metricRequestCounter {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value("status")
				byStatus[v.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, int64(3), byStatus["200"])
	assert.Equal(t, int64(1), byStatus["404"])
}

func TestNew_Defaults(t *testing.T) {
	client, err := New()
	require.NoError(t, err)
	assert.Equal(t, defaultRequestTimeout, client.Timeout)
	assert.NotNil(t, client.Transport)
}

func TestNew_TransportError(t *testing.T) {
	client, err := New(WithTimeout(200*time.Millisecond), WithTimeout(0))
	require.NoError(t, err)
	assert.Equal(t, 200*time.Millisecond, client.Timeout)

	_, err = client.Get("http://127.0.0.1:1/unreachable")
	require.Error(t, err)
}
