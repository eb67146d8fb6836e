package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IndependentRegistries(t *testing.T) {
	// A second call must not panic with "duplicate metrics collector registration".
	a := New()
	b := New()
	assert.NotSame(t, a.Registry(), b.Registry())
}

func TestObserveLoad(t *testing.T) {
	m := New()
	m.ObserveLoad("fjords", 0.2, nil)
	m.ObserveLoad("fjords", 0.1, nil)
	m.ObserveLoad("bounds", 0.3, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FileLoads.WithLabelValues("fjords", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FileLoads.WithLabelValues("bounds", "error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.FileLoads.WithLabelValues("bounds", "success")))
}

func TestObserveLoad_NilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.ObserveLoad("fjords", 1, nil) })
}

func TestHandler_Exposition(t *testing.T) {
	m := New()
	m.Requests.WithLabelValues("/health", "200").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `fjord_atlas_http_requests_total{route="/health",status="200"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
