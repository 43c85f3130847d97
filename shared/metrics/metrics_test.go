package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveHTTPCountsByRoute(t *testing.T) {
	m := New()
	m.ObserveHTTP("/teams/{teamId}", http.MethodGet, 200, 10*time.Millisecond)
	m.ObserveHTTP("/teams/{teamId}", http.MethodGet, 200, 5*time.Millisecond)
	m.ObserveHTTP("/teams/{teamId}", http.MethodGet, 404, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/teams/{teamId}", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/teams/{teamId}", "GET", "404")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.ObserveHTTP("/x", "GET", 200, time.Second) })
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.Adjustments.WithLabelValues("multa", "applied").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `multa_adjustments_total{kind="multa",result="applied"} 1`))
}
