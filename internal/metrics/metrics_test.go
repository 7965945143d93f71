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

func TestMetrics_RegistryExposesRecordedValues(t *testing.T) {
	m := New()

	m.RecordGatewayOperation("swords", "create", "ok", 3*time.Millisecond)
	m.RecordGatewayOperation("swords", "create", "ok", time.Millisecond)
	m.RecordGatewayOperation("potions", "get", "not_found", time.Millisecond)
	m.RecordEventDropped("queue_full")
	m.RecordRateLimited()

	expected := `
# HELP armory_gateway_operations_total Total number of gateway operations by outcome
# TYPE armory_gateway_operations_total counter
armory_gateway_operations_total{operation="create",outcome="ok",resource="swords"} 2
armory_gateway_operations_total{operation="get",outcome="not_found",resource="potions"} 1
# HELP armory_events_dropped_total Total number of change events dropped
# TYPE armory_events_dropped_total counter
armory_events_dropped_total{reason="queue_full"} 1
# HELP armory_http_rate_limited_total Total number of requests rejected by the rate limiter
# TYPE armory_http_rate_limited_total counter
armory_http_rate_limited_total 1
`
	err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"armory_gateway_operations_total",
		"armory_events_dropped_total",
		"armory_http_rate_limited_total",
	)
	require.NoError(t, err)
}

func TestMetrics_RegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.RecordRateLimited()

	assert.Equal(t, float64(1), testutil.ToFloat64(a.HTTPRateLimited))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.HTTPRateLimited))

	count, err := testutil.GatherAndCount(b.Registry(), "armory_http_rate_limited_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RecordHTTPRequest(http.MethodGet, "/api/swords", "200", 2*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `armory_http_requests_total{method="GET",route="/api/swords",status="200"} 1`)
	assert.Contains(t, body, "go_goroutines")
}
