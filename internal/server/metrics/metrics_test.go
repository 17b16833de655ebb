package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordHTTPRequest(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordHTTPRequest("GET", "/api/tasks", 200, 15*time.Millisecond)
	m.RecordHTTPRequest("GET", "/api/tasks", 200, 5*time.Millisecond)
	m.RecordHTTPRequest("GET", "/api/tasks", 401, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/tasks", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/tasks", "401")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestDuration))
}

func TestRecordAuthEvent(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordAuthEvent(EventLogin, OutcomeFailure)
	m.RecordAuthEvent(EventLogin, OutcomeFailure)
	m.RecordAuthEvent(EventSignup, OutcomeSuccess)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuthEventsTotal.WithLabelValues(EventLogin, OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthEventsTotal.WithLabelValues(EventSignup, OutcomeSuccess)))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordAuthEvent(EventToken, OutcomeExpired)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `tasktracker_auth_events_total{event="token",outcome="expired"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
