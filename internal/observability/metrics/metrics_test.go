package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareRecordsStatus(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	h := HTTPMetricsMiddleware(m, "/api/v1/chat")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/chat", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/chat", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/api/v1/chat", "POST", "418")))
}

func TestMiddlewareDefaultsToOK(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	h := HTTPMetricsMiddleware(m, "chains")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/chains", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("chains", "GET", "200")))
}

func TestDomainCounters(t *testing.T) {
	m := NewMetrics(nil)
	m.RecordIntent("SEND")
	m.RecordIntent("SEND")
	m.RecordVerdict("critical", false)
	m.RecordCollaboratorFailure("balance", "NETWORK_ERROR")
	m.RecordEventPublished("ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.intentsResolvedTotal.WithLabelValues("SEND")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.guardianVerdictsTotal.WithLabelValues("critical", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.collaboratorFailures.WithLabelValues("balance", "NETWORK_ERROR")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "nova_intents_resolved_total"))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordIntent("SEND")
	m.RecordHTTPRequest("h", "GET", 200, 0.1)
	m.RecordPreviewBuild("ok", 0.2)
	m.RecordBackendCall("ok")
}
