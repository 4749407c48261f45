package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRecorder(t *testing.T) {
	m := NewInMemory()

	m.ObserveHTTPRequest("GET", "/api/v1/all", 200, time.Millisecond)
	m.IncFlowProcessed(StatusSuccess)
	m.IncFlowProcessed(StatusSuccess)
	m.IncFlowProcessed(StatusNotFound)
	m.ObserveFlowDuration(2 * time.Second)
	m.IncFlowCacheHit()
	m.IncFlowCacheMiss()
	m.IncCodeValidation(StatusSyntaxError)
	m.IncPromptValidation(3)
	m.IncAuthFailure("invalid_key")
	m.IncEventPublished(StatusSuccess)
	m.IncEventPublished(StatusDropped)

	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap.HTTPRequests)
	assert.Equal(t, uint64(2), snap.FlowsProcessed[StatusSuccess])
	assert.Equal(t, uint64(1), snap.FlowsProcessed[StatusNotFound])
	assert.Equal(t, uint64(1), snap.FlowDurationCount)
	assert.Equal(t, (2 * time.Second).Nanoseconds(), snap.FlowDurationTotalNs)
	assert.Equal(t, uint64(1), snap.FlowCacheHits)
	assert.Equal(t, uint64(1), snap.FlowCacheMisses)
	assert.Equal(t, uint64(1), snap.CodeValidations[StatusSyntaxError])
	assert.Equal(t, uint64(3), snap.PromptVariablesTotal)
	assert.Equal(t, uint64(1), snap.AuthFailures["invalid_key"])
	assert.Equal(t, uint64(1), snap.EventsPublished)
	assert.Equal(t, uint64(1), snap.EventsDropped)

	// Snapshots are copies.
	snap.FlowsProcessed[StatusSuccess] = 100
	assert.Equal(t, uint64(2), m.Snapshot().FlowsProcessed[StatusSuccess])
}

func TestPrometheusRecorder(t *testing.T) {
	m := NewPrometheus()

	m.IncFlowProcessed(StatusSuccess)
	m.IncFlowProcessed(StatusError)
	m.IncCodeValidation(StatusValid)
	m.ObserveHTTPRequest("POST", "/api/v1/process/{flow_id}", 403, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.flowsProcessed.WithLabelValues(StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.codeValidations.WithLabelValues(StatusValid)))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `flowlet_flows_processed_total{status="error"} 1`)
	assert.Contains(t, string(body), `flowlet_http_requests_total{method="POST",route="/api/v1/process/{flow_id}",status="403"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNoopRecorder(t *testing.T) {
	m := NewNoop()
	m.IncFlowProcessed(StatusSuccess)
	m.ObserveHTTPRequest("GET", "/", 200, 0)
}
