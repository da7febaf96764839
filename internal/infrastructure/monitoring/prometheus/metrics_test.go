package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CaseLens/internal/application/casereview"
	"github.com/turtacn/CaseLens/pkg/errors"
)

var _ casereview.Metrics = (*ReviewMetrics)(nil)

func newTestReviewMetrics(t *testing.T) (*ReviewMetrics, MetricsCollector) {
	t.Helper()
	c := newTestCollector(t)
	return NewReviewMetrics(c), c
}

func TestReviewMetrics_ObserveFetch(t *testing.T) {
	m, c := newTestReviewMetrics(t)
	m.ObserveFetch("groups", 20*time.Millisecond, nil)
	m.ObserveFetch("groups", time.Millisecond, errors.New(errors.ErrCodeBackendUnavailable, "down"))

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_backend_fetch_total{code="OK",endpoint="groups",result="ok"} 1`)
	assert.Contains(t, out, `test_unit_backend_fetch_total{code="BACKEND_001",endpoint="groups",result="error"} 1`)
	assert.Contains(t, out, `test_unit_backend_fetch_duration_seconds_count{endpoint="groups"} 2`)
}

func TestReviewMetrics_ObserveDerivation(t *testing.T) {
	m, c := newTestReviewMetrics(t)
	m.ObserveDerivation("view", 3, time.Millisecond)
	m.ObserveDerivation("view", 4, time.Millisecond)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_derived_audit_events_total{source="view"} 7`)
	assert.Contains(t, out, `test_unit_derivation_duration_seconds_count{source="view"} 2`)
}

func TestReviewMetrics_CacheAndStale(t *testing.T) {
	m, c := newTestReviewMetrics(t)
	m.ObserveCache("groups", true)
	m.ObserveCache("groups", false)
	m.ObserveCache("groups", false)
	m.IncStaleDropped("why")

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_cache_hits_total{cache="groups"} 1`)
	assert.Contains(t, out, `test_unit_cache_misses_total{cache="groups"} 2`)
	assert.Contains(t, out, `test_unit_stale_results_dropped_total{kind="why"} 1`)
}

func TestReviewMetrics_ObserveMessage(t *testing.T) {
	m, c := newTestReviewMetrics(t)
	m.ObserveMessage("caselens.audit.derived", "out", 0, nil)
	m.ObserveMessage("caselens.case.updated", "in", 10*time.Millisecond, assert.AnError)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_messages_total{direction="out",result="ok",topic="caselens.audit.derived"} 1`)
	assert.Contains(t, out, `test_unit_messages_total{direction="in",result="error",topic="caselens.case.updated"} 1`)
	assert.Contains(t, out, `test_unit_message_process_duration_seconds_count{topic="caselens.case.updated"} 1`)
	assert.NotContains(t, out, `message_process_duration_seconds_count{topic="caselens.audit.derived"}`)
}

func TestReviewMetrics_InstrumentHandler(t *testing.T) {
	m, c := newTestReviewMetrics(t)
	h := m.InstrumentHandler("/api/cases/{caseId}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/cases/C-1", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_http_requests_total{method="GET",route="/api/cases/{caseId}",status="404"} 1`)
	assert.Contains(t, out, `test_unit_http_requests_in_flight{route="/api/cases/{caseId}"} 0`)
}
