package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceRecordsGenerationOutcomes(t *testing.T) {
	m := NewMetricsService()
	m.ObserveGeneration(RunOutcomeComplete, 20*time.Millisecond, 40, 0)
	m.ObserveGeneration(RunOutcomePartial, 30*time.Millisecond, 90, 2)
	m.ObserveGeneration(RunOutcomeConfigError, 0, 0, 0)
	m.ObserveSubstitute("SUBSTITUTED")
	m.SetQueueDepth(3)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.generationRuns.WithLabelValues(RunOutcomePartial)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generationRuns.WithLabelValues(RunOutcomeConfigError)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.unscheduled))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.substitutions.WithLabelValues("SUBSTITUTED")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.queueDepth))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.generationDuration))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "timetable_generation_runs_total")
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.ObserveHTTPRequest("GET", "/", 200, time.Millisecond)
		m.ObserveGeneration(RunOutcomeComplete, time.Second, 1, 0)
		m.ObserveDBQuery("snapshot", time.Millisecond)
		m.SetQueueDepth(1)
	})
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
