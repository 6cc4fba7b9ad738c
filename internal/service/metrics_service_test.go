package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceTimetableCounters(t *testing.T) {
	metrics := NewMetricsService()
	metrics.RecordConflict("TEACHER")
	metrics.RecordConflict("SECTION")
	metrics.RecordGeneration(GenerationOutcomeCommitted, 20*time.Millisecond)
	metrics.RecordNotification("timetable.entry.created", NotificationOutcomeDelivered)
	metrics.RecordNotification("timetable.entry.created", NotificationOutcomeFailed)
	metrics.ObserveHTTPRequest(http.MethodGet, "/api/v1/timetable/periods", http.StatusOK, 10*time.Millisecond)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(2), snapshot.ConflictsTotal)
	assert.Equal(t, uint64(1), snapshot.GenerationsTotal)
	assert.Equal(t, uint64(1), snapshot.NotificationsFailed)
	assert.Equal(t, uint64(1), snapshot.RequestsTotal)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `timetable_conflicts_total{dimension="TEACHER"} 1`))
	assert.True(t, strings.Contains(body, `timetable_generations_total{outcome="committed"} 1`))
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var metrics *MetricsService
	metrics.RecordConflict("SECTION")
	metrics.RecordGeneration(GenerationOutcomeFailed, time.Second)
	metrics.RecordNotification("x", NotificationOutcomeFailed)
	assert.Zero(t, metrics.Snapshot().ConflictsTotal)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
