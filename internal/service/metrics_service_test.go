package service

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCountersAndHandler(t *testing.T) {
	m := NewMetricsService()
	m.RecordFeedComposition("signage")
	m.RecordFeedComposition("signage")
	m.RecordInvalidItem("event")
	m.RecordJob("signage.refresh", nil)
	m.RecordJob("signage.refresh", errors.New("boom"))
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.ObserveHTTPRequest("GET", "/api/v1/feed", 200, 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.feedComposed.WithLabelValues("signage")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.invalidItems.WithLabelValues("event")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobsProcessed.WithLabelValues("signage.refresh", "error")))
	assert.Equal(t, 0.5, testutil.ToFloat64(m.cacheHitRatio))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "feed_compositions_total")
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *MetricsService
	m.RecordFeedComposition("request")
	m.RecordInvalidItem("announcement")
	m.RecordJob("x", nil)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
