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

func TestCounters(t *testing.T) {
	m := New()

	m.RecordSyncRun(true, 2*time.Second)
	m.RecordSyncRun(false, time.Second)
	m.RecordSyncRun(true, time.Second)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.syncRuns.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.syncRuns.WithLabelValues("error")))

	m.RecordUpsert(OutcomeCreated)
	m.RecordUpsert(OutcomeCreated)
	m.RecordUpsert(OutcomeFailed)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.dealUpserts.WithLabelValues(OutcomeCreated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dealUpserts.WithLabelValues(OutcomeFailed)))

	m.RecordDefaulted("velocity", 3)
	m.RecordDefaulted("velocity", 0)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.defaultedScores.WithLabelValues("velocity")))

	m.RecordWebhookEvent("deal.creation")
	m.RecordWebhookEvent("")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.webhookEvents.WithLabelValues("unknown")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New(WithHistogramBuckets([]float64{0.1, 1}))
	m.ObserveHTTP("/health", http.MethodGet, http.StatusOK, 50*time.Millisecond)
	m.RecordUpsert(OutcomeUpdated)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	out := string(body)
	assert.Contains(t, out, `revattr_http_request_duration_seconds_bucket{method="GET",route="/health",status="200",le="0.1"} 1`)
	assert.Contains(t, out, `revattr_sync_deal_upserts_total{outcome="updated"} 1`)
	assert.NotContains(t, out, "go_goroutines")
}

func TestProcessMetrics(t *testing.T) {
	m := New(WithProcessMetrics())
	families, err := m.Registry().Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "go_goroutines")
}

func TestSeparateRegistries(t *testing.T) {
	// Two managers must not collide on registration.
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
