package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsExposition(t *testing.T) {
	m := New()
	m.Requests.WithLabelValues("non_streaming", "ok").Inc()
	m.ActiveSubprocesses.Inc()
	m.SubprocessDuration.Observe(1.5)

	recorder := httptest.NewRecorder()
	m.Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, recorder.Code)
	body := recorder.Body.String()
	assert.Contains(t, body, "claudebridge_requests_total")
	assert.Contains(t, body, "claudebridge_subprocess_duration_seconds")
	assert.Contains(t, body, "claudebridge_active_subprocesses")
}

func TestMetricsRegistriesAreIndependent(t *testing.T) {
	// Two instances must not collide on registration.
	first := New()
	second := New()
	first.Requests.WithLabelValues("stream", "ok").Inc()
	second.Requests.WithLabelValues("stream", "ok").Inc()
}
