package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndGather(t *testing.T) {
	m := NewMetrics()
	m.RecordHTTPRequest("GET", "/users/:id", "200", 0.01)
	m.RecordHTTPRequest("GET", "/users/:id", "200", 0.02)
	m.RecordCache("stats", "hit")
	m.RecordEvent("message.created", "published")
	m.RecordAction("signup")
	m.SetEventQueueLength(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/users/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequestsTotal.WithLabelValues("stats", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsTotal.WithLabelValues("message.created", "published")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActionsTotal.WithLabelValues("signup")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.EventQueueLength))

	families, err := m.GetRegistry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordHTTPRequest("GET", "/", "200", 0.1)
		m.RecordCache("stats", "miss")
		m.RecordEvent("x", "dropped")
		m.RecordAction("login")
		m.SetEventQueueLength(1)
	})
}

func TestHandlerExposition(t *testing.T) {
	m := NewMetrics()
	m.RecordAction("follow")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(string(body), `warbler_actions_total{action="follow"} 1`))
}
