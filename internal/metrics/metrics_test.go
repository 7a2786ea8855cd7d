package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewIsolatedRegistries(t *testing.T) {
	a := New()
	b := New()

	a.EmbeddingCalls.WithLabelValues("hash", "success").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.EmbeddingCalls.WithLabelValues("hash", "success")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.EmbeddingCalls.WithLabelValues("hash", "success")))
}

func TestHandlerServesMetrics(t *testing.T) {
	m := New()
	m.IngestRuns.WithLabelValues("processed").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `jurisrag_ingest_runs_total{status="processed"} 1`)
}
