package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObservePrediction("Maize", 0.001, false)
	m.ObservePrediction("Maize", 0, true)
	m.IncValidationFailure("area")
	m.IncInferenceError("transform")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.predictionsTotal.WithLabelValues("Maize")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.validationFailures.WithLabelValues("area")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inferenceErrors.WithLabelValues("transform")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObservePrediction("Wheat", 0.002, false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `cropyield_predictions_total{item="Wheat"} 1`)
}
