package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/crop-yield-predictor/internal/events"
	"github.com/OldStager01/crop-yield-predictor/internal/inference"
	"github.com/OldStager01/crop-yield-predictor/internal/metrics"
	"github.com/OldStager01/crop-yield-predictor/pkg/config"
	"github.com/OldStager01/crop-yield-predictor/pkg/validation"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Mode: "test"},
		API: config.APIConfig{
			Port:         5000,
			RateLimit:    2,
			MaxBodyBytes: 1 << 16,
		},
		WebSocket:  config.WebSocketConfig{Enabled: true},
		Prometheus: config.PrometheusConfig{Enabled: true, Path: "/metrics"},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	pre, err := inference.LoadPreprocessor("../artifacts/preprocessor.json")
	require.NoError(t, err)
	model, err := inference.LoadModel("../artifacts/model.json")
	require.NoError(t, err)
	invoker, err := inference.NewInvoker(inference.InvokerConfig{Transformer: pre, Predictor: model})
	require.NoError(t, err)

	bus := events.NewEventBus(16)
	t.Cleanup(bus.Close)

	srv, err := NewServer(testConfig(), Dependencies{
		Validator: validation.Default(),
		Predictor: invoker,
		Bus:       bus,
		Metrics:   metrics.New(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func TestNewServer_RequiresPipeline(t *testing.T) {
	_, err := NewServer(testConfig(), Dependencies{})
	assert.Error(t, err)
}

func TestServer_Routes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/health/live", http.StatusOK},
		{http.MethodGet, "/api/v1/options", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/swagger/doc.json", http.StatusOK},
		// history needs a database
		{http.MethodGet, "/api/v1/predictions/recent", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.Router().ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}

	assert.NotNil(t, srv.WebSocketHub())
}

func TestServer_PredictEndToEnd(t *testing.T) {
	srv := newTestServer(t)

	form := url.Values{
		"Year":                          {"2020"},
		"average_rain_fall_mm_per_year": {"1200.0"},
		"pesticides_tonnes":             {"50.0"},
		"avg_temp":                      {"22.5"},
		"Area":                          {"India"},
		"Item":                          {"Rice, paddy"},
	}
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "27314.75")
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestServer_PredictRateLimited(t *testing.T) {
	srv := newTestServer(t)

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader("Area=India"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		last = httptest.NewRecorder()
		srv.Router().ServeHTTP(last, req)
		codes = append(codes, last.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Contains(t, last.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, last.Body.String(), "Too many predictions from your address.")
	assert.Contains(t, last.Body.String(), `value="India"`)
	assert.Equal(t, "60", last.Header().Get("Retry-After"))
}

func TestServer_APIPredictRateLimitedAsJSON(t *testing.T) {
	srv := newTestServer(t)

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/predict", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		last = httptest.NewRecorder()
		srv.Router().ServeHTTP(last, req)
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Contains(t, last.Header().Get("Content-Type"), "application/json")
	assert.Contains(t, last.Body.String(), "rate limit exceeded")
}
