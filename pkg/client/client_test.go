package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/crop-yield-predictor/internal/resilience"
	"github.com/OldStager01/crop-yield-predictor/pkg/models"
)

func newTestService(t *testing.T, failFirst int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/v1/options", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Options{Areas: []string{"India"}, Items: []string{"Maize"}})
	})
	mux.HandleFunc("/api/v1/predict", func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n <= failFirst {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		var raw models.RawInput
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if raw.Item == "Banana" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(map[string][]string{"error_messages": {"bad item"}})
			return
		}
		_ = json.NewEncoder(w).Encode(PredictResponse{Prediction: 12.5, Unit: "hg/ha", TraceID: "t-1"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestClient_Predict(t *testing.T) {
	srv, _ := newTestService(t, 0)
	c := New(Config{Endpoint: srv.URL + "/"})
	defer c.Close()

	resp, err := c.Predict(context.Background(), models.RawInput{Item: "Maize"})
	require.NoError(t, err)
	assert.Equal(t, 12.5, resp.Prediction)
	assert.Equal(t, "t-1", resp.TraceID)

	_, err = c.Predict(context.Background(), models.RawInput{Item: "Banana"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"bad item"}, verr.Messages)
}

func TestClient_OptionsAndHealth(t *testing.T) {
	srv, _ := newTestService(t, 0)
	c := New(Config{Endpoint: srv.URL})

	require.NoError(t, c.HealthCheck(context.Background()))

	opts, err := c.Options(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"India"}, opts.Areas)
	assert.Equal(t, []string{"Maize"}, opts.Items)
}

func TestClient_UnexpectedStatus(t *testing.T) {
	srv, _ := newTestService(t, 1)
	c := New(Config{Endpoint: srv.URL})

	_, err := c.Predict(context.Background(), models.RawInput{})
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestResilientClient_RetriesTransientFailures(t *testing.T) {
	srv, calls := newTestService(t, 2)
	c := NewResilient(ResilientConfig{
		Client:        New(Config{Endpoint: srv.URL}),
		MaxFailures:   3,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	})

	resp, err := c.Predict(context.Background(), models.RawInput{Item: "Maize"})
	require.NoError(t, err)
	assert.Equal(t, 12.5, resp.Prediction)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, resilience.StateClosed, c.CircuitState())
}

func TestResilientClient_ValidationNotRetried(t *testing.T) {
	srv, calls := newTestService(t, 0)
	c := NewResilient(ResilientConfig{
		Client:        New(Config{Endpoint: srv.URL}),
		MaxFailures:   1,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	})

	for i := 0; i < 3; i++ {
		_, err := c.Predict(context.Background(), models.RawInput{Item: "Banana"})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	}
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, resilience.StateClosed, c.CircuitState())
}

func TestResilientClient_OpensCircuit(t *testing.T) {
	srv, _ := newTestService(t, 100)
	c := NewResilient(ResilientConfig{
		Client:        New(Config{Endpoint: srv.URL}),
		MaxFailures:   1,
		Timeout:       time.Minute,
		RetryAttempts: 1,
		RetryDelay:    time.Millisecond,
	})

	_, err := c.Predict(context.Background(), models.RawInput{})
	require.Error(t, err)

	_, err = c.Predict(context.Background(), models.RawInput{})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, resilience.StateOpen, c.CircuitState())
}
