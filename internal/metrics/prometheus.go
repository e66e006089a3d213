package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cropyield"

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	predictionsTotal   *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	inferenceErrors    *prometheus.CounterVec
	inferenceDuration  prometheus.Histogram
	cacheHits          prometheus.Counter
	recorderWrites     *prometheus.CounterVec
	recorderState      prometheus.Gauge
	websocketClients   prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		predictionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Successful predictions by crop item.",
		}, []string{"item"}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Failed input checks by reason.",
		}, []string{"reason"}),
		inferenceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_errors_total",
			Help:      "Inference failures by stage.",
		}, []string{"stage"}),
		inferenceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Time spent in transform and predict.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_cache_hits_total",
			Help:      "Predictions served from the cache.",
		}),
		recorderWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_writes_total",
			Help:      "Prediction history writes by result.",
		}, []string{"result"}),
		recorderState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_circuit_state",
			Help:      "History writer breaker state (0=closed, 1=open, 2=half-open).",
		}),
		websocketClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected live-feed clients.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.predictionsTotal,
		m.validationFailures,
		m.inferenceErrors,
		m.inferenceDuration,
		m.cacheHits,
		m.recorderWrites,
		m.recorderState,
		m.websocketClients,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObservePrediction(item string, seconds float64, cached bool) {
	m.predictionsTotal.WithLabelValues(item).Inc()
	if cached {
		m.cacheHits.Inc()
		return
	}
	m.inferenceDuration.Observe(seconds)
}

func (m *Metrics) IncValidationFailure(reason string) {
	m.validationFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncInferenceError(stage string) {
	m.inferenceErrors.WithLabelValues(stage).Inc()
}

func (m *Metrics) IncHistoryWrite(result string) {
	m.recorderWrites.WithLabelValues(result).Inc()
}

func (m *Metrics) SetHistoryCircuitState(state int) {
	m.recorderState.Set(float64(state))
}

func (m *Metrics) SetWebSocketClients(n int) {
	m.websocketClients.Set(float64(n))
}
