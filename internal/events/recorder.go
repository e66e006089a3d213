package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/OldStager01/crop-yield-predictor/internal/logger"
	"github.com/OldStager01/crop-yield-predictor/internal/resilience"
	"github.com/OldStager01/crop-yield-predictor/pkg/models"
)

// HistoryStore persists prediction records.
type HistoryStore interface {
	Insert(ctx context.Context, rec *models.PredictionRecord) error
}

// RecorderObserver receives write outcomes, typically metrics.
type RecorderObserver interface {
	IncHistoryWrite(result string)
	SetHistoryCircuitState(state int)
}

// Recorder logs every event and persists prediction_made events. Writes go
// through a circuit breaker so a dead database costs one rejected call per
// event instead of a timeout.
type Recorder struct {
	store        HistoryStore
	breaker      *resilience.CircuitBreaker
	observer     RecorderObserver
	eventChan    <-chan *models.Event
	writeTimeout time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

type RecorderConfig struct {
	Store        HistoryStore
	Observer     RecorderObserver
	MaxFailures  int
	OpenTimeout  time.Duration
	WriteTimeout time.Duration
}

func NewRecorder(cfg RecorderConfig, eventChan <-chan *models.Event) *Recorder {
	ctx, cancel := context.WithCancel(context.Background())

	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}

	r := &Recorder{
		store:        cfg.Store,
		observer:     cfg.Observer,
		eventChan:    eventChan,
		writeTimeout: writeTimeout,
		ctx:          ctx,
		cancel:       cancel,
	}
	r.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:        "prediction-history",
		MaxFailures: cfg.MaxFailures,
		Timeout:     cfg.OpenTimeout,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warnf("Circuit %s: %s -> %s", name, from, to)
			if r.observer != nil {
				r.observer.SetHistoryCircuitState(int(to))
			}
		},
	})
	return r
}

func (r *Recorder) Start() {
	r.wg.Add(1)
	go r.run()
}

// Stop ends the loop; events still buffered are dropped.
func (r *Recorder) Stop() {
	r.cancel()
	r.wg.Wait()
}

func (r *Recorder) CircuitState() resilience.State {
	return r.breaker.State()
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for {
		select {
		case <-r.ctx.Done():
			return
		case event, ok := <-r.eventChan:
			if !ok {
				return
			}
			r.processEvent(event)
		}
	}
}

func (r *Recorder) processEvent(event *models.Event) {
	entry := logger.WithFields(map[string]interface{}{
		"event_type": event.Type,
		"item":       event.Item,
		"severity":   event.Severity,
		"trace_id":   event.TraceID,
	})

	switch event.Severity {
	case models.SeverityCritical:
		entry.Error(event.Message)
	case models.SeverityWarning:
		entry.Warn(event.Message)
	default:
		entry.Info(event.Message)
	}

	if event.Type == models.EventTypePredictionMade {
		r.persistPrediction(event)
	}
}

func (r *Recorder) persistPrediction(event *models.Event) {
	if r.store == nil {
		return
	}
	rec, ok := event.Data.(*models.PredictionRecord)
	if !ok {
		return
	}

	err := r.breaker.Execute(func() error {
		ctx, cancel := context.WithTimeout(r.ctx, r.writeTimeout)
		defer cancel()
		return r.store.Insert(ctx, rec)
	})

	result := "ok"
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		result = "rejected"
	case err != nil:
		result = "error"
		logger.Errorf("Failed to persist prediction %s: %v", rec.ID, err)
	}
	if r.observer != nil {
		r.observer.IncHistoryWrite(result)
	}
}
