package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/crop-yield-predictor/internal/resilience"
	"github.com/OldStager01/crop-yield-predictor/pkg/models"
)

func sampleRecord() *models.PredictionRecord {
	return models.NewPredictionRecord("trace-1", models.ValidatedInput{
		Year: 2020, Rainfall: 1200, Pesticides: 50, Temperature: 22.5, Area: "India", Item: "Rice, paddy",
	}, 27314.75)
}

func TestEventBus_EventFlow(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.Subscribe(models.EventTypePredictionMade)
	all := bus.SubscribeAll()
	publisher := NewPublisher(bus).WithTraceID("trace-1")

	publisher.PredictionMade(sampleRecord())

	for _, c := range []<-chan *models.Event{ch, all} {
		select {
		case event := <-c:
			assert.Equal(t, models.EventTypePredictionMade, event.Type)
			assert.Equal(t, "Rice, paddy", event.Item)
			assert.Equal(t, "trace-1", event.TraceID)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for event")
		}
	}
}

func TestEventBus_TypedSubscriptionFilters(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.Subscribe(models.EventTypeInferenceFailed)
	NewPublisher(bus).ValidationFailed(models.RawInput{Item: "Banana"}, []string{"bad"})

	select {
	case event := <-ch:
		t.Fatalf("unexpected event %s", event.Type)
	default:
	}
}

func TestEventBus_DropsWhenFull(t *testing.T) {
	bus := NewEventBus(1)
	defer bus.Close()

	ch := bus.Subscribe(models.EventTypePredictionMade)
	publisher := NewPublisher(bus)
	publisher.PredictionMade(sampleRecord())
	publisher.PredictionMade(sampleRecord())

	assert.Len(t, ch, 1)
}

func TestEventBus_CloseClosesChannels(t *testing.T) {
	bus := NewEventBus(1)
	ch := bus.Subscribe(models.EventTypePredictionMade)
	all := bus.SubscribeAll()

	bus.Close()
	bus.Close()

	_, ok := <-ch
	assert.False(t, ok)
	_, ok = <-all
	assert.False(t, ok)

	// publishing after close is a no-op
	NewPublisher(bus).PredictionMade(sampleRecord())
}

func TestPublisher_NilIsSafe(t *testing.T) {
	var p *Publisher
	assert.NotPanics(t, func() { p.PredictionMade(sampleRecord()) })
}

type fakeStore struct {
	mu      sync.Mutex
	records []*models.PredictionRecord
	err     error
	done    chan struct{}
}

func (f *fakeStore) Insert(ctx context.Context, rec *models.PredictionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	defer func() { f.done <- struct{}{} }()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

type fakeObserver struct {
	mu      sync.Mutex
	results []string
}

func (o *fakeObserver) IncHistoryWrite(result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, result)
}

func (o *fakeObserver) SetHistoryCircuitState(int) {}

func (o *fakeObserver) snapshot() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.results...)
}

func TestRecorder_PersistsPredictions(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	store := &fakeStore{done: make(chan struct{}, 10)}
	observer := &fakeObserver{}
	rec := NewRecorder(RecorderConfig{Store: store, Observer: observer, MaxFailures: 3}, bus.SubscribeAll())
	rec.Start()
	defer rec.Stop()

	publisher := NewPublisher(bus)
	publisher.ValidationFailed(models.RawInput{}, []string{"x"})
	publisher.PredictionMade(sampleRecord())

	select {
	case <-store.done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for insert")
	}

	store.mu.Lock()
	require.Len(t, store.records, 1)
	assert.Equal(t, 27314.75, store.records[0].Prediction)
	store.mu.Unlock()

	assert.Eventually(t, func() bool {
		return len(observer.snapshot()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"ok"}, observer.snapshot())
}

func TestRecorder_OpensCircuitOnFailures(t *testing.T) {
	events := make(chan *models.Event, 10)
	store := &fakeStore{err: errors.New("connection refused"), done: make(chan struct{}, 10)}
	observer := &fakeObserver{}
	rec := NewRecorder(RecorderConfig{
		Store:       store,
		Observer:    observer,
		MaxFailures: 2,
		OpenTimeout: time.Minute,
	}, events)
	rec.Start()
	defer rec.Stop()

	for i := 0; i < 3; i++ {
		events <- models.NewEvent(models.EventTypePredictionMade, "Maize", "p").WithData(sampleRecord())
	}

	assert.Eventually(t, func() bool {
		return len(observer.snapshot()) == 3
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"error", "error", "rejected"}, observer.snapshot())
	assert.Equal(t, resilience.StateOpen, rec.CircuitState())
}
