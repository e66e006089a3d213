package websocket

import (
	"context"

	"github.com/OldStager01/crop-yield-predictor/internal/logger"
	"github.com/OldStager01/crop-yield-predictor/pkg/models"
)

// EventBridge forwards bus events to live feed clients.
type EventBridge struct {
	hub        *Hub
	eventsChan <-chan *models.Event
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

func NewEventBridge(hub *Hub, eventsChan <-chan *models.Event) *EventBridge {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventBridge{
		hub:        hub,
		eventsChan: eventsChan,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

func (b *EventBridge) Start() {
	go b.run()
	logger.Info("WebSocket event bridge started")
}

func (b *EventBridge) Stop() {
	b.cancel()
	<-b.done
	logger.Info("WebSocket event bridge stopped")
}

func (b *EventBridge) run() {
	defer close(b.done)
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.eventsChan:
			if !ok {
				logger.Info("Event channel closed, stopping bridge")
				return
			}
			b.forwardEvent(event)
		}
	}
}

func (b *EventBridge) forwardEvent(event *models.Event) {
	msg := ToMessage(event)
	if msg == nil {
		return
	}

	data, err := msg.JSON()
	if err != nil {
		logger.Errorf("Failed to marshal WebSocket message: %v", err)
		return
	}

	b.hub.Broadcast(event.Item, data)
}

// ToMessage maps a bus event to its live feed form. Only successful
// predictions are broadcast; nil means skip.
func ToMessage(event *models.Event) *OutgoingMessage {
	if event.Type != models.EventTypePredictionMade {
		return nil
	}

	rec, ok := event.Data.(*models.PredictionRecord)
	if !ok {
		return nil
	}

	msg := NewMessage(MessageTypePrediction, event.Item, NewPredictionData(rec))
	msg.Timestamp = event.Timestamp
	return msg
}
