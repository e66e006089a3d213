package events

import (
	"fmt"

	"github.com/OldStager01/crop-yield-predictor/pkg/models"
)

type Publisher struct {
	bus     *EventBus
	traceID string
}

func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) WithTraceID(traceID string) *Publisher {
	if p == nil {
		return nil
	}
	return &Publisher{
		bus:     p.bus,
		traceID: traceID,
	}
}

func (p *Publisher) publish(event *models.Event) {
	if p == nil || p.bus == nil {
		return
	}
	if p.traceID != "" {
		event.TraceID = p.traceID
	}
	p.bus.Publish(event)
}

// PredictionMade carries the record that the history recorder persists.
func (p *Publisher) PredictionMade(rec *models.PredictionRecord) {
	msg := fmt.Sprintf("Predicted %.2f %s for %s in %s (%d)", rec.Prediction, models.YieldUnit, rec.Item, rec.Area, rec.Year)
	event := models.NewEvent(models.EventTypePredictionMade, rec.Item, msg).
		WithData(rec)
	p.publish(event)
}

func (p *Publisher) ValidationFailed(raw models.RawInput, messages []string) {
	event := models.NewEvent(models.EventTypeValidationFailed, raw.Item, "Input rejected").
		WithSeverity(models.SeverityWarning).
		WithData(map[string]interface{}{
			"errors": len(messages),
			"area":   raw.Area,
			"item":   raw.Item,
		})
	p.publish(event)
}

func (p *Publisher) InferenceFailed(in models.ValidatedInput, err error) {
	event := models.NewEvent(models.EventTypeInferenceFailed, in.Item, "Inference failed").
		WithSeverity(models.SeverityCritical).
		WithData(map[string]interface{}{
			"area":  in.Area,
			"item":  in.Item,
			"error": err.Error(),
		})
	p.publish(event)
}
