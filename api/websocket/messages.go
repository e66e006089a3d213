package websocket

import (
	"encoding/json"
	"time"

	"github.com/OldStager01/crop-yield-predictor/pkg/models"
)

type MessageType string

const (
	MessageTypePrediction         MessageType = "prediction"
	MessageTypeSubscriptionUpdate MessageType = "subscription_update"
)

type OutgoingMessage struct {
	Type      MessageType `json:"type"`
	Item      string      `json:"item,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// IncomingMessage is what a client sends to change its item filter.
type IncomingMessage struct {
	Type string `json:"type"`
	Item string `json:"item,omitempty"`
}

func NewMessage(msgType MessageType, item string, data interface{}) *OutgoingMessage {
	return &OutgoingMessage{
		Type:      msgType,
		Item:      item,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

func (m *OutgoingMessage) JSON() ([]byte, error) {
	return json.Marshal(m)
}

type PredictionData struct {
	TraceID     string  `json:"trace_id,omitempty"`
	Year        int     `json:"year"`
	Rainfall    float64 `json:"average_rain_fall_mm_per_year"`
	Pesticides  float64 `json:"pesticides_tonnes"`
	Temperature float64 `json:"avg_temp"`
	Area        string  `json:"area"`
	Item        string  `json:"item"`
	Prediction  float64 `json:"prediction"`
	Unit        string  `json:"unit"`
}

func NewPredictionData(rec *models.PredictionRecord) PredictionData {
	return PredictionData{
		TraceID:     rec.TraceID,
		Year:        rec.Year,
		Rainfall:    rec.Rainfall,
		Pesticides:  rec.Pesticides,
		Temperature: rec.Temperature,
		Area:        rec.Area,
		Item:        rec.Item,
		Prediction:  rec.Prediction,
		Unit:        models.YieldUnit,
	}
}

type SubscriptionData struct {
	Action string `json:"action"`
	Item   string `json:"item,omitempty"`
}
