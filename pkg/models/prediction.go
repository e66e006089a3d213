package models

import "time"

// YieldUnit is the unit of the model output (hectograms per hectare).
const YieldUnit = "hg/ha"

// PredictionResult is the model output for one validated input.
type PredictionResult struct {
	Value    float64       `json:"prediction"`
	Cached   bool          `json:"cached"`
	Duration time.Duration `json:"-"`
}

// PredictionRecord is a persisted prediction.
type PredictionRecord struct {
	ID          string    `json:"id" db:"id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	TraceID     string    `json:"trace_id,omitempty" db:"trace_id"`
	Year        int       `json:"year" db:"year"`
	Rainfall    float64   `json:"average_rain_fall_mm_per_year" db:"rainfall_mm"`
	Pesticides  float64   `json:"pesticides_tonnes" db:"pesticides_tonnes"`
	Temperature float64   `json:"avg_temp" db:"avg_temp"`
	Area        string    `json:"area" db:"area"`
	Item        string    `json:"item" db:"item"`
	Prediction  float64   `json:"prediction" db:"prediction"`
}

func NewPredictionRecord(traceID string, in ValidatedInput, value float64) *PredictionRecord {
	return &PredictionRecord{
		ID:          NewUUID(),
		CreatedAt:   time.Now().UTC(),
		TraceID:     traceID,
		Year:        in.Year,
		Rainfall:    in.Rainfall,
		Pesticides:  in.Pesticides,
		Temperature: in.Temperature,
		Area:        in.Area,
		Item:        in.Item,
		Prediction:  value,
	}
}

// ItemStats aggregates stored predictions for one crop item.
type ItemStats struct {
	Item  string  `json:"item" db:"item"`
	Count int     `json:"count" db:"count"`
	Avg   float64 `json:"avg_prediction" db:"avg_prediction"`
	Min   float64 `json:"min_prediction" db:"min_prediction"`
	Max   float64 `json:"max_prediction" db:"max_prediction"`
}
