package inference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OldStager01/crop-yield-predictor/pkg/models"
)

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrFeatureMismatch = errors.New("feature vector length mismatch")
	ErrModelNotLoaded  = errors.New("model has no nodes")
)

const (
	StageTransform = "transform"
	StagePredict   = "predict"
)

// Error is a failure inside the transform or predict stage.
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("inference %s failed: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transformer maps a feature record to the model's input vector.
type Transformer interface {
	Transform(rec models.FeatureRecord) ([]float64, error)
	Width() int
}

// Invoker runs validated input through the loaded transform and predictor.
// Both collaborators are read-only after construction.
type Invoker struct {
	transformer Transformer
	predictor   Predictor
	cache       *Cache
}

type InvokerConfig struct {
	Transformer Transformer
	Predictor   Predictor
	Cache       *Cache
}

func NewInvoker(cfg InvokerConfig) (*Invoker, error) {
	if cfg.Transformer == nil || cfg.Predictor == nil {
		return nil, errors.New("transformer and predictor are required")
	}
	if w, n := cfg.Transformer.Width(), cfg.Predictor.NumFeatures(); w != n {
		return nil, fmt.Errorf("%w: preprocessor emits %d features, model expects %d", ErrFeatureMismatch, w, n)
	}
	return &Invoker{
		transformer: cfg.Transformer,
		predictor:   cfg.Predictor,
		cache:       cfg.Cache,
	}, nil
}

func (inv *Invoker) Predict(ctx context.Context, in models.ValidatedInput) (*models.PredictionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	rec := models.NewFeatureRecord(in)

	if value, ok := inv.cache.Get(rec); ok {
		return &models.PredictionResult{Value: value, Cached: true, Duration: time.Since(start)}, nil
	}

	features, err := inv.transformer.Transform(rec)
	if err != nil {
		return nil, &Error{Stage: StageTransform, Err: err}
	}

	value, err := inv.predictor.Predict(features)
	if err != nil {
		return nil, &Error{Stage: StagePredict, Err: err}
	}

	inv.cache.Add(rec, value)

	return &models.PredictionResult{Value: value, Duration: time.Since(start)}, nil
}
