package simulator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/crop-yield-predictor/pkg/client"
	"github.com/OldStager01/crop-yield-predictor/pkg/models"
	"github.com/OldStager01/crop-yield-predictor/pkg/validation"
)

func TestGenerator_ValidInputsPassValidation(t *testing.T) {
	v := validation.Default()
	g := NewGenerator(42, v.Areas().Values(), v.Items().Values(), 0)

	for i := 0; i < 200; i++ {
		raw := g.Next()
		res := v.Validate(raw)
		require.True(t, res.Valid(), "input %+v: %v", raw, res.Errors)
	}
}

func TestGenerator_InvalidInputsHaveOneDefect(t *testing.T) {
	v := validation.Default()
	g := NewGenerator(7, v.Areas().Values(), v.Items().Values(), 1)

	for i := 0; i < 200; i++ {
		res := v.Validate(g.Next())
		assert.Len(t, res.Errors, 1)
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	areas := validation.AllowedAreas().Values()
	items := validation.AllowedItems().Values()
	a := NewGenerator(1, areas, items, 0.5)
	b := NewGenerator(1, areas, items, 0.5)

	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Next(), b.Next())
	}
}

func TestPatterns(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    float64
	}{
		{"steady", 5 * time.Minute, 10},
		{"gradual_rise", 0, 10},
		{"gradual_rise", 10 * time.Minute, 20},
		{"gradual_rise", time.Hour, 30},
		{"burst", 5 * time.Second, 50},
		{"burst", 30 * time.Second, 10},
		{"sine_wave", 0, 10},
	}

	for _, tt := range tests {
		p := ParsePattern(tt.name)
		assert.Equal(t, tt.name, p.Name())
		assert.InDelta(t, tt.want, p.Apply(10, tt.elapsed), 1e-9, "%s at %v", tt.name, tt.elapsed)
	}

	assert.Equal(t, "steady", ParsePattern("unknown").Name())

	random := ParsePattern("random")
	for i := 0; i < 50; i++ {
		r := random.Apply(10, 0)
		assert.GreaterOrEqual(t, r, 5.0)
		assert.Less(t, r, 15.0)
	}
}

type countingPredictor struct {
	calls atomic.Int64
}

func (p *countingPredictor) Predict(ctx context.Context, raw models.RawInput) (*client.PredictResponse, error) {
	n := p.calls.Add(1)
	switch n % 3 {
	case 0:
		return nil, &client.ValidationError{Messages: []string{"bad"}}
	case 1:
		return &client.PredictResponse{Prediction: 1}, nil
	default:
		return nil, errors.New("connection refused")
	}
}

func TestSimulator_Run(t *testing.T) {
	predictor := &countingPredictor{}
	v := validation.Default()
	sim := New(Config{
		BaseRate: 200,
		Tick:     10 * time.Millisecond,
	}, predictor, NewGenerator(1, v.Areas().Values(), v.Items().Values(), 0))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	stats := sim.Run(ctx)

	assert.Positive(t, stats.Sent)
	assert.Equal(t, predictor.calls.Load(), stats.Sent)
	assert.Equal(t, stats.Sent, stats.Succeeded+stats.Rejected+stats.Failed)
	assert.Positive(t, stats.Succeeded)
}
