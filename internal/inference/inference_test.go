package inference

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/crop-yield-predictor/pkg/models"
	"github.com/OldStager01/crop-yield-predictor/pkg/validation"
)

func testPreprocessorSpec() PreprocessorSpec {
	return PreprocessorSpec{
		Version: "1",
		Steps: []StepSpec{
			{
				Kind:    StepStandardScaler,
				Columns: []string{models.FieldYear, models.FieldRainfall, models.FieldPesticides, models.FieldTemperature},
				Mean:    []float64{2000, 1000, 100, 20},
				Scale:   []float64{10, 500, 0, 5},
			},
			{
				Kind:          StepOneHot,
				Columns:       []string{models.FieldArea},
				Categories:    [][]string{{"India", "Kenya", "Peru"}},
				DropFirst:     true,
				HandleUnknown: HandleUnknownError,
			},
			{
				Kind:       StepOneHot,
				Columns:    []string{models.FieldItem},
				Categories: [][]string{{"Maize", "Rice, paddy"}},
			},
		},
	}
}

// Splits on the "Rice, paddy" column (index 7), then on scaled year.
func testModelSpec() ModelSpec {
	return ModelSpec{
		Kind:      KindDecisionTreeRegressor,
		NFeatures: 8,
		Nodes: []TreeNode{
			{Feature: 7, Threshold: 0.5, Left: 1, Right: 2},
			{Feature: -2, Left: -1, Right: -1, Value: 100},
			{Feature: 0, Threshold: 1.0, Left: 3, Right: 4},
			{Feature: -2, Left: -1, Right: -1, Value: 200},
			{Feature: -2, Left: -1, Right: -1, Value: 300},
		},
	}
}

func testInput() models.ValidatedInput {
	return models.ValidatedInput{
		Year:        2020,
		Rainfall:    1200,
		Pesticides:  50,
		Temperature: 22.5,
		Area:        "India",
		Item:        "Rice, paddy",
	}
}

func newTestInvoker(t *testing.T, cacheSize int) *Invoker {
	t.Helper()
	pre, err := NewPreprocessor(testPreprocessorSpec())
	require.NoError(t, err)
	model, err := NewModel(testModelSpec())
	require.NoError(t, err)
	cache, err := NewCache(cacheSize)
	require.NoError(t, err)

	inv, err := NewInvoker(InvokerConfig{Transformer: pre, Predictor: model, Cache: cache})
	require.NoError(t, err)
	return inv
}

func TestPreprocessor_Transform(t *testing.T) {
	pre, err := NewPreprocessor(testPreprocessorSpec())
	require.NoError(t, err)
	assert.Equal(t, 8, pre.Width())

	vec, err := pre.Transform(models.NewFeatureRecord(testInput()))
	require.NoError(t, err)

	// zero scale is treated as one
	expected := []float64{2.0, 0.4, -50, 0.5, 0, 0, 0, 1}
	assert.InDeltaSlice(t, expected, vec, 1e-9)
}

func TestPreprocessor_UnknownCategory(t *testing.T) {
	tests := []struct {
		name          string
		handleUnknown string
		expectErr     bool
	}{
		{name: "error policy", handleUnknown: HandleUnknownError, expectErr: true},
		{name: "ignore policy", handleUnknown: HandleUnknownIgnore, expectErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := testPreprocessorSpec()
			spec.Steps[1].HandleUnknown = tt.handleUnknown
			pre, err := NewPreprocessor(spec)
			require.NoError(t, err)

			in := testInput()
			in.Area = "Atlantis"
			vec, err := pre.Transform(models.NewFeatureRecord(in))

			if tt.expectErr {
				assert.ErrorIs(t, err, ErrUnknownCategory)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []float64{0, 0}, vec[4:6])
		})
	}
}

func TestNewPreprocessor_Invalid(t *testing.T) {
	tests := []struct {
		name        string
		modifyFunc  func(*PreprocessorSpec)
		errContains string
	}{
		{
			name:        "no steps",
			modifyFunc:  func(s *PreprocessorSpec) { s.Steps = nil },
			errContains: "no steps",
		},
		{
			name:        "unknown kind",
			modifyFunc:  func(s *PreprocessorSpec) { s.Steps[0].Kind = "min_max" },
			errContains: "unsupported kind",
		},
		{
			name:        "mean length mismatch",
			modifyFunc:  func(s *PreprocessorSpec) { s.Steps[0].Mean = []float64{1} },
			errContains: "mean/scale length",
		},
		{
			name:        "categorical column scaled",
			modifyFunc:  func(s *PreprocessorSpec) { s.Steps[0].Columns[0] = models.FieldArea },
			errContains: "not a numeric column",
		},
		{
			name:        "duplicate category",
			modifyFunc:  func(s *PreprocessorSpec) { s.Steps[2].Categories[0] = []string{"Maize", "Maize"} },
			errContains: "duplicate category",
		},
		{
			name:        "bad unknown policy",
			modifyFunc:  func(s *PreprocessorSpec) { s.Steps[1].HandleUnknown = "guess" },
			errContains: "handle_unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := testPreprocessorSpec()
			tt.modifyFunc(&spec)

			_, err := NewPreprocessor(spec)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestDecisionTreeRegressor_Predict(t *testing.T) {
	model, err := NewModel(testModelSpec())
	require.NoError(t, err)

	tests := []struct {
		name     string
		features []float64
		expected float64
	}{
		{name: "left leaf", features: []float64{0, 0, 0, 0, 0, 0, 0, 0}, expected: 100},
		{name: "threshold goes left", features: []float64{1.0, 0, 0, 0, 0, 0, 0, 1}, expected: 200},
		{name: "right leaf", features: []float64{1.5, 0, 0, 0, 0, 0, 0, 1}, expected: 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := model.Predict(tt.features)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, value)
		})
	}

	_, err = model.Predict([]float64{1, 2})
	assert.ErrorIs(t, err, ErrFeatureMismatch)
}

func TestNewModel_Invalid(t *testing.T) {
	tests := []struct {
		name       string
		modifyFunc func(*ModelSpec)
	}{
		{name: "unsupported kind", modifyFunc: func(s *ModelSpec) { s.Kind = "random_forest" }},
		{name: "no nodes", modifyFunc: func(s *ModelSpec) { s.Nodes = nil }},
		{name: "feature out of range", modifyFunc: func(s *ModelSpec) { s.Nodes[0].Feature = 8 }},
		{name: "child points backwards", modifyFunc: func(s *ModelSpec) { s.Nodes[2].Left = 1 }},
		{name: "child out of range", modifyFunc: func(s *ModelSpec) { s.Nodes[2].Right = 9 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := testModelSpec()
			tt.modifyFunc(&spec)

			_, err := NewModel(spec)
			assert.Error(t, err)
		})
	}
}

func TestInvoker_Predict(t *testing.T) {
	inv := newTestInvoker(t, 0)

	result, err := inv.Predict(context.Background(), testInput())

	require.NoError(t, err)
	assert.Equal(t, 300.0, result.Value)
	assert.False(t, result.Cached)
}

func TestInvoker_Idempotent(t *testing.T) {
	for _, size := range []int{0, 16} {
		inv := newTestInvoker(t, size)

		first, err := inv.Predict(context.Background(), testInput())
		require.NoError(t, err)
		second, err := inv.Predict(context.Background(), testInput())
		require.NoError(t, err)

		assert.Equal(t, first.Value, second.Value)
		assert.Equal(t, size > 0, second.Cached)
	}
}

func TestInvoker_TransformFailure(t *testing.T) {
	inv := newTestInvoker(t, 16)
	in := testInput()
	in.Area = "Kazakhstan"

	_, err := inv.Predict(context.Background(), in)

	var infErr *Error
	require.True(t, errors.As(err, &infErr))
	assert.Equal(t, StageTransform, infErr.Stage)
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestInvoker_CancelledContext(t *testing.T) {
	inv := newTestInvoker(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := inv.Predict(ctx, testInput())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewInvoker_WidthMismatch(t *testing.T) {
	pre, err := NewPreprocessor(testPreprocessorSpec())
	require.NoError(t, err)
	spec := testModelSpec()
	spec.NFeatures = 9
	model, err := NewModel(spec)
	require.NoError(t, err)

	_, err = NewInvoker(InvokerConfig{Transformer: pre, Predictor: model})
	assert.ErrorIs(t, err, ErrFeatureMismatch)
}

func TestUncoveredCategories(t *testing.T) {
	pre, err := NewPreprocessor(testPreprocessorSpec())
	require.NoError(t, err)

	missing := UncoveredCategories(pre, models.FieldArea, []string{"India", "Chile", "Peru", "Mali"})
	assert.Equal(t, []string{"Chile", "Mali"}, missing)
}

func TestBundledArtifacts(t *testing.T) {
	dir := filepath.Join("..", "..", "artifacts")
	if _, err := os.Stat(dir); err != nil {
		t.Skip("bundled artifacts not present")
	}

	pre, err := LoadPreprocessor(filepath.Join(dir, "preprocessor.json"))
	require.NoError(t, err)
	model, err := LoadModel(filepath.Join(dir, "model.json"))
	require.NoError(t, err)
	inv, err := NewInvoker(InvokerConfig{Transformer: pre, Predictor: model})
	require.NoError(t, err)

	assert.Empty(t, UncoveredCategories(pre, models.FieldArea, validation.AllowedAreas().Values()))
	assert.Empty(t, UncoveredCategories(pre, models.FieldItem, validation.AllowedItems().Values()))

	result, err := inv.Predict(context.Background(), testInput())
	require.NoError(t, err)
	assert.InDelta(t, 27314.75, result.Value, 1e-9)
}
