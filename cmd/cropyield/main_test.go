package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/crop-yield-predictor/internal/inference"
	"github.com/OldStager01/crop-yield-predictor/pkg/config"
	"github.com/OldStager01/crop-yield-predictor/pkg/validation"
)

func TestLoadPipeline_BundledArtifacts(t *testing.T) {
	invoker, err := loadPipeline(config.InferenceConfig{
		PreprocessorPath: "../../artifacts/preprocessor.json",
		ModelPath:        "../../artifacts/model.json",
		CacheSize:        16,
		StrictCategories: true,
	}, validation.Default())
	require.NoError(t, err)
	assert.NotNil(t, invoker)
}

func TestLoadPipeline_MissingFile(t *testing.T) {
	_, err := loadPipeline(config.InferenceConfig{
		PreprocessorPath: "does-not-exist.json",
		ModelPath:        "../../artifacts/model.json",
	}, validation.Default())
	assert.Error(t, err)
}

func TestCheckCoverage_Strict(t *testing.T) {
	pre, err := inference.LoadPreprocessor("../../artifacts/preprocessor.json")
	require.NoError(t, err)

	wider := validation.NewValidator(
		validation.NewAllowList(append(validation.AllowedAreas().Values(), "Atlantis")...),
		validation.AllowedItems(),
	)

	assert.NoError(t, checkCoverage(pre, wider, false))
	assert.Error(t, checkCoverage(pre, wider, true))
	assert.NoError(t, checkCoverage(pre, validation.Default(), true))
}
