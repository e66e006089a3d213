package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithCrop_IncludesTraceID(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(bytes.NewBuffer(nil))

	ctx := WithTraceID(context.Background(), "trace-123")
	WithCrop(ctx, "India", "Maize").Info("predicted")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "trace-123", entry["trace_id"])
	assert.Equal(t, "India", entry["area"])
	assert.Equal(t, "Maize", entry["item"])
}

func TestSetLevel(t *testing.T) {
	defer SetLevel("info")

	SetLevel("debug")
	assert.Equal(t, "debug", Level())

	SetLevel("nonsense")
	assert.Equal(t, "info", Level())
}

func TestSetupFile_EmptyPath(t *testing.T) {
	closer := SetupFile(FileConfig{})
	assert.NoError(t, closer.Close())
}
