package web

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplates_RenderErrorsAndPrediction(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	var buf bytes.Buffer
	err = tmpl.ExecuteTemplate(&buf, IndexTemplate, map[string]interface{}{
		"ErrorMessages": []string{"Entered Area 'Atlantis' is not valid."},
		"HasPrediction": true,
		"Prediction":    27314.75,
		"Unit":          "hg/ha",
		"Form":          map[string]string{"Area": "Atlantis"},
		"Areas":         []string{"India"},
		"Items":         []string{"Maize"},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Entered Area &#39;Atlantis&#39; is not valid.")
	assert.Contains(t, out, "27314.75")
	assert.Contains(t, out, `<option value="India">`)
}
