package simulator

import (
	"math/rand"
	"strconv"

	"github.com/OldStager01/crop-yield-predictor/pkg/models"
)

// Ranges roughly follow the historical data the bundled model was fit on.
const (
	minYear       = 1990
	maxYear       = 2013
	minRainfall   = 51.0
	maxRainfall   = 3240.0
	minPesticides = 0.04
	maxPesticides = 367778.0
	minTemp       = 1.3
	maxTemp       = 30.65
)

// Generator produces form submissions from the allow-lists. A share of them,
// set by invalidRatio, carries exactly one defect.
type Generator struct {
	rng          *rand.Rand
	areas        []string
	items        []string
	invalidRatio float64
}

func NewGenerator(seed int64, areas, items []string, invalidRatio float64) *Generator {
	return &Generator{
		rng:          rand.New(rand.NewSource(seed)),
		areas:        areas,
		items:        items,
		invalidRatio: invalidRatio,
	}
}

func (g *Generator) Next() models.RawInput {
	raw := models.RawInput{
		Year:        strconv.Itoa(minYear + g.rng.Intn(maxYear-minYear+1)),
		Rainfall:    g.float(minRainfall, maxRainfall),
		Pesticides:  g.float(minPesticides, maxPesticides),
		Temperature: g.float(minTemp, maxTemp),
		Area:        g.areas[g.rng.Intn(len(g.areas))],
		Item:        g.items[g.rng.Intn(len(g.items))],
	}

	if g.rng.Float64() < g.invalidRatio {
		g.corrupt(&raw)
	}
	return raw
}

func (g *Generator) float(lo, hi float64) string {
	return strconv.FormatFloat(lo+g.rng.Float64()*(hi-lo), 'f', 2, 64)
}

func (g *Generator) corrupt(raw *models.RawInput) {
	switch g.rng.Intn(4) {
	case 0:
		raw.Temperature = ""
	case 1:
		raw.Year = "abc"
	case 2:
		raw.Area = "Atlantis"
	default:
		raw.Item = "Banana"
	}
}
