package inference

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/OldStager01/crop-yield-predictor/pkg/models"
)

const (
	StepStandardScaler = "standard_scaler"
	StepOneHot         = "one_hot"

	HandleUnknownError  = "error"
	HandleUnknownIgnore = "ignore"
)

// PreprocessorSpec is the persisted form of a fitted feature transform.
type PreprocessorSpec struct {
	Version string     `json:"version"`
	Steps   []StepSpec `json:"steps"`
}

type StepSpec struct {
	Kind    string   `json:"kind"`
	Columns []string `json:"columns"`

	// standard_scaler
	Mean  []float64 `json:"mean,omitempty"`
	Scale []float64 `json:"scale,omitempty"`

	// one_hot
	Categories    [][]string `json:"categories,omitempty"`
	DropFirst     bool       `json:"drop_first,omitempty"`
	HandleUnknown string     `json:"handle_unknown,omitempty"`
}

// Preprocessor encodes a FeatureRecord into the numeric vector the model
// was trained on. It is immutable once loaded and safe for concurrent use.
type Preprocessor struct {
	steps []StepSpec
	index []map[string]int // per one_hot column: category -> position
	width int
}

func LoadPreprocessor(path string) (*Preprocessor, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read preprocessor: %w", err)
	}
	var spec PreprocessorSpec
	if err := json.Unmarshal(payload, &spec); err != nil {
		return nil, fmt.Errorf("failed to decode preprocessor: %w", err)
	}
	return NewPreprocessor(spec)
}

func NewPreprocessor(spec PreprocessorSpec) (*Preprocessor, error) {
	if len(spec.Steps) == 0 {
		return nil, fmt.Errorf("preprocessor has no steps")
	}

	p := &Preprocessor{}
	for i, step := range spec.Steps {
		if len(step.Columns) == 0 {
			return nil, fmt.Errorf("step %d (%s): no columns", i, step.Kind)
		}
		switch step.Kind {
		case StepStandardScaler:
			if len(step.Mean) != len(step.Columns) || len(step.Scale) != len(step.Columns) {
				return nil, fmt.Errorf("step %d: mean/scale length must match %d columns", i, len(step.Columns))
			}
			for _, col := range step.Columns {
				if _, ok := (models.FeatureRecord{}).Numeric(col); !ok {
					return nil, fmt.Errorf("step %d: %q is not a numeric column", i, col)
				}
			}
			p.width += len(step.Columns)

		case StepOneHot:
			if len(step.Categories) != len(step.Columns) {
				return nil, fmt.Errorf("step %d: categories length must match %d columns", i, len(step.Columns))
			}
			switch step.HandleUnknown {
			case "":
				step.HandleUnknown = HandleUnknownError
			case HandleUnknownError, HandleUnknownIgnore:
			default:
				return nil, fmt.Errorf("step %d: unsupported handle_unknown %q", i, step.HandleUnknown)
			}
			for j, col := range step.Columns {
				if _, ok := (models.FeatureRecord{}).Categorical(col); !ok {
					return nil, fmt.Errorf("step %d: %q is not a categorical column", i, col)
				}
				cats := step.Categories[j]
				if len(cats) == 0 {
					return nil, fmt.Errorf("step %d: column %q has no categories", i, col)
				}
				idx := make(map[string]int, len(cats))
				for k, c := range cats {
					if _, dup := idx[c]; dup {
						return nil, fmt.Errorf("step %d: duplicate category %q in %q", i, c, col)
					}
					idx[c] = k
				}
				p.index = append(p.index, idx)
				p.width += encodedWidth(len(cats), step.DropFirst)
			}

		default:
			return nil, fmt.Errorf("step %d: unsupported kind %q", i, step.Kind)
		}
		p.steps = append(p.steps, step)
	}

	return p, nil
}

func encodedWidth(categories int, dropFirst bool) int {
	if dropFirst {
		return categories - 1
	}
	return categories
}

// Width is the length of every transformed vector.
func (p *Preprocessor) Width() int {
	return p.width
}

// Categories returns the encoder categories known for a categorical column.
func (p *Preprocessor) Categories(column string) []string {
	for _, step := range p.steps {
		if step.Kind != StepOneHot {
			continue
		}
		for j, col := range step.Columns {
			if col == column {
				return append([]string(nil), step.Categories[j]...)
			}
		}
	}
	return nil
}

func (p *Preprocessor) Transform(rec models.FeatureRecord) ([]float64, error) {
	out := make([]float64, 0, p.width)
	oneHot := 0

	for _, step := range p.steps {
		switch step.Kind {
		case StepStandardScaler:
			for j, col := range step.Columns {
				x, _ := rec.Numeric(col)
				scale := step.Scale[j]
				if scale == 0 {
					scale = 1
				}
				out = append(out, (x-step.Mean[j])/scale)
			}

		case StepOneHot:
			for j, col := range step.Columns {
				value, _ := rec.Categorical(col)
				block := make([]float64, len(step.Categories[j]))
				pos, ok := p.index[oneHot][value]
				oneHot++
				if ok {
					block[pos] = 1
				} else if step.HandleUnknown == HandleUnknownError {
					return nil, fmt.Errorf("%w: %s=%q", ErrUnknownCategory, col, value)
				}
				if step.DropFirst {
					block = block[1:]
				}
				out = append(out, block...)
			}
		}
	}

	return out, nil
}
