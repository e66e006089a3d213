package inference

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

const KindDecisionTreeRegressor = "decision_tree_regressor"

// Predictor maps one transformed feature vector to a scalar.
type Predictor interface {
	Predict(features []float64) (float64, error)
	NumFeatures() int
}

// ModelSpec is the persisted form of a fitted model.
type ModelSpec struct {
	Kind      string     `json:"kind"`
	NFeatures int        `json:"n_features"`
	Nodes     []TreeNode `json:"nodes"`
}

type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

func (n TreeNode) IsLeaf() bool {
	return n.Left < 0 && n.Right < 0
}

// DecisionTreeRegressor evaluates a fitted regression tree.
type DecisionTreeRegressor struct {
	nFeatures int
	nodes     []TreeNode
}

func LoadModel(path string) (Predictor, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}
	var spec ModelSpec
	if err := json.Unmarshal(payload, &spec); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	return NewModel(spec)
}

func NewModel(spec ModelSpec) (Predictor, error) {
	switch spec.Kind {
	case KindDecisionTreeRegressor:
		return NewDecisionTreeRegressor(spec.NFeatures, spec.Nodes)
	default:
		return nil, fmt.Errorf("unsupported model kind %q", spec.Kind)
	}
}

func NewDecisionTreeRegressor(nFeatures int, nodes []TreeNode) (*DecisionTreeRegressor, error) {
	if nFeatures <= 0 {
		return nil, errors.New("n_features must be positive")
	}
	if len(nodes) == 0 {
		return nil, ErrModelNotLoaded
	}
	for i, node := range nodes {
		if node.IsLeaf() {
			continue
		}
		if node.Feature < 0 || node.Feature >= nFeatures {
			return nil, fmt.Errorf("node %d: feature index %d out of range", i, node.Feature)
		}
		if node.Left <= i || node.Left >= len(nodes) || node.Right <= i || node.Right >= len(nodes) {
			return nil, fmt.Errorf("node %d: invalid children %d/%d", i, node.Left, node.Right)
		}
	}
	return &DecisionTreeRegressor{
		nFeatures: nFeatures,
		nodes:     append([]TreeNode(nil), nodes...),
	}, nil
}

func (dt *DecisionTreeRegressor) NumFeatures() int {
	return dt.nFeatures
}

func (dt *DecisionTreeRegressor) Predict(features []float64) (float64, error) {
	if len(features) != dt.nFeatures {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrFeatureMismatch, len(features), dt.nFeatures)
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf() {
			return node.Value, nil
		}
		if features[node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
}
