package ml

import (
	"fmt"
	"math"
)

// Estimator kinds accepted in model artifacts
const (
	KindForest   = "forest"
	KindLogistic = "logistic"
	KindLinear   = "linear"
)

// Classifier predicts a pump status (0 or 1) for every row
type Classifier interface {
	Classify(rows [][]float64) ([]int, error)
}

// ProbabilityClassifier is implemented by classifiers that can estimate P(ON)
type ProbabilityClassifier interface {
	ClassifyProbability(rows [][]float64) ([]float64, error)
}

// estimatorSpec is the serialized form of every estimator kind
type estimatorSpec struct {
	Type         string             `json:"type,omitempty" yaml:"type,omitempty"`
	Coefficients map[string]float64 `json:"coefficients,omitempty" yaml:"coefficients,omitempty"`
	Intercept    float64            `json:"intercept,omitempty" yaml:"intercept,omitempty"`
	Threshold    *float64           `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Trees        []treeSpec         `json:"trees,omitempty" yaml:"trees,omitempty"`
}

type treeSpec struct {
	Nodes []nodeSpec `json:"nodes" yaml:"nodes"`
}

// nodeSpec is a split node when Feature is set, a leaf otherwise.
// Value is the fraction of ON samples at a leaf.
type nodeSpec struct {
	Feature   string  `json:"feature,omitempty" yaml:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Left      int     `json:"left,omitempty" yaml:"left,omitempty"`
	Right     int     `json:"right,omitempty" yaml:"right,omitempty"`
	Value     float64 `json:"value,omitempty" yaml:"value,omitempty"`
}

// kind resolves the estimator type; artifacts without a type but with
// coefficients are plain linear models
func (s *estimatorSpec) kind() string {
	if s.Type != "" {
		return s.Type
	}
	if len(s.Trees) > 0 {
		return KindForest
	}
	return KindLinear
}

// build binds the estimator to the schema column order
func (s *estimatorSpec) build(schema FeatureSchema) (Classifier, error) {
	switch s.kind() {
	case KindForest, "random_forest":
		return newForest(s.Trees, schema)
	case KindLogistic:
		weights, err := bindCoefficients(s.Coefficients, schema)
		if err != nil {
			return nil, err
		}
		threshold := 0.5
		if s.Threshold != nil {
			threshold = *s.Threshold
		}
		return &logisticModel{weights: weights, intercept: s.Intercept, threshold: threshold}, nil
	case KindLinear:
		weights, err := bindCoefficients(s.Coefficients, schema)
		if err != nil {
			return nil, err
		}
		if s.Threshold == nil {
			return nil, fmt.Errorf("linear model requires a threshold")
		}
		return &linearModel{weights: weights, intercept: s.Intercept, threshold: *s.Threshold}, nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", s.Type)
	}
}

func bindCoefficients(coefficients map[string]float64, schema FeatureSchema) ([]float64, error) {
	if len(coefficients) == 0 {
		return nil, fmt.Errorf("model has no coefficients")
	}
	weights := make([]float64, len(schema))
	for name, coef := range coefficients {
		idx := schema.Index(name)
		if idx < 0 {
			return nil, fmt.Errorf("coefficient for unknown feature %q", name)
		}
		weights[idx] = coef
	}
	return weights, nil
}

func score(weights []float64, intercept float64, row []float64) float64 {
	s := intercept
	for i, w := range weights {
		s += w * row[i]
	}
	return s
}

// linearModel turns ON when the linear score reaches the threshold
type linearModel struct {
	weights   []float64
	intercept float64
	threshold float64
}

func (m *linearModel) Classify(rows [][]float64) ([]int, error) {
	out := make([]int, len(rows))
	for i, row := range rows {
		if len(row) != len(m.weights) {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(row), len(m.weights))
		}
		// NaN never reaches the threshold
		if score(m.weights, m.intercept, row) >= m.threshold {
			out[i] = 1
		}
	}
	return out, nil
}

// logisticModel is a linear score squashed through a sigmoid
type logisticModel struct {
	weights   []float64
	intercept float64
	threshold float64
}

func (m *logisticModel) ClassifyProbability(rows [][]float64) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(m.weights) {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(row), len(m.weights))
		}
		out[i] = 1 / (1 + math.Exp(-score(m.weights, m.intercept, row)))
	}
	return out, nil
}

func (m *logisticModel) Classify(rows [][]float64) ([]int, error) {
	probs, err := m.ClassifyProbability(rows)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(rows))
	for i, p := range probs {
		if p >= m.threshold {
			out[i] = 1
		}
	}
	return out, nil
}

type treeNode struct {
	feature   int // -1 at leaves
	threshold float64
	left      int
	right     int
	value     float64
}

// forestModel averages the ON fraction of every tree's leaf
type forestModel struct {
	trees   [][]treeNode
	columns int
}

func newForest(specs []treeSpec, schema FeatureSchema) (*forestModel, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("forest has no trees")
	}

	forest := &forestModel{trees: make([][]treeNode, len(specs)), columns: len(schema)}
	for t, spec := range specs {
		if len(spec.Nodes) == 0 {
			return nil, fmt.Errorf("tree %d has no nodes", t)
		}
		nodes := make([]treeNode, len(spec.Nodes))
		for i, n := range spec.Nodes {
			if n.Feature == "" {
				if n.Value < 0 || n.Value > 1 {
					return nil, fmt.Errorf("tree %d node %d: leaf value %g outside [0,1]", t, i, n.Value)
				}
				nodes[i] = treeNode{feature: -1, value: n.Value}
				continue
			}
			idx := schema.Index(n.Feature)
			if idx < 0 {
				return nil, fmt.Errorf("tree %d node %d: unknown feature %q", t, i, n.Feature)
			}
			// children must point forward so traversal always terminates
			if n.Left <= i || n.Left >= len(spec.Nodes) || n.Right <= i || n.Right >= len(spec.Nodes) {
				return nil, fmt.Errorf("tree %d node %d: invalid children %d/%d", t, i, n.Left, n.Right)
			}
			nodes[i] = treeNode{feature: idx, threshold: n.Threshold, left: n.Left, right: n.Right}
		}
		forest.trees[t] = nodes
	}
	return forest, nil
}

func (f *forestModel) ClassifyProbability(rows [][]float64) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, row := range rows {
		if len(row) != f.columns {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(row), f.columns)
		}
		var sum float64
		for _, nodes := range f.trees {
			sum += walk(nodes, row)
		}
		out[i] = sum / float64(len(f.trees))
	}
	return out, nil
}

func (f *forestModel) Classify(rows [][]float64) ([]int, error) {
	probs, err := f.ClassifyProbability(rows)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(rows))
	for i, p := range probs {
		// ties go to OFF
		if p > 0.5 {
			out[i] = 1
		}
	}
	return out, nil
}

// walk descends one tree; a NaN comparison is false, so missing values go right
func walk(nodes []treeNode, row []float64) float64 {
	i := 0
	for nodes[i].feature >= 0 {
		n := nodes[i]
		if row[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
	return nodes[i].value
}
