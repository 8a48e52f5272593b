package ml

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Artifact shapes
const (
	ShapeBundle    = "bundle"
	ShapeEstimator = "estimator"
)

// artifact is either a bundle {"model": ..., "feature_order": [...]} or a bare estimator
type artifact struct {
	Model         *estimatorSpec `json:"model,omitempty" yaml:"model,omitempty"`
	FeatureOrder  []string       `json:"feature_order,omitempty" yaml:"feature_order,omitempty"`
	estimatorSpec `yaml:",inline"`
}

// Model is a loaded classifier bound to its feature schema
type Model struct {
	Schema FeatureSchema
	Kind   string
	Shape  string

	classifier  Classifier
	probability func(rows [][]float64) ([]float64, error) // nil when unsupported
}

// NewModel wraps a classifier; probability support is detected once here
func NewModel(schema FeatureSchema, kind string, classifier Classifier) *Model {
	m := &Model{Schema: schema, Kind: kind, Shape: ShapeEstimator, classifier: classifier}
	if pc, ok := classifier.(ProbabilityClassifier); ok {
		m.probability = pc.ClassifyProbability
	}
	return m
}

// Classify runs the classifier on rows in schema column order
func (m *Model) Classify(rows [][]float64) ([]int, error) {
	return m.classifier.Classify(rows)
}

// SupportsProbability reports whether ClassifyProbability is available
func (m *Model) SupportsProbability() bool {
	return m.probability != nil
}

// ClassifyProbability returns P(ON) per row
func (m *Model) ClassifyProbability(rows [][]float64) ([]float64, error) {
	if m.probability == nil {
		return nil, fmt.Errorf("model %s does not support probabilities", m.Kind)
	}
	return m.probability(rows)
}

// Load reads a model artifact. A bundle's feature_order becomes the schema;
// otherwise fallback is used. Failures are returned as *LoadError.
func Load(path string, fallback []string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	model, err := Decode(data, formatOf(path), fallback)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	log.Printf("Loaded %s model (%s) from %s with features %v", model.Kind, model.Shape, path, []string(model.Schema))
	return model, nil
}

// Decode parses an artifact in "json" or "yaml" format
func Decode(data []byte, format string, fallback []string) (*Model, error) {
	var a artifact
	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("failed to unmarshal model: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("failed to unmarshal model: %w", err)
		}
	}

	spec := &a.estimatorSpec
	shape := ShapeEstimator
	names := fallback
	if a.Model != nil {
		spec = a.Model
		shape = ShapeBundle
		if len(a.FeatureOrder) > 0 {
			names = a.FeatureOrder
		}
	}

	schema, err := NewFeatureSchema(names)
	if err != nil {
		return nil, fmt.Errorf("invalid feature order: %w", err)
	}

	classifier, err := spec.build(schema)
	if err != nil {
		return nil, err
	}

	model := NewModel(schema, spec.kind(), classifier)
	model.Shape = shape
	return model, nil
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}
