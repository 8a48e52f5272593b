package ml

import (
	"fmt"
	"math"

	"irrigation-gateway/internal/models"
)

// Predictor classifies feature rows with the model resolved at startup
type Predictor struct {
	model   *Model
	loadErr error
	rules   map[string]Rule
}

// NewPredictor creates a predictor. model may be nil, in which case every
// prediction fails with ModelNotReadyError carrying loadErr.
func NewPredictor(model *Model, loadErr error, rules map[string]Rule) *Predictor {
	if rules == nil {
		rules = DefaultRules
	}
	return &Predictor{model: model, loadErr: loadErr, rules: rules}
}

// Ready reports whether a model is loaded
func (p *Predictor) Ready() bool {
	return p.model != nil
}

// Model returns the loaded model, or nil
func (p *Predictor) Model() *Model {
	return p.model
}

// LoadError returns the error recorded when the model failed to load
func (p *Predictor) LoadError() error {
	return p.loadErr
}

// Rules returns the value rules applied to the schema features
func (p *Predictor) Rules() map[string]Rule {
	out := make(map[string]Rule)
	if p.model == nil {
		return out
	}
	for _, name := range p.model.Schema {
		if r, ok := p.rules[name]; ok {
			out[name] = r
		}
	}
	return out
}

// Schema returns the resolved feature schema
func (p *Predictor) Schema() (FeatureSchema, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	return p.model.Schema, nil
}

// ParseRow validates a single raw row against the schema
func (p *Predictor) ParseRow(raw map[string]any) (FeatureRow, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	return ParseRow(raw, p.model.Schema, p.rules)
}

// ParseBatch validates a non-empty list of raw rows
func (p *Predictor) ParseBatch(raws []map[string]any) ([]FeatureRow, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	return ParseBatch(raws, p.model.Schema, p.rules)
}

func (p *Predictor) ready() error {
	if p.model != nil {
		return nil
	}
	cause := ""
	if p.loadErr != nil {
		cause = p.loadErr.Error()
	}
	return &ModelNotReadyError{Cause: cause}
}

// Predict classifies rows with a single model call; results keep the input order
func (p *Predictor) Predict(rows []FeatureRow) ([]models.PredictionResult, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}

	schema := p.model.Schema
	matrix := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(schema) {
			return nil, fmt.Errorf("row %d has %d values, schema has %d", i, len(row), len(schema))
		}
		matrix[i] = row
	}

	statuses, err := p.model.Classify(matrix)
	if err != nil {
		return nil, fmt.Errorf("failed to classify rows: %w", err)
	}
	if len(statuses) != len(rows) {
		return nil, fmt.Errorf("classifier returned %d results for %d rows", len(statuses), len(rows))
	}

	probs := p.probabilities(matrix)

	names := schema.Names()
	out := make([]models.PredictionResult, len(rows))
	for i, status := range statuses {
		values := make([]float64, len(rows[i]))
		copy(values, rows[i])

		out[i] = models.PredictionResult{
			PumpStatus:    status,
			PumpLabel:     models.PumpLabel(status),
			UsedFeatures:  models.FeatureValues{Names: names, Values: values},
			ProbabilityOn: probs[i],
		}
	}
	return out, nil
}

// probabilities never fails: any problem leaves the probability absent
func (p *Predictor) probabilities(matrix [][]float64) []*float64 {
	out := make([]*float64, len(matrix))
	if !p.model.SupportsProbability() {
		return out
	}

	probs, err := p.model.ClassifyProbability(matrix)
	if err != nil || len(probs) != len(matrix) {
		return out
	}
	for i, v := range probs {
		if math.IsNaN(v) || v < 0 || v > 1 {
			continue
		}
		v := v
		out[i] = &v
	}
	return out
}
