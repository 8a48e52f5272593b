package models

import (
	"bytes"
	"encoding/json"
	"math"
	"time"
)

// Pump status values and their labels
const (
	PumpOff = 0
	PumpOn  = 1

	LabelOff = "OFF"
	LabelOn  = "ON"
)

// PumpLabel maps a pump status to its label (1 -> "ON", anything else -> "OFF")
func PumpLabel(status int) string {
	if status == PumpOn {
		return LabelOn
	}
	return LabelOff
}

// FeatureValues is an ordered feature name -> value mapping.
// It serializes keys in the order of Names; missing values (NaN) serialize as null.
type FeatureValues struct {
	Names  []string
	Values []float64
}

// Get returns the value for a feature name
func (f FeatureValues) Get(name string) (float64, bool) {
	for i, n := range f.Names {
		if n == name && i < len(f.Values) {
			return f.Values[i], true
		}
	}
	return 0, false
}

// MarshalJSON writes the features as a JSON object preserving order
func (f FeatureValues) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range f.Names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		v := math.NaN()
		if i < len(f.Values) {
			v = f.Values[i]
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf.WriteString("null")
			continue
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// PredictionResult is the classification of one feature row
type PredictionResult struct {
	PumpStatus    int           `json:"pump_status"`
	PumpLabel     string        `json:"pump_label"`
	ProbabilityOn *float64      `json:"probability_on"` // nil when the model cannot provide it
	UsedFeatures  FeatureValues `json:"used_features"`
}

// PredictionRecord is one prediction row written to the audit log
type PredictionRecord struct {
	Timestamp     time.Time
	RequestID     string
	RowIndex      uint32
	ModelKind     string
	PumpStatus    uint8
	ProbabilityOn *float64
	Features      string // JSON object of used features
}
