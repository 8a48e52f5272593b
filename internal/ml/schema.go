package ml

import (
	"fmt"
	"math"
	"strings"
)

// DefaultFeatureOrder is used when neither the artifact nor the environment names the features
var DefaultFeatureOrder = []string{"Humidity", "Rainfall", "Sunlight", "Soil_Moisture"}

// FeatureSchema is the ordered list of feature names the model expects
type FeatureSchema []string

// NewFeatureSchema trims every name and rejects empty lists, blank names and duplicates
func NewFeatureSchema(names []string) (FeatureSchema, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("feature schema is empty")
	}

	schema := make(FeatureSchema, 0, len(names))
	seen := make(map[string]bool, len(names))
	for i, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			return nil, fmt.Errorf("feature %d has an empty name", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate feature %q", name)
		}
		seen[name] = true
		schema = append(schema, name)
	}
	return schema, nil
}

// ParseFeatureOrder splits a comma separated feature list
func ParseFeatureOrder(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// Names returns a copy of the feature names
func (s FeatureSchema) Names() []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// Index returns the column of a feature, or -1
func (s FeatureSchema) Index(name string) int {
	for i, n := range s {
		if n == name {
			return i
		}
	}
	return -1
}

// Rule constrains the values accepted for one feature
type Rule struct {
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Integer bool     `json:"integer,omitempty"`
}

func bound(v float64) *float64 { return &v }

// DefaultRules are the sensor ranges of the irrigation controller
var DefaultRules = map[string]Rule{
	"Humidity":      {Min: bound(0), Max: bound(100)},
	"Rainfall":      {Min: bound(0), Max: bound(1), Integer: true},
	"Sunlight":      {Min: bound(0)},
	"Soil_Moisture": {Min: bound(0), Max: bound(100)},
}

// Check validates a value against the rule
func (r Rule) Check(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("must be a finite number")
	}
	if r.Integer && v != math.Trunc(v) {
		return fmt.Errorf("must be an integer")
	}
	if r.Min != nil && v < *r.Min {
		return fmt.Errorf("must be >= %g", *r.Min)
	}
	if r.Max != nil && v > *r.Max {
		return fmt.Errorf("must be <= %g", *r.Max)
	}
	return nil
}
