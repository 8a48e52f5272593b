package ml

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FeatureRow holds one sample's values in schema order. NaN marks a missing value.
type FeatureRow []float64

// ParseRow validates one raw row against the schema.
// Features with a rule must be numeric and in range. Features without a rule are
// coerced permissively: anything non-numeric becomes NaN and still reaches the model.
func ParseRow(raw map[string]any, schema FeatureSchema, rules map[string]Rule) (FeatureRow, error) {
	return parseRow(raw, schema, rules, -1)
}

// ParseBatch validates every row of a batch; an empty batch is rejected
func ParseBatch(raws []map[string]any, schema FeatureSchema, rules map[string]Rule) ([]FeatureRow, error) {
	if len(raws) == 0 {
		return nil, ErrEmptyBatch
	}

	rows := make([]FeatureRow, len(raws))
	for i, raw := range raws {
		row, err := parseRow(raw, schema, rules, i)
		if err != nil {
			return nil, err
		}
		rows[i] = row
	}
	return rows, nil
}

func parseRow(raw map[string]any, schema FeatureSchema, rules map[string]Rule, index int) (FeatureRow, error) {
	row := make(FeatureRow, len(schema))
	for i, name := range schema {
		value, present := raw[name]
		if !present {
			return nil, &ValidationError{Row: index, Field: name, Message: "field required"}
		}

		rule, ruled := rules[name]
		v, numeric := ToNumber(value)
		if !ruled {
			row[i] = v
			continue
		}
		if !numeric {
			return nil, &ValidationError{Row: index, Field: name, Message: "must be a number"}
		}
		if err := rule.Check(v); err != nil {
			return nil, &ValidationError{Row: index, Field: name, Message: err.Error()}
		}
		row[i] = v
	}
	return row, nil
}

// ToNumber converts a decoded JSON value (number or numeric string);
// non-numeric input yields NaN
func ToNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return math.NaN(), false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return math.NaN(), false
		}
		return f, true
	default:
		return math.NaN(), false
	}
}
