package ml

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFeatureSchema(t *testing.T) {
	schema, err := NewFeatureSchema([]string{" Humidity", "Rainfall ", "Sunlight", "Soil_Moisture"})
	require.NoError(t, err)
	assert.Equal(t, FeatureSchema{"Humidity", "Rainfall", "Sunlight", "Soil_Moisture"}, schema)
	assert.Equal(t, 3, schema.Index("Soil_Moisture"))
	assert.Equal(t, -1, schema.Index("Temperature"))
}

func TestNewFeatureSchemaRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		names []string
	}{
		{"empty list", nil},
		{"blank name", []string{"Humidity", "  "}},
		{"duplicate after trim", []string{"Humidity", " Humidity"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFeatureSchema(tt.names)
			assert.Error(t, err)
		})
	}
}

func TestParseFeatureOrder(t *testing.T) {
	assert.Equal(t, []string{"a", " b", "c"}, ParseFeatureOrder("a, b,c"))
	assert.Nil(t, ParseFeatureOrder("  "))
}

func TestRuleCheck(t *testing.T) {
	humidity := DefaultRules["Humidity"]
	assert.NoError(t, humidity.Check(0))
	assert.NoError(t, humidity.Check(100))
	assert.Error(t, humidity.Check(-0.1))
	assert.Error(t, humidity.Check(100.5))
	assert.Error(t, humidity.Check(math.NaN()))

	rain := DefaultRules["Rainfall"]
	assert.NoError(t, rain.Check(1))
	assert.Error(t, rain.Check(0.5))
	assert.Error(t, rain.Check(2))

	sun := DefaultRules["Sunlight"]
	assert.NoError(t, sun.Check(12000))
	assert.Error(t, sun.Check(-1))
	assert.Error(t, sun.Check(math.Inf(1)))
}
