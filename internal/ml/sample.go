package ml

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
)

// sampleBundle returns a small demonstration forest: the pump turns on when the
// soil is dry and it is not raining.
func sampleBundle() artifact {
	return artifact{
		FeatureOrder: DefaultFeatureOrder,
		Model: &estimatorSpec{
			Type: KindForest,
			Trees: []treeSpec{
				{Nodes: []nodeSpec{
					{Feature: "Soil_Moisture", Threshold: 40, Left: 1, Right: 4},
					{Feature: "Rainfall", Threshold: 0.5, Left: 2, Right: 3},
					{Value: 0.9},
					{Value: 0.2},
					{Value: 0.05},
				}},
				{Nodes: []nodeSpec{
					{Feature: "Humidity", Threshold: 60, Left: 1, Right: 4},
					{Feature: "Soil_Moisture", Threshold: 50, Left: 2, Right: 3},
					{Value: 0.85},
					{Value: 0.1},
					{Feature: "Sunlight", Threshold: 200, Left: 5, Right: 6},
					{Value: 0.15},
					{Feature: "Soil_Moisture", Threshold: 30, Left: 7, Right: 8},
					{Value: 0.7},
					{Value: 0.1},
				}},
			},
		},
	}
}

// WriteSampleModel writes the sample bundle as JSON
func WriteSampleModel(path string) error {
	data, err := json.MarshalIndent(sampleBundle(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}

	log.Printf("Created sample model at %s", path)
	return nil
}
