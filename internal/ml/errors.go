package ml

import (
	"errors"
	"fmt"
)

// ErrEmptyBatch is returned when a batch prediction has no rows
var ErrEmptyBatch = errors.New("request list is empty")

// LoadError means the model artifact is missing or malformed
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load model %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ModelNotReadyError is returned by predictions while no model is loaded
type ModelNotReadyError struct {
	Cause string // last load error, empty if none was recorded
}

func (e *ModelNotReadyError) Error() string {
	if e.Cause == "" {
		return "model is not ready"
	}
	return fmt.Sprintf("model is not ready: %s", e.Cause)
}

// ValidationError reports a malformed or out-of-range feature value
type ValidationError struct {
	Row     int // -1 for single-row requests
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
