package services

import (
	"errors"
	"fmt"
	"strings"
)

// Service-level errors
var (
	ErrInvalidLimit = errors.New("invalid preview limit")
	ErrSchema       = errors.New("schema error")
	ErrPrediction   = errors.New("prediction failed")
)

// SchemaError is returned by batch prediction when the upload lacks
// prediction columns even after year_num and kms_num were derived.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing columns after cleaning: [%s]", strings.Join(e.Missing, ", "))
}

// Is makes errors.Is(err, ErrSchema) match.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

// PredictionError wraps whatever the model returned when it failed.
type PredictionError struct {
	Cause error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("prediction failed: %v", e.Cause)
}

func (e *PredictionError) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is(err, ErrPrediction) match.
func (e *PredictionError) Is(target error) bool {
	return target == ErrPrediction
}
