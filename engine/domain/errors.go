package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for catalog validation failures.
var (
	ErrMissingBrandName = errors.New("brand record has no name")
	ErrMissingModelName = errors.New("model record has no usable name")
	ErrMalformedModel   = errors.New("model record is malformed")
)

// ValidationError wraps a sentinel with the record it concerns.
type ValidationError struct {
	Brand   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("catalog: %s: brand=%q value=%q", e.Wrapped, e.Brand, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(brand, value string, wrapped error) *ValidationError {
	return &ValidationError{Brand: brand, Value: value, Wrapped: wrapped}
}
