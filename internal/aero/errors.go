package aero

import (
	"errors"
	"fmt"
)

// Domain errors for training operations.
var (
	// ErrShape indicates a tensor whose dimensions disagree with the model.
	ErrShape = errors.New("aero: shape mismatch")

	// ErrGradientUnavailable indicates coordinate derivatives were requested
	// from a forward pass that did not record them.
	ErrGradientUnavailable = errors.New("aero: coordinate gradients unavailable")

	// ErrInsufficientData indicates a dataset too small to split or batch.
	ErrInsufficientData = errors.New("aero: insufficient data")

	// ErrIncompatibleCheckpoint indicates a checkpoint whose architecture does
	// not match the target model.
	ErrIncompatibleCheckpoint = errors.New("aero: incompatible checkpoint")

	// ErrNumericalInstability indicates a non-finite loss or gradient.
	ErrNumericalInstability = errors.New("aero: numerical instability (NaN or Inf detected)")

	// ErrInvalidCondition indicates flow condition parameters out of range.
	ErrInvalidCondition = errors.New("aero: invalid flow condition")
)

// ShapeError wraps ErrShape with the offending dimensions.
type ShapeError struct {
	Component string
	Got       int
	Want      int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %s: got %d input features, want %d", e.Component, ErrShape, e.Got, e.Want)
}

func (e *ShapeError) Unwrap() error {
	return ErrShape
}
