package eigenface

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingSample indicates an identifier has no backing image.
	ErrMissingSample = errors.New("eigenface: missing sample")
	// ErrDimensionMismatch indicates an image does not match the configured ROI size.
	ErrDimensionMismatch = errors.New("eigenface: dimension mismatch")
	// ErrInvalidComponentCount indicates k is not within 1..min(N, P).
	ErrInvalidComponentCount = errors.New("eigenface: invalid component count")
	// ErrNumericInstability indicates the decomposition produced no usable basis.
	ErrNumericInstability = errors.New("eigenface: numeric instability")
	// ErrNoSamples indicates an empty identifier list.
	ErrNoSamples = errors.New("eigenface: no samples")
	// ErrNoModels indicates classification was requested against zero models.
	ErrNoModels = errors.New("eigenface: no models")
	// ErrShape indicates matrix operands with incompatible dimensions.
	ErrShape = errors.New("eigenface: dimension mismatch between matrix and model")
)

// MissingSampleError reports the identifier that had no image.
type MissingSampleError struct {
	ID string
}

func (e *MissingSampleError) Error() string {
	return fmt.Sprintf("eigenface: no image for sample %q", e.ID)
}

func (e *MissingSampleError) Unwrap() error { return ErrMissingSample }

// DimensionMismatchError reports an image whose size differs from the ROI.
type DimensionMismatchError struct {
	ID                    string
	Width, Height         int
	WantWidth, WantHeight int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("eigenface: sample %q is %dx%d, want %dx%d",
		e.ID, e.Width, e.Height, e.WantWidth, e.WantHeight)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// InvalidComponentCountError reports a component count outside 1..min(N, P).
type InvalidComponentCountError struct {
	K       int // requested components
	Samples int // N
	Pixels  int // P
}

func (e *InvalidComponentCountError) Error() string {
	return fmt.Sprintf("eigenface: component count %d must be in 1..min(%d samples, %d pixels)",
		e.K, e.Samples, e.Pixels)
}

func (e *InvalidComponentCountError) Unwrap() error { return ErrInvalidComponentCount }

// NumericInstabilityError reports which step of the decomposition failed.
type NumericInstabilityError struct {
	Op     string
	Reason string
}

func (e *NumericInstabilityError) Error() string {
	return fmt.Sprintf("eigenface: %s: %s", e.Op, e.Reason)
}

func (e *NumericInstabilityError) Unwrap() error { return ErrNumericInstability }
