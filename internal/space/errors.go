package space

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch is returned when a vector does not match the space dimension
var ErrDimensionMismatch = errors.New("vector dimension does not match search space")

// InvalidValueError is returned when a structured value cannot be packed
type InvalidValueError struct {
	Param  string
	Value  any
	Reason string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %v for parameter %s: %s", e.Value, e.Param, e.Reason)
}

// MissingValueError is returned when Pack is given no value for a parameter
type MissingValueError struct {
	Param string
}

func (e *MissingValueError) Error() string {
	return "missing value for parameter " + e.Param
}
