// Package fom turns pairs of reflectivity curves into figures of merit.
//
// A sensitivity curve compares the reference stack with the same stack
// carrying a buried signal layer. SFM integrates its magnitude over Q, MCF
// integrates the spin contrast, and TSF aggregates both over scenarios.
package fom

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
)

// Epsilon keeps the sensitivity finite when both reflectivities vanish
const Epsilon = 1e-12

var (
	// ErrLengthMismatch is returned when curves do not share the Q grid
	ErrLengthMismatch = errors.New("curve lengths differ")
	// ErrShortGrid is returned for grids with fewer than two points
	ErrShortGrid = errors.New("q grid needs at least two points")
)

// Sensitivity returns (ref - full)/(ref + full + Epsilon) per point
func Sensitivity(ref, full []float64) ([]float64, error) {
	if len(ref) != len(full) {
		return nil, fmt.Errorf("sensitivity: %w (%d vs %d)", ErrLengthMismatch, len(ref), len(full))
	}
	s := make([]float64, len(ref))
	for i := range ref {
		s[i] = (ref[i] - full[i]) / (ref[i] + full[i] + Epsilon)
	}
	return s, nil
}

// SFM integrates |S|·w over Q with the trapezoid rule. A nil w means uniform weight.
func SFM(q, s, w []float64) (float64, error) {
	if err := checkGrid(q, s, w); err != nil {
		return 0, fmt.Errorf("sfm: %w", err)
	}
	y := make([]float64, len(s))
	for i, v := range s {
		y[i] = math.Abs(v)
	}
	if w != nil {
		floats.Mul(y, w)
	}
	return integrate.Trapezoidal(q, y), nil
}

// MCF integrates the spin contrast |S_up - S_down|·w over Q
func MCF(q, sUp, sDown, w []float64) (float64, error) {
	if len(sUp) != len(sDown) {
		return 0, fmt.Errorf("mcf: %w (%d vs %d)", ErrLengthMismatch, len(sUp), len(sDown))
	}
	if err := checkGrid(q, sUp, w); err != nil {
		return 0, fmt.Errorf("mcf: %w", err)
	}
	y := make([]float64, len(sUp))
	floats.SubTo(y, sUp, sDown)
	for i, v := range y {
		y[i] = math.Abs(v)
	}
	if w != nil {
		floats.Mul(y, w)
	}
	return integrate.Trapezoidal(q, y), nil
}

func checkGrid(q, s, w []float64) error {
	if len(q) < 2 {
		return ErrShortGrid
	}
	if len(s) != len(q) {
		return fmt.Errorf("%w: curve has %d points, grid has %d", ErrLengthMismatch, len(s), len(q))
	}
	if w != nil && len(w) != len(q) {
		return fmt.Errorf("%w: weights have %d points, grid has %d", ErrLengthMismatch, len(w), len(q))
	}
	for i := 1; i < len(q); i++ {
		if !(q[i] > q[i-1]) {
			return fmt.Errorf("q grid must be strictly increasing at index %d", i)
		}
	}
	return nil
}
