// Package solver defines the ask/tell protocol shared by every search
// strategy and the generic run loop that drives a strategy against a problem.
package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/space"
)

// ErrDimensionMismatch is returned when a told vector does not fit the space
var ErrDimensionMismatch = space.ErrDimensionMismatch

// ErrLengthMismatch is returned when Tell gets different numbers of vectors and values
var ErrLengthMismatch = errors.New("vectors and values differ in length")

// ErrInvalidBatch is returned when Ask is called with n < 1
var ErrInvalidBatch = errors.New("ask needs n >= 1")

// Direction selects whether larger or smaller objective values are better
type Direction int

const (
	Maximize Direction = iota
	Minimize
)

func (d Direction) String() string {
	if d == Minimize {
		return "minimize"
	}
	return "maximize"
}

// ParseDirection accepts "max"/"maximize" and "min"/"minimize"; empty means maximize
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "max", "maximize":
		return Maximize, nil
	case "min", "minimize":
		return Minimize, nil
	}
	return Maximize, fmt.Errorf("unknown direction %q", s)
}

// Better reports whether candidate strictly improves on incumbent.
// NaN never improves; a NaN incumbent is beaten by any number.
func (d Direction) Better(candidate, incumbent float64) bool {
	if math.IsNaN(candidate) {
		return false
	}
	if math.IsNaN(incumbent) {
		return true
	}
	if d == Minimize {
		return candidate < incumbent
	}
	return candidate > incumbent
}

// Problem is the black-box objective a Runner optimizes
type Problem interface {
	Name() string
	SearchSpace() *space.SearchSpace
	EvaluateObjective(ctx context.Context, values space.Values, objective string) (float64, error)
}

// Solver is the ask/tell contract every search strategy implements
type Solver interface {
	// Name identifies the strategy
	Name() string
	// Ask proposes n candidate vectors in packed form
	Ask(n int) ([][]float64, error)
	// Tell reports the objective values of previously asked vectors
	Tell(vectors [][]float64, values []float64) error
	// Reset clears the search state but keeps the bound search space
	Reset()
	// Best returns the incumbent, ok is false before the first Tell
	Best() (Incumbent, bool)
}

// Incumbent is the best point seen so far
type Incumbent struct {
	Vector []float64
	Params space.Values
	Value  float64
}

func (i Incumbent) clone() Incumbent {
	out := Incumbent{Value: i.Value}
	if i.Vector != nil {
		out.Vector = append([]float64(nil), i.Vector...)
	}
	if i.Params != nil {
		out.Params = i.Params.Clone()
	}
	return out
}

// tracker keeps the running best under the strict-improvement rule.
// The first told value always becomes the incumbent.
type tracker struct {
	space     *space.SearchSpace
	direction Direction
	best      Incumbent
	has       bool
	told      int
}

func (t *tracker) reset() {
	t.best = Incumbent{}
	t.has = false
	t.told = 0
}

func (t *tracker) tell(vectors [][]float64, values []float64) error {
	if len(vectors) != len(values) {
		return fmt.Errorf("%w: %d vectors, %d values", ErrLengthMismatch, len(vectors), len(values))
	}
	for i, vec := range vectors {
		if len(vec) != t.space.Dim() {
			return fmt.Errorf("%w: vector %d has %d coordinates, want %d", ErrDimensionMismatch, i, len(vec), t.space.Dim())
		}
	}
	for i, vec := range vectors {
		t.told++
		if t.has && !t.direction.Better(values[i], t.best.Value) {
			continue
		}
		params, err := t.space.Unpack(vec)
		if err != nil {
			return err
		}
		t.best = Incumbent{Vector: append([]float64(nil), vec...), Params: params, Value: values[i]}
		t.has = true
	}
	return nil
}

func (t *tracker) incumbent() (Incumbent, bool) {
	if !t.has {
		return Incumbent{}, false
	}
	return t.best.clone(), true
}

// Direction returns the configured optimization direction
func (t *tracker) Direction() Direction { return t.direction }

// Told returns the number of values told since the last reset
func (t *tracker) Told() int { return t.told }
