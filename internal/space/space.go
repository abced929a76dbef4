// Package space encodes heterogeneous optimization parameters as flat
// float64 vectors.
//
// A SearchSpace is an ordered, immutable list of parameters. Solvers work on
// packed vectors; problems receive unpacked Values keyed by parameter name.
package space

import (
	"fmt"
	"math"

	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/pkg/utils"
)

// Values maps parameter names to structured values
type Values map[string]any

// Float returns a numeric value as float64
func (v Values) Float(name string) (float64, error) {
	raw, ok := v[name]
	if !ok {
		return 0, &MissingValueError{Param: name}
	}
	f, ok := toFloat(raw)
	if !ok {
		return 0, &InvalidValueError{Param: name, Value: raw, Reason: "expected a number"}
	}
	return f, nil
}

// Int returns an integer value
func (v Values) Int(name string) (int, error) {
	f, err := v.Float(name)
	if err != nil {
		return 0, err
	}
	return int(math.Round(f)), nil
}

// Choice returns a categorical value
func (v Values) Choice(name string) (string, error) {
	raw, ok := v[name]
	if !ok {
		return "", &MissingValueError{Param: name}
	}
	s, ok := raw.(string)
	if !ok {
		return "", &InvalidValueError{Param: name, Value: raw, Reason: "expected a string"}
	}
	return s, nil
}

// Clone returns a shallow copy
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// SearchSpace is an ordered list of parameters with a name index
type SearchSpace struct {
	params []Param
	index  map[string]int
}

// NewSearchSpace validates params and builds the space
func NewSearchSpace(params ...Param) (*SearchSpace, error) {
	s := &SearchSpace{
		params: make([]Param, len(params)),
		index:  make(map[string]int, len(params)),
	}
	for i, p := range params {
		if err := p.validate(); err != nil {
			return nil, err
		}
		if _, dup := s.index[p.Name]; dup {
			return nil, fmt.Errorf("duplicate parameter name %q", p.Name)
		}
		p.Choices = append([]string(nil), p.Choices...)
		s.params[i] = p
		s.index[p.Name] = i
	}
	return s, nil
}

// Dim returns the number of parameters
func (s *SearchSpace) Dim() int {
	return len(s.params)
}

// Names returns the parameter names in declared order
func (s *SearchSpace) Names() []string {
	names := make([]string, len(s.params))
	for i, p := range s.params {
		names[i] = p.Name
	}
	return names
}

// Params returns a copy of the parameter list
func (s *SearchSpace) Params() []Param {
	out := make([]Param, len(s.params))
	for i, p := range s.params {
		p.Choices = append([]string(nil), p.Choices...)
		out[i] = p
	}
	return out
}

// Param looks up a parameter by name
func (s *SearchSpace) Param(name string) (Param, bool) {
	i, ok := s.index[name]
	if !ok {
		return Param{}, false
	}
	return s.params[i], true
}

// Index returns the vector position of a parameter, or -1
func (s *SearchSpace) Index(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// Pack encodes values in declared parameter order
func (s *SearchSpace) Pack(values Values) ([]float64, error) {
	vec := make([]float64, len(s.params))
	for i, p := range s.params {
		raw, ok := values[p.Name]
		if !ok {
			return nil, &MissingValueError{Param: p.Name}
		}
		v, err := p.Pack(raw)
		if err != nil {
			return nil, err
		}
		vec[i] = v
	}
	return vec, nil
}

// Unpack decodes a vector into structured values
func (s *SearchSpace) Unpack(vec []float64) (Values, error) {
	if err := s.checkDim(vec); err != nil {
		return nil, err
	}
	out := make(Values, len(s.params))
	for i, p := range s.params {
		out[p.Name] = p.Unpack(vec[i])
	}
	return out, nil
}

// Clip returns a new vector with every coordinate projected by its own rule
func (s *SearchSpace) Clip(vec []float64) ([]float64, error) {
	if err := s.checkDim(vec); err != nil {
		return nil, err
	}
	out := make([]float64, len(vec))
	for i, p := range s.params {
		out[i] = p.Clip(vec[i])
	}
	return out, nil
}

// Contains reports whether vec is already feasible
func (s *SearchSpace) Contains(vec []float64) bool {
	if len(vec) != len(s.params) {
		return false
	}
	for i, p := range s.params {
		if math.IsNaN(vec[i]) || p.Clip(vec[i]) != vec[i] {
			return false
		}
	}
	return true
}

// Sample draws n feasible vectors
func (s *SearchSpace) Sample(n int, rng *utils.RandSource) [][]float64 {
	if n <= 0 {
		return nil
	}
	out := make([][]float64, n)
	for r := range out {
		vec := make([]float64, len(s.params))
		for i, p := range s.params {
			vec[i] = p.Sample(rng)
		}
		out[r] = vec
	}
	return out
}

// Grid returns one axis per parameter, see Param.Axis
func (s *SearchSpace) Grid(n int) [][]float64 {
	axes := make([][]float64, len(s.params))
	for i, p := range s.params {
		axes[i] = p.Axis(n)
	}
	return axes
}

// Product materializes the Cartesian product of axes with the last axis
// varying fastest
func Product(axes [][]float64) [][]float64 {
	if len(axes) == 0 {
		return nil
	}
	total := 1
	for _, a := range axes {
		if len(a) == 0 {
			return nil
		}
		total *= len(a)
	}
	out := make([][]float64, total)
	idx := make([]int, len(axes))
	for r := 0; r < total; r++ {
		vec := make([]float64, len(axes))
		for i, a := range axes {
			vec[i] = a[idx[i]]
		}
		out[r] = vec
		for i := len(axes) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(axes[i]) {
				break
			}
			idx[i] = 0
		}
	}
	return out
}

func (s *SearchSpace) checkDim(vec []float64) error {
	if len(vec) != len(s.params) {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), len(s.params))
	}
	return nil
}
