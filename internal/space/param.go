package space

import (
	"fmt"
	"math"

	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/pkg/utils"
)

// Kind tags the encoding rule of a parameter
type Kind int

const (
	Continuous Kind = iota
	Integer
	Categorical
)

func (k Kind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Integer:
		return "integer"
	case Categorical:
		return "categorical"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Param is one scalar coordinate of the packed vector.
// Lo and Hi bound continuous and integer params; Choices lists categorical values.
type Param struct {
	Name    string
	Kind    Kind
	Lo      float64
	Hi      float64
	Choices []string
}

// ContinuousParam declares a real-valued parameter on [lo, hi]
func ContinuousParam(name string, lo, hi float64) Param {
	return Param{Name: name, Kind: Continuous, Lo: lo, Hi: hi}
}

// IntegerParam declares an integer parameter on [lo, hi]
func IntegerParam(name string, lo, hi int) Param {
	return Param{Name: name, Kind: Integer, Lo: float64(lo), Hi: float64(hi)}
}

// CategoricalParam declares a parameter over a fixed list of choices
func CategoricalParam(name string, choices ...string) Param {
	return Param{Name: name, Kind: Categorical, Choices: append([]string(nil), choices...)}
}

func (p Param) validate() error {
	if p.Name == "" {
		return fmt.Errorf("parameter name is required")
	}
	switch p.Kind {
	case Continuous, Integer:
		if math.IsNaN(p.Lo) || math.IsNaN(p.Hi) || math.IsInf(p.Lo, 0) || math.IsInf(p.Hi, 0) {
			return fmt.Errorf("parameter %s: bounds must be finite", p.Name)
		}
		if p.Lo > p.Hi {
			return fmt.Errorf("parameter %s: lower bound %g exceeds upper bound %g", p.Name, p.Lo, p.Hi)
		}
		if p.Kind == Integer && (p.Lo != math.Trunc(p.Lo) || p.Hi != math.Trunc(p.Hi)) {
			return fmt.Errorf("parameter %s: integer bounds must be integral, got [%g, %g]", p.Name, p.Lo, p.Hi)
		}
	case Categorical:
		if len(p.Choices) == 0 {
			return fmt.Errorf("parameter %s: at least one choice is required", p.Name)
		}
		seen := make(map[string]bool, len(p.Choices))
		for _, c := range p.Choices {
			if seen[c] {
				return fmt.Errorf("parameter %s: duplicate choice %q", p.Name, c)
			}
			seen[c] = true
		}
	default:
		return fmt.Errorf("parameter %s: unknown kind %s", p.Name, p.Kind)
	}
	return nil
}

// Pack converts a structured value to its scalar encoding
func (p Param) Pack(value any) (float64, error) {
	switch p.Kind {
	case Continuous:
		v, ok := toFloat(value)
		if !ok {
			return 0, &InvalidValueError{Param: p.Name, Value: value, Reason: "expected a number"}
		}
		return v, nil
	case Integer:
		v, ok := toFloat(value)
		if !ok {
			return 0, &InvalidValueError{Param: p.Name, Value: value, Reason: "expected an integer"}
		}
		return math.Trunc(v), nil
	case Categorical:
		s, ok := value.(string)
		if !ok {
			return 0, &InvalidValueError{Param: p.Name, Value: value, Reason: "expected a string choice"}
		}
		for i, c := range p.Choices {
			if c == s {
				return float64(i), nil
			}
		}
		return 0, &InvalidValueError{Param: p.Name, Value: value, Reason: fmt.Sprintf("not one of %v", p.Choices)}
	}
	return 0, fmt.Errorf("parameter %s: unknown kind %s", p.Name, p.Kind)
}

// Unpack converts a scalar back to a structured value:
// float64 for continuous, int for integer and string for categorical.
func (p Param) Unpack(scalar float64) any {
	switch p.Kind {
	case Integer:
		if math.IsNaN(scalar) {
			return int(p.Lo)
		}
		return int(math.Round(scalar))
	case Categorical:
		return p.Choices[p.index(scalar)]
	}
	return scalar
}

// Clip projects a scalar onto the feasible set of the parameter
func (p Param) Clip(scalar float64) float64 {
	switch p.Kind {
	case Integer:
		return math.Round(utils.ClampFloat64(scalar, p.Lo, p.Hi))
	case Categorical:
		return float64(p.index(scalar))
	}
	return utils.ClampFloat64(scalar, p.Lo, p.Hi)
}

// Sample draws one feasible scalar
func (p Param) Sample(rng *utils.RandSource) float64 {
	switch p.Kind {
	case Integer:
		return rng.UniformIntFloat64(p.Lo, p.Hi)
	case Categorical:
		return float64(rng.Intn(len(p.Choices)))
	}
	return rng.UniformFloat64(p.Lo, p.Hi)
}

// Axis returns the grid values of the parameter. Continuous params get n
// evenly spaced values, integers are rounded and deduplicated, and
// categorical params enumerate every choice index.
func (p Param) Axis(n int) []float64 {
	switch p.Kind {
	case Categorical:
		axis := make([]float64, len(p.Choices))
		for i := range axis {
			axis[i] = float64(i)
		}
		return axis
	case Integer:
		var axis []float64
		for _, v := range utils.Linspace(p.Lo, p.Hi, n) {
			r := math.Round(v)
			if len(axis) == 0 || axis[len(axis)-1] != r {
				axis = append(axis, r)
			}
		}
		return axis
	}
	return utils.Linspace(p.Lo, p.Hi, n)
}

func (p Param) index(scalar float64) int {
	if math.IsNaN(scalar) {
		return 0
	}
	return int(utils.ClampFloat64(math.Round(scalar), 0, float64(len(p.Choices)-1)))
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	}
	return 0, false
}
