package solver

import (
	"context"

	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/space"
)

// VectorFunc evaluates a packed vector
type VectorFunc func(ctx context.Context, vec []float64) (float64, error)

// MultiVectorFunc evaluates several objectives at a packed vector
type MultiVectorFunc func(ctx context.Context, vec []float64) ([]float64, error)

// ObjectiveFunc adapts a problem to a function over packed vectors.
// The vector is clipped into the space before it is unpacked.
func ObjectiveFunc(p Problem, objective string) VectorFunc {
	sp := p.SearchSpace()
	return func(ctx context.Context, vec []float64) (float64, error) {
		_, params, err := prepare(sp, vec)
		if err != nil {
			return 0, err
		}
		return p.EvaluateObjective(ctx, params, objective)
	}
}

// MultiObjectiveFunc returns one value per objective, in the given order
func MultiObjectiveFunc(p Problem, objectives []string) MultiVectorFunc {
	sp := p.SearchSpace()
	names := append([]string(nil), objectives...)
	return func(ctx context.Context, vec []float64) ([]float64, error) {
		_, params, err := prepare(sp, vec)
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(names))
		for i, name := range names {
			v, err := p.EvaluateObjective(ctx, params, name)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
}

func prepare(sp *space.SearchSpace, vec []float64) ([]float64, space.Values, error) {
	clipped, err := sp.Clip(vec)
	if err != nil {
		return nil, nil, err
	}
	params, err := sp.Unpack(clipped)
	if err != nil {
		return nil, nil, err
	}
	return clipped, params, nil
}
