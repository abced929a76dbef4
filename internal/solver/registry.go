package solver

import (
	"fmt"
	"strings"

	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/space"
)

// Kind names a search strategy
type Kind string

const (
	KindRandom   Kind = "random"
	KindGrid     Kind = "grid"
	KindCMAES    Kind = "cmaes"
	KindBayesian Kind = "bayesian"
	KindNSGA2    Kind = "nsga2"
	KindGradient Kind = "gradient"
	KindParEGO   Kind = "parego"
)

// Kinds lists every known strategy name, implemented or not
func Kinds() []Kind {
	return []Kind{KindRandom, KindGrid, KindCMAES, KindBayesian, KindNSGA2, KindGradient, KindParEGO}
}

// Options configures New
type Options struct {
	Direction Direction
	Seed      int64
	// GridPoints is the number of values per continuous axis for grid search
	GridPoints int
}

// NotImplementedError is returned for strategies that are declared but not built
type NotImplementedError struct {
	Kind Kind
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("solver %q is not implemented", string(e.Kind))
}

// UnknownSolverError is returned for names outside Kinds()
type UnknownSolverError struct {
	Name string
}

func (e *UnknownSolverError) Error() string {
	names := make([]string, 0, len(Kinds()))
	for _, k := range Kinds() {
		names = append(names, string(k))
	}
	return fmt.Sprintf("unknown solver %q (known: %s)", e.Name, strings.Join(names, ", "))
}

// ParseKind canonicalizes a strategy name
func ParseKind(name string) (Kind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "random_search", "randomsearch":
		n = string(KindRandom)
	case "grid_search", "gridsearch":
		n = string(KindGrid)
	case "cma", "cma-es", "cma_es":
		n = string(KindCMAES)
	case "nsga-ii", "nsga_ii":
		n = string(KindNSGA2)
	}
	for _, k := range Kinds() {
		if string(k) == n {
			return k, nil
		}
	}
	return "", &UnknownSolverError{Name: name}
}

// New builds a solver over sp
func New(kind Kind, sp *space.SearchSpace, opts Options) (Solver, error) {
	switch kind {
	case KindRandom:
		return NewRandomSearch(sp, opts.Direction, opts.Seed), nil
	case KindGrid:
		return NewGridSearch(sp, opts.Direction, opts.GridPoints, opts.Seed), nil
	case KindCMAES, KindBayesian, KindNSGA2, KindGradient, KindParEGO:
		return nil, &NotImplementedError{Kind: kind}
	}
	return nil, &UnknownSolverError{Name: string(kind)}
}
