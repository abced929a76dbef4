package solver

import (
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/space"
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/pkg/utils"
)

// DefaultGridPoints is the number of values per continuous axis
const DefaultGridPoints = 5

// GridSearch walks the Cartesian product of the parameter axes in fixed
// column order, last column fastest, then falls back to random sampling.
type GridSearch struct {
	tracker
	points int
	seed   int64
	rng    *utils.RandSource
	grid   [][]float64
	next   int
}

// NewGridSearch builds the grid with points values per continuous axis
func NewGridSearch(sp *space.SearchSpace, direction Direction, points int, seed int64) *GridSearch {
	if points < 1 {
		points = DefaultGridPoints
	}
	rng := utils.NewRandSource(seed)
	g := &GridSearch{
		tracker: tracker{space: sp, direction: direction},
		points:  points,
		seed:    rng.Seed(),
	}
	g.Reset()
	return g
}

func (g *GridSearch) Name() string { return string(KindGrid) }

// Size returns the number of grid points
func (g *GridSearch) Size() int { return len(g.grid) }

// Exhausted reports whether every grid point has been asked
func (g *GridSearch) Exhausted() bool { return g.next >= len(g.grid) }

func (g *GridSearch) Ask(n int) ([][]float64, error) {
	if n < 1 {
		return nil, ErrInvalidBatch
	}
	out := make([][]float64, 0, n)
	for len(out) < n && g.next < len(g.grid) {
		out = append(out, append([]float64(nil), g.grid[g.next]...))
		g.next++
	}
	if missing := n - len(out); missing > 0 {
		out = append(out, g.space.Sample(missing, g.rng)...)
	}
	return out, nil
}

func (g *GridSearch) Tell(vectors [][]float64, values []float64) error {
	return g.tell(vectors, values)
}

// Reset rewinds to the first grid point
func (g *GridSearch) Reset() {
	g.reset()
	g.grid = space.Product(g.space.Grid(g.points))
	g.next = 0
	g.rng = utils.NewRandSource(g.seed)
}

func (g *GridSearch) Best() (Incumbent, bool) { return g.incumbent() }
