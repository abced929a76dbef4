package solver

import (
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/internal/space"
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/pkg/utils"
)

// RandomSearch samples the space uniformly and ignores history
type RandomSearch struct {
	tracker
	seed int64
	rng  *utils.RandSource
}

// NewRandomSearch creates a seeded random search. Seed 0 picks a time-based seed.
func NewRandomSearch(sp *space.SearchSpace, direction Direction, seed int64) *RandomSearch {
	rng := utils.NewRandSource(seed)
	return &RandomSearch{
		tracker: tracker{space: sp, direction: direction},
		seed:    rng.Seed(),
		rng:     rng,
	}
}

func (s *RandomSearch) Name() string { return string(KindRandom) }

// Seed returns the effective seed
func (s *RandomSearch) Seed() int64 { return s.seed }

func (s *RandomSearch) Ask(n int) ([][]float64, error) {
	if n < 1 {
		return nil, ErrInvalidBatch
	}
	return s.space.Sample(n, s.rng), nil
}

func (s *RandomSearch) Tell(vectors [][]float64, values []float64) error {
	return s.tell(vectors, values)
}

// Reset clears the incumbent and rewinds the generator to the seed
func (s *RandomSearch) Reset() {
	s.reset()
	s.rng = utils.NewRandSource(s.seed)
}

func (s *RandomSearch) Best() (Incumbent, bool) { return s.incumbent() }
