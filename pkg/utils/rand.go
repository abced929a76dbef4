package utils

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// RandSource is a seeded random number generator safe for concurrent use.
// Solvers own one each so runs with the same seed are reproducible.
type RandSource struct {
	mu   sync.Mutex
	rng  *rand.Rand
	seed int64
}

// NewRandSource creates a new random source with the given seed.
// A zero seed is replaced by the current time.
func NewRandSource(seed int64) *RandSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandSource{
		rng:  rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the effective seed
func (r *RandSource) Seed() int64 {
	return r.seed
}

// Float64 returns a random float64 in [0.0, 1.0)
func (r *RandSource) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

// Intn returns a random int in [0, n)
func (r *RandSource) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

// NormFloat64 returns a normally distributed random number with mean and stddev
func (r *RandSource) NormFloat64(mean, stddev float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.NormFloat64()*stddev + mean
}

// UniformFloat64 returns a uniformly distributed random number in [min, max).
// A degenerate interval returns min.
func (r *RandSource) UniformFloat64(min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + r.Float64()*(max-min)
}

// UniformInt returns a uniformly distributed integer in [lo, hi], both inclusive.
func (r *RandSource) UniformInt(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.Intn(hi-lo+1)
}

// UniformIntFloat64 draws an integer from the closed float interval
// [ceil(lo), floor(hi)] and returns it as float64.
func (r *RandSource) UniformIntFloat64(lo, hi float64) float64 {
	return float64(r.UniformInt(int(math.Ceil(lo)), int(math.Floor(hi))))
}
