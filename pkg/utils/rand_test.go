package utils

import (
	"math"
	"sync"
	"testing"
)

func TestNewRandSource(t *testing.T) {
	rng := NewRandSource(12345)
	if rng.Seed() != 12345 {
		t.Fatalf("expected seed 12345, got %d", rng.Seed())
	}

	// Zero seed falls back to the clock
	if NewRandSource(0).Seed() == 0 {
		t.Fatal("expected a non-zero effective seed")
	}
}

func TestRandSourceUniformFloat64(t *testing.T) {
	rng := NewRandSource(12345)
	min := 20.0
	max := 300.0

	for i := 0; i < 1000; i++ {
		val := rng.UniformFloat64(min, max)
		if val < min || val >= max {
			t.Errorf("UniformFloat64(%f, %f) returned value outside range: %f", min, max, val)
		}
	}

	if got := rng.UniformFloat64(5, 5); got != 5 {
		t.Errorf("degenerate interval should return min, got %f", got)
	}
}

func TestRandSourceUniformInt(t *testing.T) {
	rng := NewRandSource(7)
	seen := make(map[int]bool)

	for i := 0; i < 2000; i++ {
		val := rng.UniformInt(-2, 3)
		if val < -2 || val > 3 {
			t.Fatalf("UniformInt(-2, 3) returned %d", val)
		}
		seen[val] = true
	}
	// Both endpoints are inclusive
	for v := -2; v <= 3; v++ {
		if !seen[v] {
			t.Errorf("value %d never drawn", v)
		}
	}
}

func TestRandSourceUniformIntFloat64(t *testing.T) {
	rng := NewRandSource(7)
	for i := 0; i < 200; i++ {
		val := rng.UniformIntFloat64(0.5, 4.5)
		if val != math.Trunc(val) || val < 1 || val > 4 {
			t.Fatalf("UniformIntFloat64(0.5, 4.5) returned %f", val)
		}
	}
}

func TestRandSourceNormFloat64(t *testing.T) {
	rng := NewRandSource(12345)
	sum := 0.0
	n := 2000
	for i := 0; i < n; i++ {
		sum += rng.NormFloat64(10, 2)
	}
	if mean := sum / float64(n); math.Abs(mean-10) > 0.5 {
		t.Errorf("NormFloat64 mean %f not close to 10", mean)
	}
}

func TestDeterministicBehavior(t *testing.T) {
	rng1 := NewRandSource(999)
	rng2 := NewRandSource(999)

	for i := 0; i < 10; i++ {
		val1 := rng1.Float64()
		val2 := rng2.Float64()
		if val1 != val2 {
			t.Errorf("Same seed should produce same sequence: %f != %f", val1, val2)
		}
	}
}

func TestConcurrentAccess(t *testing.T) {
	rng := NewRandSource(12345)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = rng.Float64()
				_ = rng.Intn(100)
				_ = rng.UniformInt(0, 10)
				_ = rng.NormFloat64(0, 1)
			}
		}()
	}
	wg.Wait()
}
