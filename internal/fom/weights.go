package fom

import "math"

// UniformWeights returns n ones
func UniformWeights(n int) []float64 {
	if n <= 0 {
		return nil
	}
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return w
}

// QPowerWeights returns Q^p per point. Positive p emphasizes high Q where the
// reflectivity is weakest.
func QPowerWeights(q []float64, p float64) []float64 {
	w := make([]float64, len(q))
	for i, v := range q {
		w[i] = math.Pow(v, p)
	}
	return w
}
