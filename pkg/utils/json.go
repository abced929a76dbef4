package utils

import "math"

// JSONSafe returns v with NaN and infinite floats replaced by nil so the
// value can be encoded as JSON. Nested maps and slices are copied.
func JSONSafe(v any) any {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		return t
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = JSONSafe(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = JSONSafe(val)
		}
		return out
	case []float64:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = JSONSafe(val)
		}
		return out
	default:
		return v
	}
}
