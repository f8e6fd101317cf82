package train

import "math"

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// normalized returns v scaled to unit length. A zero vector comes
// back unchanged rather than dividing by zero.
func normalized(v []float64) []float64 {
	norm := math.Sqrt(dot(v, v))
	out := make([]float64, len(v))
	if norm == 0 {
		copy(out, v)
		return out
	}
	for i := range v {
		out[i] = v[i] / norm
	}
	return out
}
