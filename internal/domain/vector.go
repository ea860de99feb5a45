package domain

import "math"

// Vector is a fixed-dimension embedding
type Vector []float32

// Dimensions returns the vector length
func (v Vector) Dimensions() int {
	return len(v)
}

// Cosine returns the cosine similarity between v and o. Mismatched
// dimensions and zero-norm vectors yield 0.
func (v Vector) Cosine(o Vector) float64 {
	if len(v) == 0 || len(v) != len(o) {
		return 0
	}

	var dot, normV, normO float64
	for i := range v {
		a, b := float64(v[i]), float64(o[i])
		dot += a * b
		normV += a * a
		normO += b * b
	}
	if normV == 0 || normO == 0 {
		return 0
	}
	return dot / (math.Sqrt(normV) * math.Sqrt(normO))
}
