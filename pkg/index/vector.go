package index

import "math"

// Vector is a dense embedding. All vectors inside one index share the same length.
type Vector []float32

// Cosine returns the cosine similarity of a and b in [-1, 1].
// A zero-magnitude operand yields 0. Callers guarantee equal lengths.
func Cosine(a, b Vector) float64 {
	var dot, aMag, bMag float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		aMag += x * x
		bMag += y * y
	}
	if aMag == 0 || bMag == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(aMag) * math.Sqrt(bMag))
	// rounding can push identical vectors a hair past 1
	if sim > 1 {
		return 1
	}
	if sim < -1 {
		return -1
	}
	return sim
}

func (v Vector) clone() Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

func (v Vector) finite() bool {
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
