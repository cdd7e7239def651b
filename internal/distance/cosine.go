package distance

import "math"

const normFloor = 1e-10

// Cosine is the cosine similarity of two feature vectors. Index pairs where
// either side is NaN are skipped; a near-zero norm yields 0.
func Cosine(a, b []float64) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := a[i], b[i]
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		dot += x * y
		na += x * x
		nb += y * y
	}
	na, nb = math.Sqrt(na), math.Sqrt(nb)
	if na <= normFloor || nb <= normFloor {
		return 0
	}
	return dot / (na * nb)
}

// CosineRow compares row i of m against every row, itself included.
func CosineRow(m [][]float64, i int) []float64 {
	out := make([]float64, len(m))
	for j := range m {
		out[j] = Cosine(m[i], m[j])
	}
	return out
}

// CosineMatrix returns the symmetric pairwise similarity matrix of the rows of m.
func CosineMatrix(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i := range out {
		out[i] = make([]float64, len(m))
	}
	for i := range m {
		for j := i; j < len(m); j++ {
			s := Cosine(m[i], m[j])
			out[i][j] = s
			out[j][i] = s
		}
	}
	return out
}
