package distance

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Manhattan sums |a[i]-b[i]| over the common length.
func Manhattan(a, b []float64) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	return floats.Distance(a[:n], b[:n], 1)
}

// Canberra sums |a[i]-b[i]| / (|a[i]|+|b[i]|), skipping zero denominators.
func Canberra(a, b []float64) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		den := math.Abs(a[i]) + math.Abs(b[i])
		if den == 0 {
			continue
		}
		sum += math.Abs(a[i]-b[i]) / den
	}
	return sum
}

// Pearson is the correlation coefficient over the common length, or 0 when
// either side has no variance.
func Pearson(a, b []float64) float64 {
	n := min(len(a), len(b))
	if n < 2 {
		return 0
	}
	x, y := a[:n], b[:n]
	if flat(x) || flat(y) {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

func flat(v []float64) bool {
	_, variance := stat.PopMeanVariance(v, nil)
	return variance == 0
}
