package distance

import "math"

// EuclideanDTW aligns a and b with squared point cost and returns the square
// root of the accumulated cost.
func EuclideanDTW(a, b []float64) float64 {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return 0
	}

	prev := infRow(m + 1)
	curr := infRow(m + 1)
	prev[0] = 0
	for i := 1; i <= n; i++ {
		curr[0] = math.Inf(1)
		for j := 1; j <= m; j++ {
			d := a[i-1] - b[j-1]
			curr[j] = d*d + min(prev[j], curr[j-1], prev[j-1])
		}
		prev, curr = curr, prev
	}
	return math.Sqrt(prev[m])
}

// WindowedDTW aligns a and b with absolute point cost inside a Sakoe-Chiba
// band of half-width w. Cells outside the band stay +Inf.
func WindowedDTW(a, b []float64, w int) float64 {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return 0
	}
	if w < 0 {
		w = 0
	}

	prev := infRow(m + 1)
	curr := infRow(m + 1)
	prev[0] = 0
	for i := 1; i <= n; i++ {
		fillInf(curr)
		lo := max(1, i-w)
		hi := min(m, i+w)
		for j := lo; j <= hi; j++ {
			curr[j] = math.Abs(a[i-1]-b[j-1]) + min(prev[j], curr[j-1], prev[j-1])
		}
		prev, curr = curr, prev
	}
	return prev[m]
}

func infRow(n int) []float64 {
	row := make([]float64, n)
	fillInf(row)
	return row
}

func fillInf(row []float64) {
	for i := range row {
		row[i] = math.Inf(1)
	}
}
