package features

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Epsilon keeps standardisation finite for constant columns.
const Epsilon = 1e-8

// Scaled is a column-standardised matrix together with the fitted parameters.
type Scaled struct {
	Matrix [][]float64
	Means  []float64
	Stds   []float64
}

// Standardize z-scores each column using its mean and population standard
// deviation. The input is left untouched.
func Standardize(matrix [][]float64) Scaled {
	if len(matrix) == 0 {
		return Scaled{Matrix: [][]float64{}}
	}

	cols := len(matrix[0])
	means := make([]float64, cols)
	stds := make([]float64, cols)
	column := make([]float64, len(matrix))
	for c := 0; c < cols; c++ {
		for r, row := range matrix {
			column[r] = row[c]
		}
		means[c], stds[c] = stat.PopMeanStdDev(column, nil)
	}

	out := Scaled{Matrix: make([][]float64, len(matrix)), Means: means, Stds: stds}
	for r, row := range matrix {
		out.Matrix[r] = out.Transform(row)
	}
	return out
}

// Transform applies the fitted parameters to a single row.
func (s Scaled) Transform(row []float64) []float64 {
	res := make([]float64, len(row))
	for i, v := range row {
		res[i] = (v - s.Means[i]) / (s.Stds[i] + Epsilon)
	}
	return res
}

// LogReturns converts a row into ln(x[i]/x[i-1]); the result is one shorter.
// Non-positive ratios produce NaN.
func LogReturns(row []float64) []float64 {
	if len(row) < 2 {
		return []float64{}
	}
	res := make([]float64, len(row)-1)
	for i := 1; i < len(row); i++ {
		res[i-1] = math.Log(row[i] / row[i-1])
	}
	return res
}

// PreprocessPriceLike log-returns every row, then standardises the result.
func PreprocessPriceLike(matrix [][]float64) Scaled {
	returns := make([][]float64, len(matrix))
	for i, row := range matrix {
		returns[i] = LogReturns(row)
	}
	return Standardize(returns)
}
