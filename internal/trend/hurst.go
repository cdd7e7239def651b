package trend

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Neutral is the random-walk Hurst value returned for degenerate input.
const Neutral = 0.5

const (
	hurstMinLen = 10
	hurstMaxLag = 30
)

// Hurst estimates the Hurst exponent by rescaled-range analysis over
// non-overlapping blocks of size 2..min(30, n/3).
func Hurst(values []float64) float64 {
	n := len(values)
	if n < hurstMinLen {
		return Neutral
	}

	maxLag := min(hurstMaxLag, n/3)
	logLags := make([]float64, 0, maxLag)
	logRS := make([]float64, 0, maxLag)
	for lag := 2; lag <= maxLag; lag++ {
		avg, ok := averageRS(values, lag)
		if !ok {
			continue
		}
		logLags = append(logLags, math.Log(float64(lag)))
		logRS = append(logRS, math.Log(avg))
	}
	if len(logLags) < 2 {
		return Neutral
	}

	_, slope := stat.LinearRegression(logLags, logRS, nil, false)
	if math.IsNaN(slope) || math.IsInf(slope, 0) {
		return Neutral
	}
	return slope
}

// averageRS averages R/S over full blocks of the given size. Blocks with zero
// deviation carry no information and are left out.
func averageRS(values []float64, lag int) (float64, bool) {
	blocks := len(values) / lag
	cum := make([]float64, lag)
	var sum float64
	var used int
	for b := 0; b < blocks; b++ {
		block := values[b*lag : (b+1)*lag]
		mean, std := stat.PopMeanStdDev(block, nil)
		if std == 0 || math.IsNaN(std) {
			continue
		}
		var acc float64
		for i, v := range block {
			acc += v - mean
			cum[i] = acc
		}
		sum += (floats.Max(cum) - floats.Min(cum)) / std
		used++
	}
	if used == 0 || sum <= 0 {
		return 0, false
	}
	return sum / float64(used), true
}
