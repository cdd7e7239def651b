package trend

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Label names the trend character of a stretch of values.
type Label string

const (
	TrendingUp       Label = "trending-up"
	TrendingDown     Label = "trending-down"
	MinorUp          Label = "minor-up"
	MinorDown        Label = "minor-down"
	WideRange        Label = "wide-range"
	MildRange        Label = "mild-range"
	NarrowRange      Label = "narrow-range"
	Range            Label = "range"
	InsufficientData Label = "insufficient-data"
)

// Strength grades a trend or its persistence.
type Strength string

const (
	Weak   Strength = "weak"
	Medium Strength = "medium"
	Strong Strength = "strong"
)

const (
	minClassifyPoints = 3
	thresholdFloor    = 0.10
	thresholdCeiling  = 0.20
	thresholdDivisor  = 300.0
)

// Threshold is the slope magnitude that separates trends from ranges; it
// scales with volatility inside [0.10, 0.20].
func Threshold(volatility float64) float64 {
	return math.Max(thresholdFloor, math.Min(thresholdCeiling, volatility/thresholdDivisor))
}

// Slope is the OLS slope of values against their index.
func Slope(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	xs := make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, beta := stat.LinearRegression(xs, values, nil, false)
	return beta
}

// Volatility is the population standard deviation of values.
func Volatility(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	_, std := stat.PopMeanStdDev(values, nil)
	return std
}

// Classify labels a segment by slope and volatility under the given profile.
func Classify(values []float64, p Profile) Label {
	if len(values) < minClassifyPoints {
		return InsufficientData
	}

	slope := Slope(values)
	vol := Volatility(values)
	threshold := Threshold(vol)

	switch {
	case math.Abs(slope) > threshold:
		return direction(slope, TrendingUp, TrendingDown)
	case p.MinorTrends && math.Abs(slope) > threshold/2:
		return direction(slope, MinorUp, MinorDown)
	case vol > p.WideVolatility:
		return WideRange
	case p.NarrowVolatility > 0 && vol >= p.NarrowVolatility:
		return MildRange
	default:
		return NarrowRange
	}
}

func direction(slope float64, up, down Label) Label {
	if slope > 0 {
		return up
	}
	return down
}

// StrengthOf grades the absolute mean return of a segment.
func StrengthOf(meanReturn float64) Strength {
	switch m := math.Abs(meanReturn); {
	case m > 30:
		return Strong
	case m > 15:
		return Medium
	default:
		return Weak
	}
}

// Persistence grades a Hurst exponent.
func Persistence(hurst float64) Strength {
	switch {
	case hurst > 0.65:
		return Strong
	case hurst > 0.55:
		return Medium
	default:
		return Weak
	}
}

// MaxDrawdown is the lowest value reached in the window, in the units of
// the series (bps for returns). Empty windows report 0.
func MaxDrawdown(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return floats.Min(values)
}

// Overall is the whole-series trend evaluation.
type Overall struct {
	Trend         Label
	AverageReturn float64
	Hurst         float64
	Volatility    float64
	Persistence   Strength
}

// EvaluateOverall applies the slope threshold to the whole series.
func EvaluateOverall(values []float64) Overall {
	if len(values) == 0 {
		return Overall{Trend: InsufficientData, Hurst: Neutral, Persistence: Weak}
	}

	slope := Slope(values)
	vol := Volatility(values)
	hurst := Hurst(values)
	threshold := Threshold(vol)

	label := Range
	switch {
	case slope > threshold:
		label = TrendingUp
	case slope < -threshold:
		label = TrendingDown
	}

	return Overall{
		Trend:         label,
		AverageReturn: stat.Mean(values, nil),
		Hurst:         hurst,
		Volatility:    vol,
		Persistence:   Persistence(hurst),
	}
}
