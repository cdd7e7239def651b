package features

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// FeatureVector summarises one channel of one series.
type FeatureVector struct {
	Count     int
	Mean      float64
	Std       float64
	Min       float64
	Max       float64
	Median    float64
	Q25       float64
	Q75       float64
	Skewness  float64
	Kurtosis  float64
	Range     float64
	First     float64
	Last      float64
	AbsMax    float64
	AbsMean   float64
	PosCount  int
	NegCount  int
	ZeroCount int

	// Trend terms regress the values on their index; nil below two points.
	Slope     *float64
	Intercept *float64
	RValue    *float64
	PValue    *float64
}

// Width is the length of Vector().
const Width = 20

// Extract computes the feature vector of values. It never fails; empty input
// yields the zero vector.
func Extract(values []float64) FeatureVector {
	n := len(values)
	fv := FeatureVector{Count: n}
	if n == 0 {
		return fv
	}

	fv.Mean = stat.Mean(values, nil)
	if n > 1 {
		fv.Std = stat.StdDev(values, nil)
	}
	fv.Min = floats.Min(values)
	fv.Max = floats.Max(values)
	fv.Range = fv.Max - fv.Min
	fv.First = values[0]
	fv.Last = values[n-1]

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	fv.Median = percentile(sorted, 0.50)
	fv.Q25 = percentile(sorted, 0.25)
	fv.Q75 = percentile(sorted, 0.75)

	fv.Skewness, fv.Kurtosis = shape(values)

	abs := make([]float64, n)
	for i, v := range values {
		abs[i] = math.Abs(v)
		switch {
		case v > 0:
			fv.PosCount++
		case v < 0:
			fv.NegCount++
		default:
			fv.ZeroCount++
		}
	}
	fv.AbsMax = floats.Max(abs)
	fv.AbsMean = stat.Mean(abs, nil)

	if n >= 2 {
		slope, intercept, r, p := trend(values)
		fv.Slope, fv.Intercept, fv.RValue, fv.PValue = &slope, &intercept, &r, &p
	}
	return fv
}

// Vector flattens the scoring terms in a fixed column order. Nil trend terms
// become 0 and the p-value is not scored.
func (fv FeatureVector) Vector() []float64 {
	return []float64{
		fv.Mean, fv.Std, fv.Min, fv.Max, fv.Median, fv.Q25, fv.Q75,
		fv.Skewness, fv.Kurtosis, fv.Range, fv.First, fv.Last,
		fv.AbsMax, fv.AbsMean,
		float64(fv.PosCount), float64(fv.NegCount), float64(fv.ZeroCount),
		deref(fv.Slope), deref(fv.Intercept), deref(fv.RValue),
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// percentile interpolates linearly between order statistics at p*(n-1).
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (pos-float64(lo))*(sorted[hi]-sorted[lo])
}

// shape returns population skewness and excess kurtosis. Zero variance gives 0, 0.
func shape(values []float64) (skew, kurt float64) {
	m2 := stat.Moment(2, values, nil)
	if m2 == 0 || math.IsNaN(m2) {
		return 0, 0
	}
	m3 := stat.Moment(3, values, nil)
	m4 := stat.Moment(4, values, nil)
	return m3 / math.Pow(m2, 1.5), m4/(m2*m2) - 3
}

func trend(values []float64) (slope, intercept, r, p float64) {
	n := len(values)
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	intercept, slope = stat.LinearRegression(xs, values, nil, false)

	_, variance := stat.PopMeanVariance(values, nil)
	if variance == 0 {
		// flat values: the fit is exact but r is undefined
		return slope, intercept, 0, 1
	}
	r = stat.Correlation(xs, values, nil)
	return slope, intercept, r, slopePValue(r, n)
}

// slopePValue is the two-sided significance of a non-zero slope.
func slopePValue(r float64, n int) float64 {
	df := float64(n - 2)
	if df <= 0 || math.Abs(r) >= 1 {
		return 0
	}
	t := math.Abs(r) * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * (1 - dist.CDF(t))
}
