package distance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	seriesA = []float64{0.1, 0.4, -0.2, 0.8, 1.3, 0.9, 1.7, 2.1, 1.6, 2.4}
	seriesB = []float64{0.0, 0.2, 0.5, 0.3, 0.9, 1.4, 1.2, 1.8, 2.6, 2.2, 2.9, 3.1}
)

func TestParseMetric(t *testing.T) {
	for _, m := range Metrics() {
		got, err := ParseMetric(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}

	got, err := ParseMetric(" DTW ")
	require.NoError(t, err)
	assert.Equal(t, EuclideanDTWMetric, got)

	_, err = ParseMetric("chebyshev")
	assert.ErrorIs(t, err, ErrUnknownMetric)

	_, err = Compute(Metric("bogus"), seriesA, seriesB, DefaultBand)
	assert.ErrorIs(t, err, ErrUnknownMetric)
}

func TestTruncate(t *testing.T) {
	x, y, err := Truncate(seriesA, seriesB, 0.5)
	require.NoError(t, err)
	assert.Len(t, x, 5)
	assert.Len(t, y, 5)

	x, y, err = Truncate([]float64{1, 2, 3}, []float64{4, 5, 6}, 0.01)
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, x)
	assert.Equal(t, []float64{4}, y)

	for _, ratio := range []float64{0, -1, 1.5, math.NaN()} {
		_, _, err := Truncate(seriesA, seriesB, ratio)
		assert.ErrorIs(t, err, ErrInvalidRatio, "ratio %v", ratio)
	}
}

func TestPartialFullRatioMatchesCompute(t *testing.T) {
	a, b, err := Truncate(seriesA, seriesB, 1)
	require.NoError(t, err)

	for _, m := range Metrics() {
		full, err := Compute(m, a, b, DefaultBand)
		require.NoError(t, err)
		partial, err := Partial(m, seriesA, seriesB, 1, DefaultBand)
		require.NoError(t, err)
		assert.Equal(t, full, partial, "metric %s", m)
	}
}

func TestMetricsAreSymmetric(t *testing.T) {
	for _, m := range Metrics() {
		ab, err := Partial(m, seriesA, seriesB, 0.8, DefaultBand)
		require.NoError(t, err)
		ba, err := Partial(m, seriesB, seriesA, 0.8, DefaultBand)
		require.NoError(t, err)
		assert.InDelta(t, ab, ba, 1e-12, "metric %s", m)
	}

	assert.InDelta(t, EuclideanDTW(seriesA, seriesB), EuclideanDTW(seriesB, seriesA), 1e-12)
}

func TestSelfDistanceIsZero(t *testing.T) {
	assert.Equal(t, 0.0, EuclideanDTW(seriesA, seriesA))
	assert.Equal(t, 0.0, WindowedDTW(seriesA, seriesA, DefaultBand))
	assert.Equal(t, 0.0, Manhattan(seriesA, seriesA))
	assert.Equal(t, 0.0, Canberra(seriesA, seriesA))
	assert.InDelta(t, 1.0, Pearson(seriesA, seriesA), 1e-12)
}

func TestEuclideanDTW(t *testing.T) {
	assert.InDelta(t, math.Sqrt2, EuclideanDTW([]float64{0, 0}, []float64{1, 1}), 1e-12)
	assert.Equal(t, 0.0, EuclideanDTW([]float64{1, 2, 3}, []float64{1, 2, 2, 3}))
	assert.Equal(t, 0.0, EuclideanDTW(nil, []float64{1}))
}

func TestWindowedDTW(t *testing.T) {
	a := []float64{1, 3, 2, 5}
	b := []float64{2, 2, 4, 4}

	// a zero band forces the diagonal path
	assert.Equal(t, Manhattan(a, b), WindowedDTW(a, b, 0))
	assert.LessOrEqual(t, WindowedDTW(a, b, DefaultBand), WindowedDTW(a, b, 0))

	// the corner is unreachable when the band cannot bridge the length gap
	assert.True(t, math.IsInf(WindowedDTW([]float64{1, 2, 3}, []float64{1, 2, 2, 3, 3}, 1), 1))
}

func TestManhattan(t *testing.T) {
	assert.Equal(t, 3.0, Manhattan([]float64{1, 2, 3}, []float64{2, 2, 5}))
	assert.Equal(t, 1.0, Manhattan([]float64{1, 2, 3}, []float64{2}))
}

func TestCanberraSkipsZeroDenominators(t *testing.T) {
	assert.Equal(t, 0.5, Canberra([]float64{0, 1}, []float64{0, 3}))
	assert.Equal(t, 0.0, Canberra([]float64{0, 0}, []float64{0, 0}))
}

func TestPearson(t *testing.T) {
	assert.InDelta(t, -1.0, Pearson([]float64{1, 2, 3}, []float64{3, 2, 1}), 1e-12)
	assert.Equal(t, 0.0, Pearson([]float64{1, 1, 1}, []float64{1, 2, 3}))
	assert.Equal(t, 0.0, Pearson([]float64{1}, []float64{2}))
}

func TestCosine(t *testing.T) {
	v := []float64{1, 2, 3}
	assert.InDelta(t, 1.0, Cosine(v, v), 1e-12)
	assert.InDelta(t, 0.0, Cosine([]float64{1, 0}, []float64{0, 1}), 1e-12)
	assert.Equal(t, 0.0, Cosine([]float64{0, 0}, v))

	withNaN := []float64{1, math.NaN(), 3}
	assert.InDelta(t, Cosine([]float64{1, 3}, []float64{1, 3}), Cosine(withNaN, v), 1e-12)
	assert.False(t, math.IsNaN(Cosine(withNaN, withNaN)))
}

func TestCosineMatrixIsSymmetric(t *testing.T) {
	m := [][]float64{{1, 2, 3}, {-1, 0, 4}, {2, 2, math.NaN()}}
	sim := CosineMatrix(m)

	for i := range m {
		assert.InDelta(t, 1.0, sim[i][i], 1e-12)
		for j := range m {
			assert.Equal(t, sim[i][j], sim[j][i])
		}
		assert.Equal(t, sim[i], CosineRow(m, i))
	}
}
