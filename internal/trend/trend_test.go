package trend

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"analog-exit/internal/series"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func stamps(n int, step time.Duration) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = base.Add(time.Duration(i) * step).Format(series.TimeLayout)
	}
	return out
}

// zigzag rises to 100, falls to 0, rises to 100 and eases back to 50.
func zigzag() []float64 {
	values := make([]float64, 80)
	for i := range values {
		switch {
		case i <= 20:
			values[i] = 5 * float64(i)
		case i <= 40:
			values[i] = 100 - 5*float64(i-20)
		case i <= 60:
			values[i] = 5 * float64(i-40)
		default:
			values[i] = 100 - 50.0/19*float64(i-60)
		}
	}
	return values
}

// vShape falls 2.5 per step to -100 at index 40, then climbs back at the
// same rate. Its only turning point is the valley.
func vShape() []float64 {
	values := make([]float64, 80)
	for i := range values {
		if i <= 40 {
			values[i] = -2.5 * float64(i)
		} else {
			values[i] = -100 + 2.5*float64(i-40)
		}
	}
	return values
}

func alternating(n int, amplitude float64) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = amplitude
		if i%2 == 1 {
			values[i] = -amplitude
		}
	}
	return values
}

func ramp(n int, slope float64) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = slope * float64(i)
	}
	return values
}

func mustSegmenter(t *testing.T, name string) *Segmenter {
	t.Helper()
	p, err := LookupProfile(name)
	require.NoError(t, err)
	seg, err := NewSegmenter(p)
	require.NoError(t, err)
	return seg
}

func requireCoverage(t *testing.T, segments []Segment, n int) {
	t.Helper()
	require.NotEmpty(t, segments)
	assert.Equal(t, 0, segments[0].StartIndex)
	assert.Equal(t, n-1, segments[len(segments)-1].EndIndex)
	for i, s := range segments {
		assert.LessOrEqual(t, s.StartIndex, s.EndIndex)
		if i > 0 {
			assert.Equal(t, segments[i-1].EndIndex+1, s.StartIndex, "segment %d", i)
		}
	}
}

func TestLookupProfile(t *testing.T) {
	p, err := LookupProfile("Standard")
	require.NoError(t, err)
	assert.Equal(t, 5, p.MaxSegments)
	assert.Equal(t, 30*time.Minute, p.MinDuration)

	_, err = LookupProfile("weekly")
	assert.ErrorIs(t, err, ErrUnknownProfile)

	assert.Equal(t, []string{"fine", "standard", "three-phase"}, ProfileNames())

	_, err = NewSegmenter(Profile{Name: "broken"})
	assert.Error(t, err)
}

func TestSegmentZigzag(t *testing.T) {
	values := zigzag()
	segments, err := mustSegmenter(t, "standard").Segment(values, stamps(len(values), 5*time.Minute))
	require.NoError(t, err)

	requireCoverage(t, segments, len(values))
	require.Len(t, segments, 4)
	assert.Equal(t, []int{0, 20, 40, 60}, []int{
		segments[0].StartIndex, segments[1].StartIndex, segments[2].StartIndex, segments[3].StartIndex,
	})
	assert.Equal(t, TrendingUp, segments[0].Trend)
	assert.Equal(t, TrendingDown, segments[1].Trend)
	assert.Equal(t, TrendingDown, segments[3].Trend)
	assert.Equal(t, 95*time.Minute, segments[0].Duration)
	assert.Equal(t, 20, segments[0].Len())
}

func TestSegmentCapMergesOldest(t *testing.T) {
	values := zigzag()
	segments, err := mustSegmenter(t, "three-phase").Segment(values, stamps(len(values), 5*time.Minute))
	require.NoError(t, err)

	requireCoverage(t, segments, len(values))
	require.Len(t, segments, 3)
	assert.Equal(t, 0, segments[0].StartIndex)
	assert.Equal(t, 39, segments[0].EndIndex)
	assert.Equal(t, 60, segments[2].StartIndex)
}

func TestSegmentDurationFilter(t *testing.T) {
	values := zigzag()
	segments, err := mustSegmenter(t, "standard").Segment(values, stamps(len(values), time.Minute))
	require.NoError(t, err)

	requireCoverage(t, segments, len(values))
	require.Len(t, segments, 3)
	assert.Equal(t, 20, segments[1].StartIndex)
	assert.Equal(t, 60, segments[2].StartIndex)
}

func TestSegmentKeepsSingleSurvivingBoundary(t *testing.T) {
	values := vShape()
	segments, err := mustSegmenter(t, "standard").Segment(values, stamps(len(values), 5*time.Minute))
	require.NoError(t, err)

	requireCoverage(t, segments, len(values))
	require.Len(t, segments, 2)
	assert.Equal(t, 40, segments[1].StartIndex)
	assert.Equal(t, TrendingDown, segments[0].Trend)
	assert.Equal(t, TrendingUp, segments[1].Trend)

	s := &series.Series{OrderID: "v", Returns: values, ValueTime: stamps(len(values), 5*time.Minute)}
	label, err := Confirm(s, 0.8, mustSegmenter(t, "standard"))
	require.NoError(t, err)
	assert.Equal(t, TrendingUp, label)
}

func TestSegmentWithoutTurningPointsIsSingle(t *testing.T) {
	values := ramp(50, 0.01)
	segments, err := mustSegmenter(t, "standard").Segment(values, stamps(len(values), 5*time.Minute))
	require.NoError(t, err)
	require.Len(t, segments, 1)
	requireCoverage(t, segments, len(values))
}

func TestSegmentCoverageProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, name := range ProfileNames() {
		seg := mustSegmenter(t, name)
		for trial := 0; trial < 25; trial++ {
			n := 2 + rng.Intn(300)
			values := make([]float64, n)
			for i := 1; i < n; i++ {
				values[i] = values[i-1] + rng.NormFloat64()*15
			}
			segments, err := seg.Segment(values, stamps(n, time.Duration(1+rng.Intn(10))*time.Minute))
			require.NoError(t, err)
			requireCoverage(t, segments, n)
			assert.LessOrEqual(t, len(segments), seg.Profile().MaxSegments, "profile %s trial %d", name, trial)
		}
	}
}

func TestSegmentRejectsBadTimestamps(t *testing.T) {
	seg := mustSegmenter(t, "standard")

	times := stamps(5, time.Minute)
	times[3] = "2024/03/01 09:03"
	_, err := seg.Segment([]float64{1, 2, 3, 4, 5}, times)
	require.Error(t, err)

	_, err = seg.Segment([]float64{1, 2}, stamps(3, time.Minute))
	assert.ErrorIs(t, err, series.ErrLengthMismatch)
}

func TestHurst(t *testing.T) {
	assert.Equal(t, Neutral, Hurst([]float64{1, 2, 3}))
	assert.Equal(t, Neutral, Hurst(make([]float64, 50)))
	assert.Greater(t, Hurst(ramp(120, 1)), 0.9)
	assert.Less(t, Hurst(alternating(120, 1)), 0.5)

	h := Hurst([]float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 2, 1})
	assert.False(t, math.IsNaN(h))
}

func TestThreshold(t *testing.T) {
	assert.Equal(t, 0.10, Threshold(0))
	assert.InDelta(t, 0.15, Threshold(45), 1e-12)
	assert.Equal(t, 0.20, Threshold(100))
}

func TestClassify(t *testing.T) {
	standard := DefaultProfile()
	fine, err := LookupProfile("fine")
	require.NoError(t, err)

	tests := []struct {
		name    string
		values  []float64
		profile Profile
		want    Label
	}{
		{"too short", []float64{1, 2}, standard, InsufficientData},
		{"steep rise", ramp(20, 1), standard, TrendingUp},
		{"steep fall", ramp(20, -1), standard, TrendingDown},
		{"wide range", alternating(200, 50), standard, WideRange},
		{"narrow range", alternating(200, 1), standard, NarrowRange},
		{"mild range", alternating(200, 5), fine, MildRange},
		{"minor rise", ramp(10, 0.08), fine, MinorUp},
		{"minor rise ignored", ramp(10, 0.08), standard, NarrowRange},
		{"minor fall", ramp(10, -0.08), fine, MinorDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.values, tt.profile))
		})
	}
}

func TestStrengthAndPersistence(t *testing.T) {
	assert.Equal(t, Strong, StrengthOf(-31))
	assert.Equal(t, Medium, StrengthOf(16))
	assert.Equal(t, Weak, StrengthOf(15))

	assert.Equal(t, Strong, Persistence(0.7))
	assert.Equal(t, Medium, Persistence(0.6))
	assert.Equal(t, Weak, Persistence(0.55))
}

func TestMaxDrawdown(t *testing.T) {
	assert.Equal(t, -100.0, MaxDrawdown([]float64{0, -10, -50, -100}))
	assert.Equal(t, -30.0, MaxDrawdown([]float64{12, -30, 40, 5}))
	assert.Equal(t, 90.0, MaxDrawdown([]float64{100, 120, 90, 110}))
	assert.Equal(t, 0.0, MaxDrawdown(nil))
}

func TestSegmentDrawdownOnLosingStretch(t *testing.T) {
	values := vShape()
	segments, err := mustSegmenter(t, "standard").Segment(values, stamps(len(values), 5*time.Minute))
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, -97.5, segments[0].MaxDrawdown)
	assert.Equal(t, -100.0, segments[1].MaxDrawdown)
}

func TestEvaluateOverall(t *testing.T) {
	up := EvaluateOverall(ramp(100, 1))
	assert.Equal(t, TrendingUp, up.Trend)
	assert.Equal(t, Strong, up.Persistence)
	assert.InDelta(t, 49.5, up.AverageReturn, 1e-9)

	down := EvaluateOverall(ramp(100, -1))
	assert.Equal(t, TrendingDown, down.Trend)

	flat := EvaluateOverall(make([]float64, 30))
	assert.Equal(t, Range, flat.Trend)
	assert.Equal(t, Neutral, flat.Hurst)
	assert.Equal(t, Weak, flat.Persistence)

	assert.Equal(t, InsufficientData, EvaluateOverall(nil).Trend)
}

func TestConfirm(t *testing.T) {
	seg := mustSegmenter(t, "standard")
	values := zigzag()
	s := &series.Series{OrderID: "42", Returns: values, ValueTime: stamps(len(values), 5*time.Minute)}

	label, err := Confirm(s, 1, seg)
	require.NoError(t, err)
	assert.Equal(t, TrendingDown, label)

	label, err = Confirm(s, 0.8, seg)
	require.NoError(t, err)
	assert.Equal(t, TrendingUp, label)

	short := &series.Series{OrderID: "7", Returns: values[:50], ValueTime: stamps(50, 5*time.Minute)}
	label, err = Confirm(short, 0.8, seg)
	require.NoError(t, err)
	assert.Equal(t, InsufficientData, label)

	_, err = Confirm(s, 0, seg)
	assert.ErrorIs(t, err, series.ErrInvalidRatio)
}

func ExampleClassify() {
	fmt.Println(Classify([]float64{0, 1, 2, 3, 4}, DefaultProfile()))
	// Output: trending-up
}
