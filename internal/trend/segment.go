package trend

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"analog-exit/internal/series"
)

// Segment is an inclusive index range of a series with its statistics.
type Segment struct {
	StartIndex  int
	EndIndex    int
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	Trend       Label
	Hurst       float64
	MeanReturn  float64
	MaxDrawdown float64
	Volatility  float64
	Strength    Strength
}

// Len is the number of observations covered.
func (s Segment) Len() int {
	return s.EndIndex - s.StartIndex + 1
}

// Segmenter splits a series at significant turning points.
type Segmenter struct {
	profile Profile
}

// NewSegmenter validates the profile and builds a segmenter.
func NewSegmenter(p Profile) (*Segmenter, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Segmenter{profile: p}, nil
}

// Profile returns the active profile.
func (s *Segmenter) Profile() Profile {
	return s.profile
}

// Segment partitions values into contiguous, non-overlapping segments that
// together cover every index. Malformed timestamps fail the call.
func (s *Segmenter) Segment(values []float64, valueTime []string) ([]Segment, error) {
	if len(values) != len(valueTime) {
		return nil, fmt.Errorf("%w: %d values, %d timestamps", series.ErrLengthMismatch, len(values), len(valueTime))
	}
	if len(values) == 0 {
		return nil, nil
	}
	times, err := series.ParseTimes(valueTime)
	if err != nil {
		return nil, err
	}

	bounds := s.Boundaries(values, times)
	segments := make([]Segment, 0, len(bounds)+1)
	start := 0
	for _, b := range bounds {
		segments = append(segments, s.describe(values, times, start, b-1))
		start = b
	}
	segments = append(segments, s.describe(values, times, start, len(values)-1))
	return segments, nil
}

// Boundaries returns the sorted start indices of every segment after the
// first. The count is capped at MaxSegments-1 by dropping the oldest.
func (s *Segmenter) Boundaries(values []float64, times []time.Time) []int {
	n := len(values)
	if n < 3 {
		return nil
	}

	points := turningPoints(values, s.profile.Prominence)
	points = significant(values, points, s.profile.PriceChange)
	points = spaced(points, s.profile.MinInterval)
	points = lasting(points, times, s.profile.MinDuration)

	if limit := s.profile.MaxSegments - 1; len(points) > limit {
		points = points[len(points)-limit:]
	}
	return points
}

func (s *Segmenter) describe(values []float64, times []time.Time, start, end int) Segment {
	window := values[start : end+1]
	seg := Segment{
		StartIndex:  start,
		EndIndex:    end,
		StartTime:   times[start],
		EndTime:     times[end],
		Duration:    times[end].Sub(times[start]),
		Trend:       Classify(window, s.profile),
		Hurst:       Hurst(window),
		MeanReturn:  stat.Mean(window, nil),
		MaxDrawdown: MaxDrawdown(window),
		Volatility:  Volatility(window),
	}
	seg.Strength = StrengthOf(seg.MeanReturn)
	return seg
}

// turningPoints returns interior peaks and valleys whose prominence reaches
// the threshold, in index order.
func turningPoints(values []float64, prominence float64) []int {
	inverted := make([]float64, len(values))
	floats.ScaleTo(inverted, -1, values)

	set := make(map[int]struct{})
	for _, i := range peaks(values, prominence) {
		set[i] = struct{}{}
	}
	for _, i := range peaks(inverted, prominence) {
		set[i] = struct{}{}
	}
	out := make([]int, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// peaks finds strict local maxima rising at least prominence above the
// higher of the minima on either side.
func peaks(values []float64, prominence float64) []int {
	n := len(values)
	if n < 3 {
		return nil
	}
	leftMin := make([]float64, n)
	rightMin := make([]float64, n)
	leftMin[0] = math.Inf(1)
	for i := 1; i < n; i++ {
		leftMin[i] = math.Min(leftMin[i-1], values[i-1])
	}
	rightMin[n-1] = math.Inf(1)
	for i := n - 2; i >= 0; i-- {
		rightMin[i] = math.Min(rightMin[i+1], values[i+1])
	}

	var out []int
	for i := 1; i < n-1; i++ {
		if values[i] <= values[i-1] || values[i] <= values[i+1] {
			continue
		}
		if values[i]-math.Max(leftMin[i], rightMin[i]) >= prominence {
			out = append(out, i)
		}
	}
	return out
}

// significant keeps points that move more than threshold away from the last
// kept point, starting from index 0.
func significant(values []float64, points []int, threshold float64) []int {
	var out []int
	last := 0
	for _, p := range points {
		if math.Abs(values[p]-values[last]) > threshold {
			out = append(out, p)
			last = p
		}
	}
	return out
}

// spaced drops points closer than minInterval to the previously kept one.
func spaced(points []int, minInterval int) []int {
	var out []int
	for _, p := range points {
		if len(out) == 0 || p-out[len(out)-1] >= minInterval {
			out = append(out, p)
		}
	}
	return out
}

// lasting drops points reached less than minDuration after the previously
// accepted one. Fewer than two survivors fall back to the last candidate as
// the only boundary.
func lasting(points []int, times []time.Time, minDuration time.Duration) []int {
	if len(points) == 0 {
		return nil
	}
	out := []int{points[0]}
	lastTime := times[points[0]]
	for _, p := range points[1:] {
		if times[p].Sub(lastTime) >= minDuration {
			out = append(out, p)
			lastTime = times[p]
		}
	}
	if len(out) < 2 {
		return []int{points[len(points)-1]}
	}
	return out
}

// Confirm labels the most recent segment of the leading ratio of the
// returns history. Histories shorter than the profile minimum are
// insufficient.
func Confirm(s *series.Series, ratio float64, seg *Segmenter) (Label, error) {
	if s.Len() < seg.profile.MinPoints {
		return InsufficientData, nil
	}
	view, err := s.View(ratio)
	if err != nil {
		return "", err
	}
	segments, err := seg.Segment(view.Returns, view.ValueTime)
	if err != nil {
		return "", fmt.Errorf("segment order %s: %w", s.OrderID, err)
	}
	if len(segments) == 0 {
		return InsufficientData, nil
	}
	return segments[len(segments)-1].Trend, nil
}
