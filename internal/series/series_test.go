package series

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeSeries(id string, returns []float64) *Series {
	n := len(returns)
	s := &Series{
		OrderID:     id,
		Returns:     append([]float64(nil), returns...),
		Close:       make([]float64, n),
		Open:        make([]float64, n),
		ATR:         make([]float64, n),
		ChannelHigh: make([]float64, n),
		ChannelLow:  make([]float64, n),
		ValueTime:   make([]string, n),
	}
	for i := 0; i < n; i++ {
		s.Close[i] = 100 + float64(i)
		s.Open[i] = 99.5 + float64(i)
		s.ATR[i] = 1
		s.ChannelHigh[i] = 101 + float64(i)
		s.ChannelLow[i] = 98 + float64(i)
		s.ValueTime[i] = fmt.Sprintf("2024.01.01 %02d:%02d:00", i/60, i%60)
	}
	return s
}

func TestValidateRejectsMismatchedChannels(t *testing.T) {
	s := makeSeries("1", []float64{1, 2, 3})
	s.ATR = s.ATR[:2]

	err := s.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestViewDoesNotMutateSource(t *testing.T) {
	s := makeSeries("1", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})

	view, err := s.View(0.8)
	require.NoError(t, err)
	assert.Equal(t, 8, view.Len())
	assert.Len(t, view.ValueTime, 8)

	view.Returns[0] = 42
	assert.Equal(t, 1.0, s.Returns[0])
	assert.Equal(t, 10, s.Len())
}

func TestViewRejectsInvalidRatio(t *testing.T) {
	s := makeSeries("1", []float64{1, 2, 3})
	for _, ratio := range []float64{0, -0.5, 1.01} {
		_, err := s.View(ratio)
		assert.ErrorIs(t, err, ErrInvalidRatio, "ratio %v", ratio)
	}
}

func TestInterpolate(t *testing.T) {
	values := []float64{0, 10, 20, 30, 40}

	assert.Equal(t, 0.0, Interpolate(values, 0))
	assert.Equal(t, 40.0, Interpolate(values, 1))
	assert.Equal(t, 10.0, Interpolate(values, 0.25))
	assert.InDelta(t, 8.0, Interpolate(values, 0.2), 1e-12)
	assert.Equal(t, 0.0, Interpolate(nil, 0.5))
}

func TestCheckpointIndex(t *testing.T) {
	assert.Equal(t, 0, CheckpointIndex(0, 0.2))
	assert.Equal(t, 20, CheckpointIndex(101, 0.2))
	assert.Equal(t, 9, CheckpointIndex(10, 1.5))
}

func TestParseTimesFailsFast(t *testing.T) {
	_, err := ParseTimes([]string{"2024.01.01 00:00:00", "2024-01-01 00:01:00"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index 1")

	times, err := ParseTimes([]string{"2024.01.01 00:00:00", "2024.01.01 00:30:00"})
	require.NoError(t, err)
	assert.Equal(t, 30.0, times[1].Sub(times[0]).Minutes())
}

func TestDetectDirection(t *testing.T) {
	tests := []struct {
		name       string
		valueDelta float64
		closeDelta float64
		want       Direction
	}{
		{"profit with rising close", 1, 1, Long},
		{"profit with falling close", 1, -1, Short},
		{"loss with rising close", -1, 1, Short},
		{"loss with falling close", -1, -1, Long},
		{"flat value", 0, 1, DirectionUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := makeSeries("1", make([]float64, 12))
			s.Returns[10] = s.Returns[2] + tt.valueDelta
			s.Close[10] = s.Close[2] + tt.closeDelta
			assert.Equal(t, tt.want, DetectDirection(s))
		})
	}

	assert.Equal(t, DirectionUnknown, DetectDirection(makeSeries("short", make([]float64, 10))))
}

func TestPoolSplitByOutcome(t *testing.T) {
	pool, err := NewPool(
		makeSeries("a", []float64{0, 1}),
		makeSeries("b", []float64{0, -1}),
		makeSeries("c", []float64{0, 0}),
		makeSeries("d", []float64{5}),
	)
	require.NoError(t, err)

	up, down := pool.SplitByOutcome()
	assert.Equal(t, []string{"a", "c"}, up.IDs())
	assert.Equal(t, []string{"b"}, down.IDs())
}

func TestPoolRejectsDuplicates(t *testing.T) {
	_, err := NewPool(makeSeries("a", []float64{1}), makeSeries("a", []float64{2}))
	require.Error(t, err)
}

func TestPoolTruncateAndFilter(t *testing.T) {
	pool, err := NewPool(
		makeSeries("long", make([]float64, 100)),
		makeSeries("short", make([]float64, 20)),
	)
	require.NoError(t, err)

	filtered := pool.Filter(70)
	assert.Equal(t, []string{"long"}, filtered.IDs())

	views, err := filtered.Truncate(0.8)
	require.NoError(t, err)
	view, ok := views.Get("long")
	require.True(t, ok)
	assert.Equal(t, 80, view.Len())

	src, _ := pool.Get("long")
	assert.Equal(t, 100, src.Len())
}
