package series

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// TimeLayout is the fixed layout of valueTime entries.
const TimeLayout = "2006.01.02 15:04:05"

var (
	// ErrLengthMismatch indicates channels of one series disagree on length.
	ErrLengthMismatch = errors.New("series: channel length mismatch")
	// ErrInvalidRatio indicates a truncation ratio outside (0,1].
	ErrInvalidRatio = errors.New("series: ratio must be in (0,1]")
)

// Channel identifies one aligned sequence of a Series.
type Channel int

const (
	Returns Channel = iota
	Close
	Open
	ATR
	ChannelHigh
	ChannelLow
)

var channelNames = [...]string{"returns", "close", "open", "atr", "channel_high", "channel_low"}

// Channels lists every channel in canonical order.
func Channels() []Channel {
	return []Channel{Returns, Close, Open, ATR, ChannelHigh, ChannelLow}
}

func (c Channel) String() string {
	if c < 0 || int(c) >= len(channelNames) {
		return fmt.Sprintf("channel(%d)", int(c))
	}
	return channelNames[c]
}

// PriceLike reports whether the channel carries price levels rather than returns.
func (c Channel) PriceLike() bool {
	return c != Returns
}

// Series holds the time-aligned channels of one order.
type Series struct {
	OrderID     string    `json:"orderId"`
	Returns     []float64 `json:"returns"`
	Close       []float64 `json:"close"`
	Open        []float64 `json:"open"`
	ATR         []float64 `json:"atr"`
	ChannelHigh []float64 `json:"channelHigh"`
	ChannelLow  []float64 `json:"channelLow"`
	ValueTime   []string  `json:"valueTime"`
	Direction   Direction `json:"direction,omitempty"`
	Step        *int      `json:"step,omitempty"`
}

// Validate checks that all sequences share one length.
func (s *Series) Validate() error {
	if s.OrderID == "" {
		return errors.New("series: order id is required")
	}
	n := len(s.Returns)
	for _, ch := range Channels() {
		if got := len(s.Values(ch)); got != n {
			return fmt.Errorf("%w: order %s %s has %d values, want %d", ErrLengthMismatch, s.OrderID, ch, got, n)
		}
	}
	if len(s.ValueTime) != n {
		return fmt.Errorf("%w: order %s value_time has %d entries, want %d", ErrLengthMismatch, s.OrderID, len(s.ValueTime), n)
	}
	return nil
}

// Len returns the number of observations.
func (s *Series) Len() int {
	return len(s.Returns)
}

// Values returns the slice backing the given channel.
func (s *Series) Values(ch Channel) []float64 {
	switch ch {
	case Returns:
		return s.Returns
	case Close:
		return s.Close
	case Open:
		return s.Open
	case ATR:
		return s.ATR
	case ChannelHigh:
		return s.ChannelHigh
	case ChannelLow:
		return s.ChannelLow
	default:
		return nil
	}
}

// View returns a copy holding the first floor(n*ratio) observations.
func (s *Series) View(ratio float64) (*Series, error) {
	if !(ratio > 0 && ratio <= 1) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidRatio, ratio)
	}
	k := int(math.Floor(float64(s.Len()) * ratio))
	return s.head(k), nil
}

func (s *Series) head(k int) *Series {
	if k > s.Len() {
		k = s.Len()
	}
	view := &Series{
		OrderID:     s.OrderID,
		Returns:     cloneHead(s.Returns, k),
		Close:       cloneHead(s.Close, k),
		Open:        cloneHead(s.Open, k),
		ATR:         cloneHead(s.ATR, k),
		ChannelHigh: cloneHead(s.ChannelHigh, k),
		ChannelLow:  cloneHead(s.ChannelLow, k),
		ValueTime:   append([]string(nil), s.ValueTime[:min(k, len(s.ValueTime))]...),
		Direction:   s.Direction,
	}
	if s.Step != nil {
		step := *s.Step
		view.Step = &step
	}
	return view
}

func cloneHead(v []float64, k int) []float64 {
	if k > len(v) {
		k = len(v)
	}
	return append([]float64(nil), v[:k]...)
}

// ValueAt interpolates the returns channel at a fractional position in [0,1].
func (s *Series) ValueAt(fraction float64) float64 {
	return Interpolate(s.Returns, fraction)
}

// Terminal returns the last returns value, or 0 for an empty series.
func (s *Series) Terminal() float64 {
	if len(s.Returns) == 0 {
		return 0
	}
	return s.Returns[len(s.Returns)-1]
}

// Interpolate reads values at position fraction*(n-1) with linear interpolation.
func Interpolate(values []float64, fraction float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	if fraction <= 0 || n == 1 {
		return values[0]
	}
	if fraction >= 1 {
		return values[n-1]
	}
	pos := fraction * float64(n-1)
	left := int(math.Floor(pos))
	alpha := pos - float64(left)
	if alpha == 0 {
		return values[left]
	}
	return values[left] + alpha*(values[left+1]-values[left])
}

// CheckpointIndex maps a fraction to the nearest observation index.
func CheckpointIndex(n int, fraction float64) int {
	if n <= 0 {
		return 0
	}
	idx := int(math.Round(fraction * float64(n-1)))
	return max(0, min(idx, n-1))
}

// ParseTime parses a valueTime entry.
func ParseTime(v string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse value time %q: %w", v, err)
	}
	return t, nil
}

// ParseTimes parses every entry and fails on the first malformed one.
func ParseTimes(values []string) ([]time.Time, error) {
	out := make([]time.Time, len(values))
	for i, v := range values {
		t, err := ParseTime(v)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		out[i] = t
	}
	return out, nil
}
