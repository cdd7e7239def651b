package distance

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInvalidRatio indicates a truncation ratio outside (0,1].
	ErrInvalidRatio = errors.New("distance: ratio must be in (0,1]")
	// ErrUnknownMetric indicates an unsupported metric selector.
	ErrUnknownMetric = errors.New("distance: unknown metric")
)

// DefaultBand is the Sakoe-Chiba half-width used when none is configured.
const DefaultBand = 15

// Metric selects the pairwise series distance used for ranking.
type Metric string

const (
	EuclideanDTWMetric Metric = "dtw"
	WindowedDTWMetric  Metric = "windowed-dtw"
	ManhattanMetric    Metric = "manhattan"
	CanberraMetric     Metric = "canberra"
	PearsonMetric      Metric = "pearson"
)

// Metrics lists the supported selectors.
func Metrics() []Metric {
	return []Metric{EuclideanDTWMetric, WindowedDTWMetric, ManhattanMetric, CanberraMetric, PearsonMetric}
}

// ParseMetric resolves a selector, failing on anything unsupported.
func ParseMetric(v string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(v)))
	for _, known := range Metrics() {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMetric, v)
}

// ValidateRatio rejects ratios outside (0,1].
func ValidateRatio(ratio float64) error {
	if !(ratio > 0 && ratio <= 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidRatio, ratio)
	}
	return nil
}

// Truncate cuts each input to max(1, round(len*ratio)) and then both to the
// shorter of the two.
func Truncate(a, b []float64, ratio float64) ([]float64, []float64, error) {
	if err := ValidateRatio(ratio); err != nil {
		return nil, nil, err
	}
	na := leading(len(a), ratio)
	nb := leading(len(b), ratio)
	n := min(na, nb)
	return a[:n], b[:n], nil
}

func leading(n int, ratio float64) int {
	if n == 0 {
		return 0
	}
	k := int(math.Round(float64(n) * ratio))
	return max(1, min(k, n))
}

// Compute runs the selected metric on the full inputs.
func Compute(metric Metric, a, b []float64, band int) (float64, error) {
	switch metric {
	case EuclideanDTWMetric:
		return EuclideanDTW(a, b), nil
	case WindowedDTWMetric:
		return WindowedDTW(a, b, band), nil
	case ManhattanMetric:
		return Manhattan(a, b), nil
	case CanberraMetric:
		return Canberra(a, b), nil
	case PearsonMetric:
		return Pearson(a, b), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, string(metric))
	}
}

// Partial truncates both inputs by ratio and runs the selected metric.
// A ratio of 1 is identical to Compute.
func Partial(metric Metric, a, b []float64, ratio float64, band int) (float64, error) {
	x, y, err := Truncate(a, b, ratio)
	if err != nil {
		return 0, err
	}
	return Compute(metric, x, y, band)
}
