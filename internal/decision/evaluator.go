package decision

import (
	"errors"
	"fmt"

	"analog-exit/internal/series"
	"analog-exit/internal/similarity"
	"analog-exit/internal/trend"
)

var (
	// ErrNeighborMissing means a consensus neighbour has no full series.
	ErrNeighborMissing = errors.New("decision: neighbor series missing")
	// ErrNoNeighbors means the consensus set is empty, so there is nothing to compare against.
	ErrNoNeighbors = errors.New("decision: empty consensus set")
)

// Defaults for the evaluator.
const (
	DefaultCheckpoint = 0.2
	DefaultTrendRatio = 0.8
)

// Evaluator turns a neighbour set into a hold/close decision.
type Evaluator struct {
	checkpoint float64
	trendRatio float64
	segmenter  *trend.Segmenter
}

// NewEvaluator validates the fractions and builds a segmenter for profile.
func NewEvaluator(checkpoint, trendRatio float64, profile trend.Profile) (*Evaluator, error) {
	if !(checkpoint > 0 && checkpoint < 1) {
		return nil, fmt.Errorf("decision: checkpoint must be in (0,1), got %v", checkpoint)
	}
	if !(trendRatio > 0 && trendRatio <= 1) {
		return nil, fmt.Errorf("%w: trend ratio %v", series.ErrInvalidRatio, trendRatio)
	}
	seg, err := trend.NewSegmenter(profile)
	if err != nil {
		return nil, err
	}
	return &Evaluator{checkpoint: checkpoint, trendRatio: trendRatio, segmenter: seg}, nil
}

// Checkpoint returns the early checkpoint fraction.
func (e *Evaluator) Checkpoint() float64 {
	return e.checkpoint
}

// Evaluate scores target against its neighbours. Both the target and the
// neighbours are read from their full, untruncated series in pool.
func (e *Evaluator) Evaluate(target *series.Series, neighbors []similarity.Neighbor, pool *series.Pool) (Result, error) {
	if len(neighbors) == 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrNoNeighbors, target.OrderID)
	}
	weights := Normalize(neighbors)

	var consensus, hold, closing float64
	for i, n := range neighbors {
		s, ok := pool.Get(n.OrderID)
		if !ok {
			return Result{}, fmt.Errorf("%w: %s", ErrNeighborMissing, n.OrderID)
		}
		early := s.ValueAt(e.checkpoint)
		consensus += early * weights[i].Weight
		if s.Terminal() > early {
			hold += weights[i].Weight
		} else {
			closing += weights[i].Weight
		}
	}
	holdScore, closeScore := 0.5, 0.5
	if total := hold + closing; total > 0 {
		holdScore, closeScore = hold/total, closing/total
	}

	label, err := trend.Confirm(target, e.trendRatio, e.segmenter)
	if err != nil {
		return Result{}, fmt.Errorf("confirm trend for %s: %w", target.OrderID, err)
	}

	t1 := target.ValueAt(e.checkpoint)
	t2 := target.Terminal()
	d := Decide(t1, consensus, label)
	r := Result{
		OrderID:        target.OrderID,
		Decision:       d,
		IsCorrect:      IsCorrect(d, t1, t2),
		HoldScore:      holdScore,
		CloseScore:     closeScore,
		Time1Value:     t1,
		Time2Value:     t2,
		ConsensusValue: consensus,
		TrendLabel:     label,
		Neighbors:      weights,
	}
	return r, r.Validate()
}

// Normalize rescales neighbour weights to sum to 1. A zero total falls back
// to equal weights.
func Normalize(neighbors []similarity.Neighbor) []NeighborWeight {
	out := make([]NeighborWeight, len(neighbors))
	var total float64
	for _, n := range neighbors {
		total += n.Weight
	}
	for i, n := range neighbors {
		w := 1 / float64(len(neighbors))
		if total > 0 {
			w = n.Weight / total
		}
		out[i] = NeighborWeight{OrderID: n.OrderID, Weight: w}
	}
	return out
}
