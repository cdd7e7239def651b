package decision

import (
	"errors"
	"fmt"

	"analog-exit/internal/trend"
)

// Decision is the exit action recommended for a position.
type Decision string

const (
	Hold  Decision = "hold"
	Close Decision = "close"
)

// ErrInvalidDecision rejects anything other than hold or close.
var ErrInvalidDecision = errors.New("decision: must be hold or close")

// Parse validates a stored decision value.
func Parse(v string) (Decision, error) {
	switch d := Decision(v); d {
	case Hold, Close:
		return d, nil
	default:
		return "", fmt.Errorf("%w: got %q", ErrInvalidDecision, v)
	}
}

// Decide closes only when the target already beats its peer consensus and
// no uptrend is confirmed. Everything else holds.
func Decide(t1, consensus float64, label trend.Label) Decision {
	if t1 > consensus && label != trend.TrendingUp {
		return Close
	}
	return Hold
}

// IsCorrect checks a decision against the realised terminal value.
func IsCorrect(d Decision, t1, t2 float64) bool {
	if d == Close {
		return t2 <= t1
	}
	return t2 > t1
}

// NeighborWeight is one consensus neighbour with its renormalised weight.
type NeighborWeight struct {
	OrderID string  `json:"orderId"`
	Weight  float64 `json:"weight"`
}

// Result is the immutable outcome of evaluating one order.
type Result struct {
	OrderID        string           `json:"orderId"`
	Decision       Decision         `json:"decision"`
	IsCorrect      bool             `json:"isCorrect"`
	HoldScore      float64          `json:"holdScore"`
	CloseScore     float64          `json:"closeScore"`
	Time1Value     float64          `json:"time1Value"`
	Time2Value     float64          `json:"time2Value"`
	ConsensusValue float64          `json:"consensusValue"`
	TrendLabel     trend.Label      `json:"trendLabel"`
	Neighbors      []NeighborWeight `json:"neighbors"`
}

// Validate enforces the result invariants.
func (r Result) Validate() error {
	if r.OrderID == "" {
		return errors.New("decision: order id is required")
	}
	if _, err := Parse(string(r.Decision)); err != nil {
		return err
	}
	for name, v := range map[string]float64{"hold": r.HoldScore, "close": r.CloseScore} {
		if v < 0 || v > 1 {
			return fmt.Errorf("decision: %s score %v outside [0,1]", name, v)
		}
	}
	return nil
}
