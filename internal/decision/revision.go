package decision

import (
	"github.com/shopspring/decimal"

	"analog-exit/internal/series"
)

// OrderUpdate carries the revised entry and exit prices of one order.
type OrderUpdate struct {
	OrderID    string           `json:"orderId"`
	Direction  series.Direction `json:"direction"`
	StartPrice decimal.Decimal  `json:"startPrice"`
	EndPrice   decimal.Decimal  `json:"endPrice"`
}

// BuildOrderUpdates emits revisions for close decisions and for orders with a
// confirmed step. A close decision exits at the checkpoint close; a step moves
// the entry to the open at that step. Output follows result order, then pool
// order for step-only orders.
func BuildOrderUpdates(results []Result, pool *series.Pool, checkpoint float64) []OrderUpdate {
	var out []OrderUpdate
	byID := make(map[string]int)

	for _, r := range results {
		if r.Decision != Close {
			continue
		}
		s, ok := pool.Get(r.OrderID)
		if !ok || len(s.Open) == 0 || len(s.Close) == 0 {
			continue
		}
		end := s.Close[series.CheckpointIndex(len(s.Close), checkpoint)]
		byID[r.OrderID] = len(out)
		out = append(out, OrderUpdate{
			OrderID:    r.OrderID,
			Direction:  orderDirection(s),
			StartPrice: decimal.NewFromFloat(s.Open[0]),
			EndPrice:   decimal.NewFromFloat(end),
		})
	}

	for _, id := range pool.IDs() {
		s, _ := pool.Get(id)
		if s.Step == nil {
			continue
		}
		step := *s.Step
		if step < 0 || step >= len(s.Close) || step >= len(s.Open) {
			continue
		}
		start := decimal.NewFromFloat(s.Open[step])
		if i, ok := byID[id]; ok {
			out[i].StartPrice = start
			continue
		}
		byID[id] = len(out)
		out = append(out, OrderUpdate{
			OrderID:    id,
			Direction:  orderDirection(s),
			StartPrice: start,
			EndPrice:   decimal.NewFromFloat(s.Close[len(s.Close)-1]),
		})
	}
	return out
}

func orderDirection(s *series.Series) series.Direction {
	if s.Direction != "" && s.Direction != series.DirectionUnknown {
		return s.Direction
	}
	return series.DetectDirection(s)
}
