package series

import "fmt"

// Pool is an insertion-ordered set of series keyed by order id.
type Pool struct {
	ids  []string
	byID map[string]*Series
}

// NewPool builds a pool from the given series, rejecting invalid or duplicate entries.
func NewPool(items ...*Series) (*Pool, error) {
	p := &Pool{byID: make(map[string]*Series, len(items))}
	for _, s := range items {
		if err := p.Add(s); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Add validates and appends a series.
func (p *Pool) Add(s *Series) error {
	if s == nil {
		return fmt.Errorf("series: nil series")
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if p.byID == nil {
		p.byID = make(map[string]*Series)
	}
	if _, exists := p.byID[s.OrderID]; exists {
		return fmt.Errorf("series: duplicate order id %s", s.OrderID)
	}
	p.ids = append(p.ids, s.OrderID)
	p.byID[s.OrderID] = s
	return nil
}

// Get returns the series for an order id.
func (p *Pool) Get(id string) (*Series, bool) {
	if p == nil {
		return nil, false
	}
	s, ok := p.byID[id]
	return s, ok
}

// IDs returns order ids in insertion order.
func (p *Pool) IDs() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.ids...)
}

// Len returns the number of series.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.ids)
}

// Index returns the position of an order id, or -1.
func (p *Pool) Index(id string) int {
	for i, candidate := range p.ids {
		if candidate == id {
			return i
		}
	}
	return -1
}

// Filter keeps series with at least minLen observations.
func (p *Pool) Filter(minLen int) *Pool {
	out := &Pool{byID: make(map[string]*Series)}
	for _, id := range p.ids {
		s := p.byID[id]
		if s.Len() >= minLen {
			out.ids = append(out.ids, id)
			out.byID[id] = s
		}
	}
	return out
}

// Truncate builds a pool of leading-ratio views. Sources are not modified.
func (p *Pool) Truncate(ratio float64) (*Pool, error) {
	out := &Pool{byID: make(map[string]*Series, len(p.ids))}
	for _, id := range p.ids {
		view, err := p.byID[id].View(ratio)
		if err != nil {
			return nil, err
		}
		out.ids = append(out.ids, id)
		out.byID[id] = view
	}
	return out, nil
}

// SplitByOutcome partitions series by the sign of their last return.
// Series with fewer than 2 observations belong to neither bucket.
func (p *Pool) SplitByOutcome() (up, down *Pool) {
	up = &Pool{byID: make(map[string]*Series)}
	down = &Pool{byID: make(map[string]*Series)}
	for _, id := range p.ids {
		s := p.byID[id]
		if s.Len() < 2 {
			continue
		}
		bucket := up
		if s.Terminal() < 0 {
			bucket = down
		}
		bucket.ids = append(bucket.ids, id)
		bucket.byID[id] = s
	}
	return up, down
}
