package series

// Direction is the inferred side of an order.
type Direction string

const (
	Long             Direction = "long"
	Short            Direction = "short"
	DirectionUnknown Direction = "unknown"
)

const (
	directionFrom = 2
	directionTo   = 10
)

// DetectDirection infers long/short from how returns moved relative to close
// between two early observations.
func DetectDirection(s *Series) Direction {
	if s == nil || len(s.Returns) <= directionTo || len(s.Close) <= directionTo {
		return DirectionUnknown
	}

	valueFrom, valueTo := s.Returns[directionFrom], s.Returns[directionTo]
	closeFrom, closeTo := s.Close[directionFrom], s.Close[directionTo]

	switch {
	case valueTo > valueFrom && closeTo > closeFrom:
		return Long
	case valueTo > valueFrom && closeTo < closeFrom:
		return Short
	case valueTo < valueFrom && closeTo > closeFrom:
		return Short
	case valueTo < valueFrom && closeTo < closeFrom:
		return Long
	default:
		return DirectionUnknown
	}
}
