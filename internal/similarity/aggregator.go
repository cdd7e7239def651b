package similarity

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"analog-exit/internal/distance"
	"analog-exit/internal/features"
	"analog-exit/internal/series"
	"analog-exit/internal/workers"
)

// ErrTargetNotFound is returned when the target is not part of the comparison pool.
var ErrTargetNotFound = errors.New("similarity: target not in pool")

// Kind distinguishes the two signals computed per channel.
type Kind int

const (
	DistanceKind Kind = iota
	CosineKind
)

func (k Kind) String() string {
	if k == CosineKind {
		return "cos"
	}
	return "dist"
}

// Signal identifies one ranked list.
type Signal struct {
	Channel series.Channel
	Kind    Kind
}

func (s Signal) String() string {
	return s.Channel.String() + "-" + s.Kind.String()
}

// VotingSignals are the lists pooled for consensus, in pooling order.
var VotingSignals = []Signal{
	{series.Close, DistanceKind},
	{series.Open, DistanceKind},
	{series.Open, CosineKind},
	{series.ATR, DistanceKind},
	{series.ATR, CosineKind},
	{series.ChannelHigh, DistanceKind},
	{series.ChannelHigh, CosineKind},
	{series.ChannelLow, DistanceKind},
}

// Options configure neighbour selection.
type Options struct {
	Metric         distance.Metric
	Ratio          float64
	Band           int
	TopN           int
	ConsensusSize  int
	MinAppearances int
}

// DefaultOptions mirrors the documented defaults.
func DefaultOptions() Options {
	return Options{
		Metric:         distance.EuclideanDTWMetric,
		Ratio:          1,
		Band:           distance.DefaultBand,
		TopN:           11,
		ConsensusSize:  6,
		MinAppearances: 2,
	}
}

// Validate rejects configuration errors up front.
func (o Options) Validate() error {
	if _, err := distance.ParseMetric(string(o.Metric)); err != nil {
		return err
	}
	if err := distance.ValidateRatio(o.Ratio); err != nil {
		return err
	}
	switch {
	case o.Band < 0:
		return fmt.Errorf("similarity: band must not be negative")
	case o.TopN <= 0:
		return fmt.Errorf("similarity: top n must be greater than zero")
	case o.ConsensusSize <= 0:
		return fmt.Errorf("similarity: consensus size must be greater than zero")
	case o.MinAppearances <= 0:
		return fmt.Errorf("similarity: min appearances must be greater than zero")
	}
	return nil
}

// RankedList is the top-N candidate list of one signal.
type RankedList struct {
	Signal    Signal
	Neighbors []Neighbor
}

// Match is the outcome of ranking a pool against one target.
type Match struct {
	TargetID  string
	Lists     []RankedList
	Neighbors []Neighbor
}

// Aggregator ranks pool members against a target across all channels.
type Aggregator struct {
	opts    Options
	workers *workers.Pool
	logger  zerolog.Logger
}

// NewAggregator validates options and builds an aggregator.
func NewAggregator(opts Options, pool *workers.Pool, logger zerolog.Logger) (*Aggregator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if pool == nil {
		pool = workers.New(workers.DefaultSize)
	}
	return &Aggregator{
		opts:    opts,
		workers: pool,
		logger:  logger.With().Str("component", "similarity").Logger(),
	}, nil
}

// FindNeighbors returns the consensus neighbour set of targetID within pool.
func (a *Aggregator) FindNeighbors(ctx context.Context, targetID string, pool *series.Pool) ([]Neighbor, error) {
	m, err := a.Match(ctx, targetID, pool)
	if err != nil {
		return nil, err
	}
	return m.Neighbors, nil
}

// Match ranks every other member of pool against targetID.
func (a *Aggregator) Match(ctx context.Context, targetID string, pool *series.Pool) (*Match, error) {
	targetIdx := pool.Index(targetID)
	if targetIdx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrTargetNotFound, targetID)
	}
	ids := pool.IDs()
	members := make([]*series.Series, len(ids))
	for i, id := range ids {
		members[i], _ = pool.Get(id)
	}
	target := members[targetIdx]

	channels := series.Channels()
	distances, err := a.distances(ctx, target, members, targetIdx)
	if err != nil {
		return nil, err
	}
	cosines := cosineRows(members, targetIdx)

	scores := make(map[Signal][]float64, 2*len(channels))
	for c, ch := range channels {
		dist := make([]float64, len(members))
		cos := make([]float64, len(members))
		for i := range members {
			if i == targetIdx {
				continue
			}
			dist[i] = a.signal(distances[i][c])
			cos[i] = cosines[c][i]
		}
		scores[Signal{ch, DistanceKind}] = dist
		scores[Signal{ch, CosineKind}] = cos
	}

	returnsCosine := cosines[series.Returns]
	match := &Match{TargetID: targetID}
	lists := make(map[Signal][]Neighbor, len(scores))
	for _, ch := range channels {
		for _, kind := range []Kind{DistanceKind, CosineKind} {
			sig := Signal{ch, kind}
			weights := Softmax(scores[sig], targetIdx)
			top := TopN(weights, targetIdx, a.opts.TopN)
			list := make([]Neighbor, len(top))
			for k, i := range top {
				list[k] = Neighbor{
					OrderID:  ids[i],
					Distance: distances[i][series.Returns],
					Cosine:   returnsCosine[i],
					Weight:   weights[i],
				}
			}
			lists[sig] = list
			match.Lists = append(match.Lists, RankedList{Signal: sig, Neighbors: list})
		}
	}

	voting := make([][]Neighbor, len(VotingSignals))
	for i, sig := range VotingSignals {
		voting[i] = lists[sig]
	}
	match.Neighbors = Consensus(voting, a.opts.ConsensusSize, a.opts.MinAppearances)

	a.logger.Debug().
		Str("order_id", targetID).
		Int("pool", len(members)).
		Int("neighbors", len(match.Neighbors)).
		Msg("neighbors selected")
	return match, nil
}

// signal turns a metric value into a higher-is-closer score. Pearson is
// already a similarity; every other metric is a distance.
func (a *Aggregator) signal(v float64) float64 {
	if a.opts.Metric == distance.PearsonMetric {
		return v
	}
	return ToSimilarity(v)
}

// distances computes every channel's partial distance from target to each
// member on the worker pool. The target's own row stays zero.
func (a *Aggregator) distances(ctx context.Context, target *series.Series, members []*series.Series, targetIdx int) ([][]float64, error) {
	channels := series.Channels()
	return workers.Map(ctx, a.workers, len(members), func(i int) ([]float64, error) {
		row := make([]float64, len(channels))
		if i == targetIdx {
			return row, nil
		}
		for c, ch := range channels {
			d, err := distance.Partial(a.opts.Metric, target.Values(ch), members[i].Values(ch), a.opts.Ratio, a.opts.Band)
			if err != nil {
				return nil, fmt.Errorf("order %s %s: %w", members[i].OrderID, ch, err)
			}
			row[c] = d
		}
		return row, nil
	})
}

// cosineRows returns, per channel, the cosine similarity of the target's
// standardised feature vector to every member's.
func cosineRows(members []*series.Series, targetIdx int) [][]float64 {
	channels := series.Channels()
	out := make([][]float64, len(channels))
	for c, ch := range channels {
		matrix := make([][]float64, len(members))
		for i, s := range members {
			matrix[i] = features.Extract(s.Values(ch)).Vector()
		}
		var scaled features.Scaled
		if ch.PriceLike() {
			scaled = features.PreprocessPriceLike(matrix)
		} else {
			scaled = features.Standardize(matrix)
		}
		out[c] = distance.CosineRow(scaled.Matrix, targetIdx)
	}
	return out
}
