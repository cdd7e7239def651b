package similarity

import (
	"math"
	"sort"
)

// softmaxEpsilon keeps the normalisation finite.
const softmaxEpsilon = 1e-8

// Neighbor is a ranked comparison candidate.
type Neighbor struct {
	OrderID string
	// Distance and Cosine are the raw returns-channel values used for ranking.
	Distance float64
	Cosine   float64
	Weight   float64
}

// ToSimilarity maps a non-negative distance onto (0,1].
func ToSimilarity(d float64) float64 {
	return 1 / (1 + d)
}

// Softmax normalises scores into weights summing to 1, excluding one index
// (pass -1 to keep all). The maximum is subtracted before exponentiating.
func Softmax(scores []float64, exclude int) []float64 {
	weights := make([]float64, len(scores))
	maxScore := math.Inf(-1)
	for i, s := range scores {
		if i == exclude || math.IsNaN(s) {
			continue
		}
		maxScore = math.Max(maxScore, s)
	}
	if math.IsInf(maxScore, -1) {
		return weights
	}

	var sum float64
	for i, s := range scores {
		if i == exclude || math.IsNaN(s) {
			continue
		}
		weights[i] = math.Exp(s - maxScore)
		sum += weights[i]
	}
	for i := range weights {
		weights[i] /= sum + softmaxEpsilon
	}
	return weights
}

// TopN returns up to n indices by descending weight, skipping exclude.
// Equal weights keep their original order.
func TopN(weights []float64, exclude, n int) []int {
	idx := make([]int, 0, len(weights))
	for i := range weights {
		if i != exclude {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return weights[idx[a]] > weights[idx[b]]
	})
	if len(idx) > n {
		idx = idx[:n]
	}
	return idx
}

// Consensus pools the lists, keeps ids seen at least minAppear times, and
// orders them by appearance count. Ties keep the order in which ids were
// first seen while pooling. Each id is represented by its first occurrence.
func Consensus(lists [][]Neighbor, size, minAppear int) []Neighbor {
	type tally struct {
		first Neighbor
		count int
	}
	byID := make(map[string]*tally)
	var order []string
	for _, list := range lists {
		for _, n := range list {
			t, ok := byID[n.OrderID]
			if !ok {
				t = &tally{first: n}
				byID[n.OrderID] = t
				order = append(order, n.OrderID)
			}
			t.count++
		}
	}

	kept := make([]*tally, 0, len(order))
	for _, id := range order {
		if t := byID[id]; t.count >= minAppear {
			kept = append(kept, t)
		}
	}
	sort.SliceStable(kept, func(a, b int) bool {
		return kept[a].count > kept[b].count
	})

	if len(kept) > size {
		kept = kept[:size]
	}
	out := make([]Neighbor, len(kept))
	for i, t := range kept {
		out[i] = t.first
	}
	return out
}
