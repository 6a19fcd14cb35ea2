// Package fusion merges ranked lists with Reciprocal Rank Fusion.
package fusion

import "sort"

// DefaultK is the RRF smoothing constant (Cormack et al. 2009).
const DefaultK = 60

type Fused struct {
	PassageID int
	Score     float64
}

// RRF scores each id as the sum of 1/(k+rank+1) over the lists it appears in, rank being
// 0-based. Ties keep first-seen order, scanning lists in the order given. Only ids are
// fused; lists hold passage ids best-first.
func RRF(k, topK int, lists ...[]int) []Fused {
	if k < 0 {
		k = DefaultK
	}

	index := make(map[int]int)
	var merged []Fused
	for _, list := range lists {
		for rank, id := range list {
			s := 1.0 / float64(k+rank+1)
			if pos, ok := index[id]; ok {
				merged[pos].Score += s
				continue
			}
			index[id] = len(merged)
			merged = append(merged, Fused{PassageID: id, Score: s})
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})

	if topK >= 0 && len(merged) > topK {
		merged = merged[:topK]
	}
	return merged
}

// IDs drops the scores.
func IDs(fused []Fused) []int {
	out := make([]int, len(fused))
	for i, f := range fused {
		out[i] = f.PassageID
	}
	return out
}
