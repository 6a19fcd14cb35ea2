package dense

import "sort"

type Candidate struct {
	PassageID int
	Score     float64
}

// FlatIndex is an exact inner-product index. Vector i belongs to passage i.
type FlatIndex struct {
	dim     int
	vectors [][]float32
}

func NewFlatIndex(vectors [][]float32) *FlatIndex {
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	return &FlatIndex{dim: dim, vectors: vectors}
}

func (ix *FlatIndex) Len() int { return len(ix.vectors) }

func (ix *FlatIndex) Dim() int { return ix.dim }

// Search scans every vector and returns the topK highest inner products.
// Equal scores keep scan order.
func (ix *FlatIndex) Search(query []float32, topK int) []Candidate {
	out := make([]Candidate, len(ix.vectors))
	for i, v := range ix.vectors {
		out[i] = Candidate{PassageID: i, Score: dot(query, v)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if topK >= 0 && topK < len(out) {
		out = out[:topK]
	}
	return out
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var s float64
	for i := 0; i < n; i++ {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
