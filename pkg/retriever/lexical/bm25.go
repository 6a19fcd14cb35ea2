// Package lexical implements in-memory BM25Okapi ranking over a fixed passage set.
package lexical

import (
	"math"
	"sort"
	"strings"
)

const (
	DefaultK1      = 1.5
	DefaultB       = 0.75
	DefaultEpsilon = 0.25
)

type Candidate struct {
	PassageID int
	Score     float64
}

// BM25 holds corpus statistics computed once at construction.
type BM25 struct {
	k1, b, epsilon float64

	docFreqs []map[string]int
	docLens  []int
	avgdl    float64
	idf      map[string]float64
}

type Option func(*BM25)

func WithK1(k1 float64) Option { return func(m *BM25) { m.k1 = k1 } }

func WithB(b float64) Option { return func(m *BM25) { m.b = b } }

func WithEpsilon(eps float64) Option { return func(m *BM25) { m.epsilon = eps } }

// Tokenize lowercases and splits on whitespace. No stemming or stopwords.
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// New indexes docs; docs[i] gets passage id i.
func New(docs []string, opts ...Option) *BM25 {
	m := &BM25{
		k1:      DefaultK1,
		b:       DefaultB,
		epsilon: DefaultEpsilon,
		idf:     make(map[string]float64),
	}
	for _, opt := range opts {
		opt(m)
	}

	nd := make(map[string]int)
	total := 0
	for _, doc := range docs {
		tokens := Tokenize(doc)
		freqs := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			freqs[tok]++
		}
		for tok := range freqs {
			nd[tok]++
		}
		m.docFreqs = append(m.docFreqs, freqs)
		m.docLens = append(m.docLens, len(tokens))
		total += len(tokens)
	}
	if len(docs) > 0 {
		m.avgdl = float64(total) / float64(len(docs))
	}

	m.computeIDF(nd)
	return m
}

// computeIDF uses ln(N-n+0.5) - ln(n+0.5). Terms in more than half the corpus get a
// negative value, which is replaced by epsilon times the average idf.
func (m *BM25) computeIDF(nd map[string]int) {
	n := float64(len(m.docFreqs))
	var sum float64
	var negative []string
	for tok, freq := range nd {
		f := float64(freq)
		idf := math.Log(n-f+0.5) - math.Log(f+0.5)
		m.idf[tok] = idf
		sum += idf
		if idf < 0 {
			negative = append(negative, tok)
		}
	}
	if len(m.idf) == 0 {
		return
	}
	eps := m.epsilon * sum / float64(len(m.idf))
	for _, tok := range negative {
		m.idf[tok] = eps
	}
}

// Scores returns one score per passage, in passage order.
func (m *BM25) Scores(query string) []float64 {
	scores := make([]float64, len(m.docFreqs))
	if m.avgdl == 0 {
		return scores
	}
	for _, q := range Tokenize(query) {
		idf, ok := m.idf[q]
		if !ok {
			continue
		}
		for i, freqs := range m.docFreqs {
			tf := float64(freqs[q])
			if tf == 0 {
				continue
			}
			norm := m.k1 * (1 - m.b + m.b*float64(m.docLens[i])/m.avgdl)
			scores[i] += idf * (tf * (m.k1 + 1) / (tf + norm))
		}
	}
	return scores
}

// Search returns the topK passages by score. Equal scores keep passage order.
func (m *BM25) Search(query string, topK int) []Candidate {
	scores := m.Scores(query)
	out := make([]Candidate, len(scores))
	for i, s := range scores {
		out[i] = Candidate{PassageID: i, Score: s}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if topK >= 0 && topK < len(out) {
		out = out[:topK]
	}
	return out
}

func (m *BM25) Len() int {
	return len(m.docFreqs)
}
