// Package retriever composes lexical and dense ranking into one hybrid retrieval call.
package retriever

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"ai-quiz-generator-be/internal/pkg/logger"
	"ai-quiz-generator-be/pkg/metrics"
	"ai-quiz-generator-be/pkg/retriever/dense"
	"ai-quiz-generator-be/pkg/retriever/fusion"
	"ai-quiz-generator-be/pkg/retriever/lexical"
)

var tracer = otel.Tracer("ai-quiz-generator-be/retriever")

// RetrievalError means the dense stage could not produce a ranking. The caller should
// abort instead of generating from an empty context.
type RetrievalError struct {
	Stage string
	Err   error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval failed at %s stage: %v", e.Stage, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

type Config struct {
	RRFK        int
	CandidatesN int
}

func DefaultConfig() Config {
	return Config{
		RRFK:        fusion.DefaultK,
		CandidatesN: 20,
	}
}

// Factory builds a HybridRetriever per passage set.
type Factory struct {
	dense  *dense.Retriever
	config Config
	logger logger.ILogger
}

func NewFactory(denseRetriever *dense.Retriever, config Config, log logger.ILogger) *Factory {
	return &Factory{
		dense:  denseRetriever,
		config: config,
		logger: log,
	}
}

// Create indexes passages lexically right away; the dense index is built on first Retrieve.
func (f *Factory) Create(passages []Passage) *HybridRetriever {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Content
	}
	return &HybridRetriever{
		texts:  texts,
		bm25:   lexical.New(texts),
		dense:  f.dense,
		config: f.config,
		logger: f.logger,
	}
}

type HybridRetriever struct {
	texts  []string
	bm25   *lexical.BM25
	dense  *dense.Retriever
	config Config
	logger logger.ILogger

	mu    sync.Mutex
	index *dense.FlatIndex
}

// Retrieve returns up to topK passage texts, best first. topK <= 0 uses CandidatesN.
func (h *HybridRetriever) Retrieve(ctx context.Context, query string, topK int) ([]string, error) {
	if len(h.texts) == 0 {
		return []string{}, nil
	}
	if topK <= 0 {
		topK = h.config.CandidatesN
	}

	ctx, span := tracer.Start(ctx, "HybridRetriever.Retrieve")
	defer span.End()
	span.SetAttributes(attribute.Int("passages", len(h.texts)), attribute.Int("top_k", topK))

	var lexicalIDs, denseIDs []int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		for _, c := range h.bm25.Search(query, topK) {
			lexicalIDs = append(lexicalIDs, c.PassageID)
		}
		metrics.StageDuration.WithLabelValues("retrieval_lexical").Observe(time.Since(start).Seconds())
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		idx, err := h.denseIndex(gctx)
		if err != nil {
			return &RetrievalError{Stage: "dense_index", Err: err}
		}
		candidates, err := h.dense.Search(gctx, idx, query, topK)
		if err != nil {
			return &RetrievalError{Stage: "dense_search", Err: err}
		}
		for _, c := range candidates {
			denseIDs = append(denseIDs, c.PassageID)
		}
		metrics.StageDuration.WithLabelValues("retrieval_dense").Observe(time.Since(start).Seconds())
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	fused := fusion.IDs(fusion.RRF(h.config.RRFK, topK, lexicalIDs, denseIDs))
	out := make([]string, len(fused))
	for i, id := range fused {
		out[i] = h.texts[id]
	}

	h.logger.Debug("RETRIEVER", "Hybrid retrieval finished", map[string]interface{}{
		"query":      truncate(query, 50),
		"lexical":    lexicalIDs,
		"dense":      denseIDs,
		"fused":      fused,
		"candidates": len(out),
	})

	return out, nil
}

func (h *HybridRetriever) denseIndex(ctx context.Context) (*dense.FlatIndex, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index != nil {
		return h.index, nil
	}
	idx, err := h.dense.Index(ctx, h.texts)
	if err != nil {
		return nil, err
	}
	h.index = idx
	return idx, nil
}

// Rankings exposes the per-stage orderings alongside the fused one, for diagnostics.
func (h *HybridRetriever) Rankings(ctx context.Context, query string, topK int) (lexicalRank []lexical.Candidate, denseRank []dense.Candidate, fused []fusion.Fused, err error) {
	if len(h.texts) == 0 {
		return nil, nil, nil, nil
	}
	lexicalRank = h.bm25.Search(query, topK)

	idx, err := h.denseIndex(ctx)
	if err != nil {
		return nil, nil, nil, &RetrievalError{Stage: "dense_index", Err: err}
	}
	denseRank, err = h.dense.Search(ctx, idx, query, topK)
	if err != nil {
		return nil, nil, nil, &RetrievalError{Stage: "dense_search", Err: err}
	}

	lexIDs := make([]int, len(lexicalRank))
	for i, c := range lexicalRank {
		lexIDs[i] = c.PassageID
	}
	denseIDs := make([]int, len(denseRank))
	for i, c := range denseRank {
		denseIDs[i] = c.PassageID
	}
	fused = fusion.RRF(h.config.RRFK, topK, lexIDs, denseIDs)
	return lexicalRank, denseRank, fused, nil
}

// Text returns the content of passage id.
func (h *HybridRetriever) Text(id int) string {
	return h.texts[id]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
