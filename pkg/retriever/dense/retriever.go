// Package dense ranks passages by embedding similarity over a flat inner-product index.
package dense

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"ai-quiz-generator-be/internal/pkg/logger"
	"ai-quiz-generator-be/pkg/embedding"
	"ai-quiz-generator-be/pkg/metrics"
)

// buildTimeout bounds an index build once it no longer follows any caller's context.
const buildTimeout = 10 * time.Minute

type Retriever struct {
	provider embedding.EmbeddingProvider
	store    VectorStore
	logger   logger.ILogger

	// builds deduplicates concurrent index builds of the same passage set in this process.
	builds singleflight.Group
}

func NewRetriever(provider embedding.EmbeddingProvider, store VectorStore, log logger.ILogger) *Retriever {
	return &Retriever{
		provider: provider,
		store:    store,
		logger:   log,
	}
}

// Index loads the cached vectors for passages or embeds every passage once and saves them.
func (r *Retriever) Index(ctx context.Context, passages []string) (*FlatIndex, error) {
	if len(passages) == 0 {
		return NewFlatIndex(nil), nil
	}

	key := SetKey(r.provider.ModelName(), passages)
	// The build is shared by every caller that joins it, so it must outlive whichever
	// caller started it. Each caller still stops waiting when its own context ends.
	ch := r.builds.DoChan(key, func() (interface{}, error) {
		buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), buildTimeout)
		defer cancel()
		return r.loadOrBuild(buildCtx, key, passages)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			r.logger.Debug("DENSE", "Joined in-flight index build", map[string]interface{}{"set_key": key})
		}
		return res.Val.(*FlatIndex), nil
	}
}

func (r *Retriever) loadOrBuild(ctx context.Context, key string, passages []string) (*FlatIndex, error) {
	vectors, found, err := r.store.Load(ctx, key, len(passages))
	if err != nil {
		// A broken cache is not fatal; rebuild from the embedding service.
		r.logger.Warn("DENSE", "Failed to load cached vectors, rebuilding", map[string]interface{}{
			"set_key": key,
			"error":   err.Error(),
		})
	}
	if found {
		metrics.VectorCacheTotal.WithLabelValues("hit").Inc()
		return NewFlatIndex(vectors), nil
	}
	metrics.VectorCacheTotal.WithLabelValues("miss").Inc()

	r.logger.Info("DENSE", "Computing passage embeddings", map[string]interface{}{
		"set_key":  key,
		"passages": len(passages),
		"model":    r.provider.ModelName(),
	})

	vectors = make([][]float32, len(passages))
	for i, p := range passages {
		vec, err := r.embed(ctx, p, embedding.TaskRetrievalDocument)
		if err != nil {
			return nil, fmt.Errorf("embedding passage %d: %w", i, err)
		}
		if i > 0 && len(vec) != len(vectors[0]) {
			return nil, fmt.Errorf("embedding passage %d: dimension %d differs from %d", i, len(vec), len(vectors[0]))
		}
		vectors[i] = vec
	}

	if err := r.store.Save(ctx, key, passages, vectors); err != nil {
		r.logger.Warn("DENSE", "Failed to persist passage vectors", map[string]interface{}{
			"set_key": key,
			"error":   err.Error(),
		})
	}

	return NewFlatIndex(vectors), nil
}

// Search embeds query and returns the topK nearest passages of idx.
func (r *Retriever) Search(ctx context.Context, idx *FlatIndex, query string, topK int) ([]Candidate, error) {
	if idx.Len() == 0 {
		return nil, nil
	}
	q, err := r.embed(ctx, query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(q) != idx.Dim() {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(q), idx.Dim())
	}
	return idx.Search(q, topK), nil
}

func (r *Retriever) embed(ctx context.Context, text, task string) ([]float32, error) {
	resp, err := r.provider.Generate(ctx, text, task)
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(r.provider.ModelName(), "error").Inc()
		return nil, err
	}
	metrics.EmbeddingRequestsTotal.WithLabelValues(r.provider.ModelName(), "success").Inc()
	return resp.Embedding.Values, nil
}
