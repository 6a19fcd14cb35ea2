package dense

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-quiz-generator-be/internal/pkg/logger"
	"ai-quiz-generator-be/pkg/embedding"
)

// conceptEmbedder maps text onto a few keyword dimensions plus a constant bias.
type conceptEmbedder struct {
	calls atomic.Int32
	err   error
}

var concepts = []string{"loop", "variable", "function"}

func (e *conceptEmbedder) ModelName() string { return "test/concepts" }

func (e *conceptEmbedder) Generate(_ context.Context, text string, _ string) (*embedding.EmbeddingResponse, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	vec := make([]float32, len(concepts)+1)
	lower := strings.ToLower(text)
	for i, c := range concepts {
		vec[i] = float32(strings.Count(lower, c))
	}
	vec[len(concepts)] = 0.1
	return &embedding.EmbeddingResponse{Embedding: embedding.EmbeddingResponseEmbedding{Values: vec}}, nil
}

// gatedEmbedder holds every call until gate is closed or the call's context ends.
type gatedEmbedder struct {
	conceptEmbedder
	entered chan struct{}
	gate    chan struct{}
}

func (e *gatedEmbedder) Generate(ctx context.Context, text string, task string) (*embedding.EmbeddingResponse, error) {
	e.entered <- struct{}{}
	select {
	case <-e.gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return e.conceptEmbedder.Generate(ctx, text, task)
}

func TestFlatIndex_Search(t *testing.T) {
	idx := NewFlatIndex([][]float32{{0, 1}, {1, 0}, {0, 1}, {0.5, 0.5}})

	got := idx.Search([]float32{0, 1}, 3)

	require.Len(t, got, 3)
	// Passages 0 and 2 tie; scan order decides.
	assert.Equal(t, 0, got[0].PassageID)
	assert.Equal(t, 2, got[1].PassageID)
	assert.Equal(t, 3, got[2].PassageID)
}

func TestSetKey(t *testing.T) {
	a := SetKey("m", []string{"ab", "c"})
	b := SetKey("m", []string{"a", "bc"})
	c := SetKey("other", []string{"ab", "c"})

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, a, SetKey("m", []string{"ab", "c"}))
}

func TestRetriever_PersistsAndReusesVectors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	passages := []string{"Loops iterate over sequences.", "A variable binds a name to a value."}

	store, err := NewChromemStore(dir, false)
	require.NoError(t, err)
	emb := &conceptEmbedder{}
	r := NewRetriever(emb, store, logger.NewNopLogger())

	idx, err := r.Index(ctx, passages)
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
	assert.EqualValues(t, 2, emb.calls.Load())

	// A fresh process over the same directory loads instead of embedding again.
	reopened, err := NewChromemStore(dir, false)
	require.NoError(t, err)
	emb2 := &conceptEmbedder{}
	r2 := NewRetriever(emb2, reopened, logger.NewNopLogger())

	idx2, err := r2.Index(ctx, passages)
	require.NoError(t, err)
	assert.Equal(t, 2, idx2.Len())
	assert.EqualValues(t, 0, emb2.calls.Load())

	got, err := r2.Search(ctx, idx2, "Explain loops", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].PassageID)
}

func TestRetriever_EmbeddingFailure(t *testing.T) {
	store, err := NewChromemStore("", false)
	require.NoError(t, err)
	emb := &conceptEmbedder{err: errors.New("connection refused")}
	r := NewRetriever(emb, store, logger.NewNopLogger())

	_, err = r.Index(context.Background(), []string{"Loops iterate over sequences."})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRetriever_EmptyPassages(t *testing.T) {
	store, err := NewChromemStore("", false)
	require.NoError(t, err)
	emb := &conceptEmbedder{}
	r := NewRetriever(emb, store, logger.NewNopLogger())

	idx, err := r.Index(context.Background(), nil)
	require.NoError(t, err)

	got, err := r.Search(context.Background(), idx, "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.EqualValues(t, 0, emb.calls.Load())
}

func TestRetriever_CancelledCallerDoesNotFailSharedBuild(t *testing.T) {
	store, err := NewChromemStore("", false)
	require.NoError(t, err)
	emb := &gatedEmbedder{entered: make(chan struct{}, 4), gate: make(chan struct{})}
	r := NewRetriever(emb, store, logger.NewNopLogger())
	passages := []string{"Loops iterate over sequences."}

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	errA := make(chan error, 1)
	go func() {
		_, err := r.Index(ctxA, passages)
		errA <- err
	}()
	<-emb.entered

	type result struct {
		idx *FlatIndex
		err error
	}
	resB := make(chan result, 1)
	go func() {
		idx, err := r.Index(context.Background(), passages)
		resB <- result{idx, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller kept waiting for the build")
	}

	close(emb.gate)
	select {
	case got := <-resB:
		require.NoError(t, got.err)
		assert.Equal(t, 1, got.idx.Len())
	case <-time.After(2 * time.Second):
		t.Fatal("joined caller never received the index")
	}
	assert.EqualValues(t, 1, emb.calls.Load())
}
