package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeVector(t *testing.T) {
	got := normalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, got[0], 1e-6)
	assert.InDelta(t, 0.8, got[1], 1e-6)

	zero := normalizeVector([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)
}

func TestOllamaProvider_Generate(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		var req ollamaEmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotPrompt = req.Prompt
		_ = json.NewEncoder(w).Encode(ollamaEmbeddingResponse{Embedding: []float64{0, 2, 0}})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "nomic-embed-text")
	resp, err := p.Generate(context.Background(), "loops", TaskRetrievalQuery)
	require.NoError(t, err)

	assert.Equal(t, "search_query: loops", gotPrompt)
	assert.Equal(t, []float32{0, 1, 0}, resp.Embedding.Values)
	assert.Equal(t, "ollama/nomic-embed-text", p.ModelName())
}

func TestOllamaProvider_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "all-minilm")
	_, err := p.Generate(context.Background(), "loops", TaskRetrievalDocument)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestNewProvider(t *testing.T) {
	_, err := NewProvider(Config{Provider: "openai"})
	assert.Error(t, err)

	_, err = NewProvider(Config{Provider: "word2vec"})
	assert.Error(t, err)

	p, err := NewProvider(Config{Provider: "ollama"})
	require.NoError(t, err)
	assert.Equal(t, "ollama/nomic-embed-text", p.ModelName())
}
