package dense

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// VectorStore persists the raw passage vectors of one passage set so a repeated
// request over the same material skips the embedding calls.
type VectorStore interface {
	// Load returns vectors in passage order; found is false when the set was never saved.
	Load(ctx context.Context, setKey string, n int) (vectors [][]float32, found bool, err error)
	Save(ctx context.Context, setKey string, passages []string, vectors [][]float32) error
}

// SetKey identifies a passage set within one embedding model's vector space.
func SetKey(model string, passages []string) string {
	h := sha256.New()
	h.Write([]byte(model))
	for _, p := range passages {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
