package dense

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/philippgille/chromem-go"
)

var errPrecomputedOnly = errors.New("chromem store only accepts precomputed embeddings")

// ChromemStore keeps one chromem collection per passage set, persisted as gob files.
type ChromemStore struct {
	db *chromem.DB
}

// NewChromemStore opens a persistent DB at path. An empty path keeps everything in memory.
func NewChromemStore(path string, compress bool) (*ChromemStore, error) {
	if path == "" {
		return &ChromemStore{db: chromem.NewDB()}, nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", path, err)
	}
	db, err := chromem.NewPersistentDB(path, compress)
	if err != nil {
		return nil, fmt.Errorf("creating chromem DB: %w", err)
	}
	return &ChromemStore{db: db}, nil
}

// Vectors are always supplied, so the embedding func must never run.
func noEmbed(context.Context, string) ([]float32, error) {
	return nil, errPrecomputedOnly
}

func collectionName(setKey string) string {
	return "passages_" + setKey
}

func (s *ChromemStore) Load(ctx context.Context, setKey string, n int) ([][]float32, bool, error) {
	coll := s.db.GetCollection(collectionName(setKey), noEmbed)
	if coll == nil {
		return nil, false, nil
	}
	// A partial write is treated as a miss and rebuilt.
	if coll.Count() != n {
		return nil, false, nil
	}

	vectors := make([][]float32, n)
	for i := 0; i < n; i++ {
		doc, err := coll.GetByID(ctx, strconv.Itoa(i))
		if err != nil {
			return nil, false, fmt.Errorf("loading vector %d of set %s: %w", i, setKey, err)
		}
		vectors[i] = doc.Embedding
	}
	return vectors, true, nil
}

func (s *ChromemStore) Save(ctx context.Context, setKey string, passages []string, vectors [][]float32) error {
	name := collectionName(setKey)
	// Start from a clean collection so Count matches the passage set exactly.
	if err := s.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("resetting collection %s: %w", name, err)
	}
	coll, err := s.db.GetOrCreateCollection(name, map[string]string{"set_key": setKey}, noEmbed)
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", name, err)
	}

	docs := make([]chromem.Document, len(passages))
	for i, p := range passages {
		docs[i] = chromem.Document{
			ID:        strconv.Itoa(i),
			Content:   p,
			Embedding: vectors[i],
		}
	}
	if err := coll.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("adding %d documents to %s: %w", len(docs), name, err)
	}
	return nil
}
