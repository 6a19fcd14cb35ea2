package contract

import (
	"context"

	"ai-quiz-generator-be/internal/entity"
)

type PassageEmbeddingRepository interface {
	CreateBulk(ctx context.Context, embeddings []*entity.PassageEmbedding) error
	DeleteBySetKey(ctx context.Context, setKey string) error
	// FindBySetKey returns the set ordered by Position.
	FindBySetKey(ctx context.Context, setKey string) ([]*entity.PassageEmbedding, error)
	CountBySetKey(ctx context.Context, setKey string) (int64, error)
}
