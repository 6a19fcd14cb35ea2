package unitofwork

import (
	"context"

	"ai-quiz-generator-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	QuestionRepository() contract.QuestionRepository
	PassageEmbeddingRepository() contract.PassageEmbeddingRepository
}
