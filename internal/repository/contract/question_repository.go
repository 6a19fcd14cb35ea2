package contract

import (
	"context"

	"ai-quiz-generator-be/internal/entity"
	"ai-quiz-generator-be/internal/repository/specification"

	"github.com/google/uuid"
)

type QuestionRepository interface {
	CreateBulk(ctx context.Context, questions []*entity.Question) error
	DeleteByQuizId(ctx context.Context, quizId uuid.UUID) error
	// ReplaceForQuiz drops every stored question of quizId and inserts questions in their place.
	// Callers wanting all-or-nothing semantics run it inside a unit of work.
	ReplaceForQuiz(ctx context.Context, quizId uuid.UUID, questions []*entity.Question) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Question, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
