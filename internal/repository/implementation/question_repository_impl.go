package implementation

import (
	"context"

	"ai-quiz-generator-be/internal/entity"
	"ai-quiz-generator-be/internal/mapper"
	"ai-quiz-generator-be/internal/model"
	"ai-quiz-generator-be/internal/repository/contract"
	"ai-quiz-generator-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type QuestionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.QuestionMapper
}

func NewQuestionRepository(db *gorm.DB) contract.QuestionRepository {
	return &QuestionRepositoryImpl{
		db:     db,
		mapper: mapper.NewQuestionMapper(),
	}
}

func (r *QuestionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *QuestionRepositoryImpl) CreateBulk(ctx context.Context, questions []*entity.Question) error {
	if len(questions) == 0 {
		return nil
	}
	models := r.mapper.ToModels(questions)
	// Answers are inserted through the has-many association.
	return r.db.WithContext(ctx).Create(&models).Error
}

func (r *QuestionRepositoryImpl) DeleteByQuizId(ctx context.Context, quizId uuid.UUID) error {
	subQuery := r.db.Model(&model.Question{}).Select("id").Where("quiz_id = ?", quizId)
	if err := r.db.WithContext(ctx).Where("question_id IN (?)", subQuery).Delete(&model.Answer{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("quiz_id = ?", quizId).Delete(&model.Question{}).Error
}

func (r *QuestionRepositoryImpl) ReplaceForQuiz(ctx context.Context, quizId uuid.UUID, questions []*entity.Question) error {
	if err := r.DeleteByQuizId(ctx, quizId); err != nil {
		return err
	}
	for _, q := range questions {
		q.QuizId = quizId
	}
	return r.CreateBulk(ctx, questions)
}

func (r *QuestionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Question, error) {
	var models []*model.Question
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *QuestionRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.Question{}).Count(&count).Error
	return count, err
}
