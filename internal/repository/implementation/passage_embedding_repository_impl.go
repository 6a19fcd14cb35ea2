package implementation

import (
	"context"

	"ai-quiz-generator-be/internal/entity"
	"ai-quiz-generator-be/internal/mapper"
	"ai-quiz-generator-be/internal/model"
	"ai-quiz-generator-be/internal/repository/contract"

	"gorm.io/gorm"
)

type PassageEmbeddingRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.PassageEmbeddingMapper
}

func NewPassageEmbeddingRepository(db *gorm.DB) contract.PassageEmbeddingRepository {
	return &PassageEmbeddingRepositoryImpl{
		db:     db,
		mapper: mapper.NewPassageEmbeddingMapper(),
	}
}

func (r *PassageEmbeddingRepositoryImpl) CreateBulk(ctx context.Context, embeddings []*entity.PassageEmbedding) error {
	if len(embeddings) == 0 {
		return nil
	}
	models := r.mapper.ToModels(embeddings)
	return r.db.WithContext(ctx).CreateInBatches(models, 100).Error
}

func (r *PassageEmbeddingRepositoryImpl) DeleteBySetKey(ctx context.Context, setKey string) error {
	return r.db.WithContext(ctx).Where("set_key = ?", setKey).Delete(&model.PassageEmbedding{}).Error
}

func (r *PassageEmbeddingRepositoryImpl) FindBySetKey(ctx context.Context, setKey string) ([]*entity.PassageEmbedding, error) {
	var models []*model.PassageEmbedding
	err := r.db.WithContext(ctx).
		Where("set_key = ?", setKey).
		Order("position ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *PassageEmbeddingRepositoryImpl) CountBySetKey(ctx context.Context, setKey string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.PassageEmbedding{}).Where("set_key = ?", setKey).Count(&count).Error
	return count, err
}
