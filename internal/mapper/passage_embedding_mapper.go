package mapper

import (
	"ai-quiz-generator-be/internal/entity"
	"ai-quiz-generator-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type PassageEmbeddingMapper struct{}

func NewPassageEmbeddingMapper() *PassageEmbeddingMapper {
	return &PassageEmbeddingMapper{}
}

func (m *PassageEmbeddingMapper) ToEntity(e *model.PassageEmbedding) *entity.PassageEmbedding {
	if e == nil {
		return nil
	}
	return &entity.PassageEmbedding{
		Id:             e.Id,
		SetKey:         e.SetKey,
		Position:       e.Position,
		Content:        e.Content,
		Model:          e.Model,
		EmbeddingValue: e.EmbeddingValue.Slice(),
		CreatedAt:      e.CreatedAt,
	}
}

func (m *PassageEmbeddingMapper) ToModel(e *entity.PassageEmbedding) *model.PassageEmbedding {
	if e == nil {
		return nil
	}
	return &model.PassageEmbedding{
		Id:             e.Id,
		SetKey:         e.SetKey,
		Position:       e.Position,
		Content:        e.Content,
		Model:          e.Model,
		EmbeddingValue: pgvector.NewVector(e.EmbeddingValue),
		CreatedAt:      e.CreatedAt,
	}
}

func (m *PassageEmbeddingMapper) ToEntities(embeddings []*model.PassageEmbedding) []*entity.PassageEmbedding {
	entities := make([]*entity.PassageEmbedding, len(embeddings))
	for i, e := range embeddings {
		entities[i] = m.ToEntity(e)
	}
	return entities
}

func (m *PassageEmbeddingMapper) ToModels(embeddings []*entity.PassageEmbedding) []*model.PassageEmbedding {
	models := make([]*model.PassageEmbedding, len(embeddings))
	for i, e := range embeddings {
		models[i] = m.ToModel(e)
	}
	return models
}
