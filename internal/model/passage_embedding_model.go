package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

type PassageEmbedding struct {
	Id             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SetKey         string          `gorm:"type:char(64);not null;uniqueIndex:idx_passage_embeddings_set_position"`
	Position       int             `gorm:"not null;uniqueIndex:idx_passage_embeddings_set_position"`
	Content        string          `gorm:"type:text"`
	Model          string          `gorm:"type:varchar(128)"`
	EmbeddingValue pgvector.Vector `gorm:"type:vector"` // dimension depends on the embedding model
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
}

func (PassageEmbedding) TableName() string {
	return "passage_embeddings"
}
