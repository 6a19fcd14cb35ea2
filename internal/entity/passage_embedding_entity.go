package entity

import (
	"time"

	"github.com/google/uuid"
)

// PassageEmbedding is one stored vector of a passage set, addressed by SetKey and Position.
type PassageEmbedding struct {
	Id             uuid.UUID
	SetKey         string
	Position       int
	Content        string
	Model          string
	EmbeddingValue []float32
	CreatedAt      time.Time
}
