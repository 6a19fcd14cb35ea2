package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeQuizGenerationCompleted = "quiz.generation.completed"
	TypeQuizGenerationFailed    = "quiz.generation.failed"
)

type QuizGenerationCompleted struct {
	QuizId         uuid.UUID
	TotalQuestions int
	Duration       time.Duration
	OccurredAt     time.Time
}

func (e QuizGenerationCompleted) EventType() string {
	return TypeQuizGenerationCompleted
}

func (e QuizGenerationCompleted) Payload() map[string]interface{} {
	return map[string]interface{}{
		"quiz_id":         e.QuizId.String(),
		"total_questions": e.TotalQuestions,
		"duration_ms":     e.Duration.Milliseconds(),
		"occurred_at":     e.OccurredAt.Format(time.RFC3339),
	}
}

func (e QuizGenerationCompleted) Timestamp() time.Time {
	return e.OccurredAt
}

type QuizGenerationFailed struct {
	QuizId     uuid.UUID
	Label      string
	Error      string
	OccurredAt time.Time
}

func (e QuizGenerationFailed) EventType() string {
	return TypeQuizGenerationFailed
}

func (e QuizGenerationFailed) Payload() map[string]interface{} {
	return map[string]interface{}{
		"quiz_id":     e.QuizId.String(),
		"label":       e.Label,
		"error":       e.Error,
		"occurred_at": e.OccurredAt.Format(time.RFC3339),
	}
}

func (e QuizGenerationFailed) Timestamp() time.Time {
	return e.OccurredAt
}
