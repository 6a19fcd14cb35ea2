package entity

import (
	"time"

	"github.com/google/uuid"
)

type Question struct {
	Id           uuid.UUID
	QuizId       uuid.UUID
	Position     int
	QuestionText string
	Explanation  *string
	Point        float64
	QuestionType string
	Answers      []*Answer
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

type Answer struct {
	Id         uuid.UUID
	QuestionId uuid.UUID
	Position   int
	AnswerText string
	IsCorrect  bool
}
