package dto

import (
	"time"

	"ai-quiz-generator-be/pkg/quiz"

	"github.com/google/uuid"
)

// CreateQuizRequest carries either raw source_text, which is chunked server side,
// or pre-split passages. Neither means the quiz is generated from the prompt alone.
type CreateQuizRequest struct {
	QuizId     uuid.UUID `json:"quiz_id" validate:"required"`
	Prompt     string    `json:"prompt" validate:"required"`
	Skills     []string  `json:"skills" validate:"omitempty,dive,required"`
	SourceText string    `json:"source_text"`
	Passages   []string  `json:"passages"`
}

type CreateQuizResponse struct {
	QuizId  uuid.UUID `json:"quiz_id"`
	Status  string    `json:"status"`
	Message string    `json:"message"`
}

type GenerateQuizResponse struct {
	QuizId         uuid.UUID            `json:"quiz_id"`
	TotalQuestions int                  `json:"total_questions"`
	Questions      []quiz.QuestionDraft `json:"questions"`
}

type QuizProgressResponse struct {
	QuizId         uuid.UUID `json:"quiz_id"`
	Status         string    `json:"status"`
	Progress       int       `json:"progress"`
	Message        string    `json:"message"`
	TotalQuestions int       `json:"total_questions"`
	Error          *string   `json:"error,omitempty"`
}

// PublishQuizGenerationMessage is the queued job. LockToken hands the admission lock
// to the worker that runs it.
type PublishQuizGenerationMessage struct {
	QuizId     uuid.UUID `json:"quiz_id"`
	Prompt     string    `json:"prompt"`
	Skills     []string  `json:"skills"`
	Passages   []string  `json:"passages"`
	LockToken  string    `json:"lock_token"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

type ListQuestionsRequest struct {
	QuizId       uuid.UUID `validate:"required"`
	QuestionType string    `validate:"omitempty,oneof=SINGLE_CHOICE MULTIPLE_CHOICE TRUE_FALSE"`
	Limit        int       `validate:"min=1,max=100"`
	Offset       int       `validate:"min=0"`
}

type AnswerResponse struct {
	Id         uuid.UUID `json:"id"`
	AnswerText string    `json:"answer_text"`
	IsCorrect  bool      `json:"is_correct"`
}

type QuestionResponse struct {
	Id           uuid.UUID        `json:"id"`
	Position     int              `json:"position"`
	QuestionText string           `json:"question_text"`
	Explanation  *string          `json:"explanation,omitempty"`
	Point        float64          `json:"point"`
	QuestionType string           `json:"question_type"`
	Answers      []AnswerResponse `json:"answers"`
}

type QuizQuestionsResponse struct {
	QuizId    uuid.UUID          `json:"quiz_id"`
	Total     int64              `json:"total"`
	Questions []QuestionResponse `json:"questions"`
}
