package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByQuizID filters questions belonging to a quiz
type ByQuizID struct {
	QuizID uuid.UUID
}

func (s ByQuizID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("quiz_id = ?", s.QuizID)
}

// ByQuestionType filters questions by their type
type ByQuestionType struct {
	Type string
}

func (s ByQuestionType) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("question_type = ?", s.Type)
}

// WithAnswers preloads answers in their stored order
type WithAnswers struct{}

func (s WithAnswers) Apply(db *gorm.DB) *gorm.DB {
	return db.Preload("Answers", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}
