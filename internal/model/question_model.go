package model

import (
	"time"

	"github.com/google/uuid"
)

type Question struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	QuizId       uuid.UUID `gorm:"type:uuid;not null;index"`
	Position     int       `gorm:"not null;default:0"`
	QuestionText string    `gorm:"type:text;not null"`
	Explanation  *string   `gorm:"type:text"`
	Point        float64   `gorm:"not null;default:1"`
	QuestionType string    `gorm:"type:varchar(32);not null;default:'SINGLE_CHOICE'"`
	Answers      []Answer  `gorm:"foreignKey:QuestionId;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (Question) TableName() string {
	return "questions"
}

type Answer struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	QuestionId uuid.UUID `gorm:"type:uuid;not null;index"`
	Position   int       `gorm:"not null;default:0"`
	AnswerText string    `gorm:"type:text;not null"`
	IsCorrect  bool      `gorm:"not null;default:false"`
}

func (Answer) TableName() string {
	return "answers"
}
