package mapper

import (
	"time"

	"ai-quiz-generator-be/internal/entity"
	"ai-quiz-generator-be/internal/model"
	"ai-quiz-generator-be/pkg/quiz"

	"github.com/google/uuid"
)

type QuestionMapper struct{}

func NewQuestionMapper() *QuestionMapper {
	return &QuestionMapper{}
}

func (m *QuestionMapper) ToEntity(q *model.Question) *entity.Question {
	if q == nil {
		return nil
	}

	var updatedAt *time.Time
	if !q.UpdatedAt.IsZero() {
		t := q.UpdatedAt
		updatedAt = &t
	}

	answers := make([]*entity.Answer, len(q.Answers))
	for i, a := range q.Answers {
		answers[i] = &entity.Answer{
			Id:         a.Id,
			QuestionId: a.QuestionId,
			Position:   a.Position,
			AnswerText: a.AnswerText,
			IsCorrect:  a.IsCorrect,
		}
	}

	return &entity.Question{
		Id:           q.Id,
		QuizId:       q.QuizId,
		Position:     q.Position,
		QuestionText: q.QuestionText,
		Explanation:  q.Explanation,
		Point:        q.Point,
		QuestionType: q.QuestionType,
		Answers:      answers,
		CreatedAt:    q.CreatedAt,
		UpdatedAt:    updatedAt,
	}
}

func (m *QuestionMapper) ToModel(q *entity.Question) *model.Question {
	if q == nil {
		return nil
	}

	var updatedAt time.Time
	if q.UpdatedAt != nil {
		updatedAt = *q.UpdatedAt
	}

	answers := make([]model.Answer, len(q.Answers))
	for i, a := range q.Answers {
		answers[i] = model.Answer{
			Id:         a.Id,
			QuestionId: q.Id,
			Position:   a.Position,
			AnswerText: a.AnswerText,
			IsCorrect:  a.IsCorrect,
		}
	}

	return &model.Question{
		Id:           q.Id,
		QuizId:       q.QuizId,
		Position:     q.Position,
		QuestionText: q.QuestionText,
		Explanation:  q.Explanation,
		Point:        q.Point,
		QuestionType: q.QuestionType,
		Answers:      answers,
		CreatedAt:    q.CreatedAt,
		UpdatedAt:    updatedAt,
	}
}

func (m *QuestionMapper) ToEntities(questions []*model.Question) []*entity.Question {
	entities := make([]*entity.Question, len(questions))
	for i, q := range questions {
		entities[i] = m.ToEntity(q)
	}
	return entities
}

func (m *QuestionMapper) ToModels(questions []*entity.Question) []*model.Question {
	models := make([]*model.Question, len(questions))
	for i, q := range questions {
		models[i] = m.ToModel(q)
	}
	return models
}

// FromDrafts turns parsed drafts into entities for quizId, keeping draft order as Position.
func (m *QuestionMapper) FromDrafts(quizId uuid.UUID, drafts []quiz.QuestionDraft) []*entity.Question {
	now := time.Now()
	questions := make([]*entity.Question, len(drafts))
	for i, d := range drafts {
		questionId := uuid.New()
		answers := make([]*entity.Answer, len(d.Answers))
		for j, a := range d.Answers {
			answers[j] = &entity.Answer{
				Id:         uuid.New(),
				QuestionId: questionId,
				Position:   j,
				AnswerText: a.AnswerText,
				IsCorrect:  a.IsCorrect,
			}
		}
		questions[i] = &entity.Question{
			Id:           questionId,
			QuizId:       quizId,
			Position:     i,
			QuestionText: d.QuestionText,
			Explanation:  d.Explanation,
			Point:        d.Point,
			QuestionType: string(d.QuestionType),
			Answers:      answers,
			CreatedAt:    now,
		}
	}
	return questions
}
